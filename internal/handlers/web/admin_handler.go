package web

import (
	"errors"
	"log/slog"
	"time"

	"github.com/davesrecords/davesrecords/internal/audit"
	"github.com/davesrecords/davesrecords/internal/middlewares"
	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/internal/users"
	"github.com/davesrecords/davesrecords/model"
	"github.com/davesrecords/davesrecords/params"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves user moderation and the audit log to administrators
type AdminHandler struct {
	userService       UserService
	collectionService CollectionService
	auditService      AuditService
}

type adminUserResponse struct {
	ID                uint              `json:"id"`
	DisplayName       string            `json:"displayName"`
	PublicSlug        string            `json:"publicSlug"`
	Role              model.UserRole    `json:"role"`
	Status            model.UserStatus  `json:"status"`
	CollectionPrivate bool              `json:"collectionPrivate"`
	Connections       []adminConnection `json:"connections"`
	CreatedAt         time.Time         `json:"createdAt"`
}

type adminConnection struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	IsPrimary bool   `json:"isPrimary"`
}

type roleRequest struct {
	Role model.UserRole `json:"role"`
}

func toAdminUser(user *model.User) adminUserResponse {
	conns := make([]adminConnection, 0, len(user.Connections))
	for _, c := range user.Connections {
		conns = append(conns, adminConnection{ID: c.ID, Username: c.Username, IsPrimary: c.IsPrimary})
	}
	return adminUserResponse{
		ID:                user.ID,
		DisplayName:       user.PublicName(),
		PublicSlug:        user.PublicSlug,
		Role:              user.Role,
		Status:            user.Status,
		CollectionPrivate: user.CollectionPrivate,
		Connections:       conns,
		CreatedAt:         user.CreatedAt.UTC(),
	}
}

// RequireAdmin rejects requests of anonymous users and non administrators.
// Denied calls of signed in users are audited.
func (h *AdminHandler) RequireAdmin(ctx *fiber.Ctx) error {
	user := middlewares.CurrentUser(ctx)
	if user == nil {
		return sendError(ctx, fiber.StatusUnauthorized, MsgLoginRequired)
	}
	if user.IsAdmin() {
		return ctx.Next()
	}
	h.auditService.Record(ctx.Context(), ocsf.NewAPIActivity(ocsf.APIActivityParams{
		Common: failure(ocsf.Common{
			ActivityID:  ocsf.ActivityOther,
			Message:     "Admin API call denied",
			Actor:       eventActor(user),
			SrcEndpoint: eventEndpoint(ctx),
		}, "forbidden", "user is not an administrator", ocsf.SeverityMedium),
		Resource: &ocsf.Resource{Type: "admin_api", Name: ctx.Path()},
		API:      &ocsf.API{Operation: ctx.Method() + " " + ctx.Path(), Service: params.ProductName},
	}))
	return sendError(ctx, fiber.StatusForbidden, MsgAdminRequired)
}

func (h *AdminHandler) GetUsers(ctx *fiber.Ctx) error {
	offset, err := queryInt(ctx, "offset")
	if err != nil || offset < 0 {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequest)
	}
	limit, err := queryInt(ctx, "limit")
	if err != nil || limit < 0 {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequest)
	}
	if limit == 0 || limit > params.AuditMaxQueryLimit {
		limit = params.AuditDefaultQueryLimit
	}

	list, total, err := h.userService.ListUsers(ctx.Context(), offset, limit)
	if err != nil {
		return err
	}
	items := make([]adminUserResponse, 0, len(list))
	for _, user := range list {
		items = append(items, toAdminUser(user))
	}
	return sendData(ctx, fiber.Map{
		"users":  items,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

func (h *AdminHandler) loadTarget(ctx *fiber.Ctx) (*model.User, error) {
	userID, err := parseUintParam(ctx, "id")
	if err != nil {
		return nil, sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequest)
	}
	target, err := h.userService.GetUserByID(ctx.Context(), userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, sendError(ctx, fiber.StatusNotFound, MsgUserNotFound)
	}
	return target, err
}

func (h *AdminHandler) setStatus(ctx *fiber.Ctx, status model.UserStatus) error {
	admin := middlewares.CurrentUser(ctx)
	target, err := h.loadTarget(ctx)
	if target == nil {
		return err
	}

	activityID, message := ocsf.AccountDisable, "User banned"
	if status == model.StatusActive {
		activityID, message = ocsf.AccountEnable, "User unbanned"
	}
	common := ocsf.Common{
		ActivityID:  activityID,
		Message:     message,
		Actor:       eventActor(admin),
		SrcEndpoint: eventEndpoint(ctx),
		SeverityID:  ocsf.Severity(ocsf.SeverityHigh),
		RawData:     map[string]any{"previousStatus": target.Status},
	}

	if target.ID == admin.ID {
		h.auditService.Record(ctx.Context(), ocsf.NewAccountChange(ocsf.AccountChangeParams{
			Common: failure(common, "self_change", "administrators cannot change their own status", ocsf.SeverityHigh),
			User:   eventUser(target),
		}))
		return sendError(ctx, fiber.StatusBadRequest, MsgCannotChangeOwnRecord)
	}

	updated, err := h.userService.SetStatus(ctx.Context(), target.ID, status)
	if err != nil {
		return err
	}
	h.auditService.Record(ctx.Context(), ocsf.NewAccountChange(ocsf.AccountChangeParams{
		Common: common,
		User:   eventUser(updated),
	}))
	if err := h.collectionService.InvalidateOwner(ctx.Context(), updated.PublicSlug); err != nil {
		slog.Warn("Could not invalidate collection cache", "slug", updated.PublicSlug, "error", err)
	}
	return sendData(ctx, toAdminUser(updated))
}

func (h *AdminHandler) PostBan(ctx *fiber.Ctx) error {
	return h.setStatus(ctx, model.StatusBanned)
}

func (h *AdminHandler) PostUnban(ctx *fiber.Ctx) error {
	return h.setStatus(ctx, model.StatusActive)
}

func (h *AdminHandler) PutRole(ctx *fiber.Ctx) error {
	admin := middlewares.CurrentUser(ctx)
	var req roleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequest)
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAdmin {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRole)
	}
	target, err := h.loadTarget(ctx)
	if target == nil {
		return err
	}

	activityID, message := ocsf.UserAccessAssignPrivileges, "Admin role granted"
	if req.Role == model.RoleUser {
		activityID, message = ocsf.UserAccessRevokePrivileges, "Admin role revoked"
	}
	common := ocsf.Common{
		ActivityID:  activityID,
		Message:     message,
		Actor:       eventActor(admin),
		SrcEndpoint: eventEndpoint(ctx),
		SeverityID:  ocsf.Severity(ocsf.SeverityHigh),
		RawData:     map[string]any{"previousRole": target.Role, "role": req.Role},
	}
	privileges := []string{string(model.RoleAdmin)}

	if target.ID == admin.ID && req.Role != model.RoleAdmin {
		h.auditService.Record(ctx.Context(), ocsf.NewUserAccess(ocsf.UserAccessParams{
			Common:     failure(common, "self_change", "administrators cannot demote themselves", ocsf.SeverityHigh),
			User:       eventUser(target),
			Privileges: privileges,
		}))
		return sendError(ctx, fiber.StatusBadRequest, MsgCannotChangeOwnRecord)
	}

	updated, err := h.userService.SetRole(ctx.Context(), target.ID, req.Role)
	if err != nil {
		if errors.Is(err, users.ErrInvalidRole) {
			return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRole)
		}
		return err
	}
	h.auditService.Record(ctx.Context(), ocsf.NewUserAccess(ocsf.UserAccessParams{
		Common:     common,
		User:       eventUser(updated),
		Privileges: privileges,
	}))
	return sendData(ctx, toAdminUser(updated))
}

func auditQueryError(ctx *fiber.Ctx, err error) error {
	if errors.Is(err, audit.ErrInvalidFilter) || errors.Is(err, errInvalidParam) {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidAuditFilter)
	}
	return err
}

// GetAudit lists audit events matching the query string filter.
func (h *AdminHandler) GetAudit(ctx *fiber.Ctx) error {
	filter, err := parseAuditFilter(ctx)
	if err != nil {
		return auditQueryError(ctx, err)
	}
	result, err := h.auditService.Query(ctx.Context(), filter)
	if err != nil {
		return auditQueryError(ctx, err)
	}
	return sendData(ctx, result)
}

func (h *AdminHandler) GetAuditStats(ctx *fiber.Ctx) error {
	from, err := queryTimePtr(ctx, "from")
	if err != nil {
		return auditQueryError(ctx, err)
	}
	to, err := queryTimePtr(ctx, "to")
	if err != nil {
		return auditQueryError(ctx, err)
	}
	stats, err := h.auditService.Stats(ctx.Context(), from, to)
	if err != nil {
		return auditQueryError(ctx, err)
	}
	return sendData(ctx, stats)
}

// GetUserAudit returns the latest events performed by and targeting a user.
func (h *AdminHandler) GetUserAudit(ctx *fiber.Ctx) error {
	userID, err := parseUintParam(ctx, "id")
	if err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequest)
	}
	limit, err := queryInt(ctx, "limit")
	if err != nil || limit < 0 {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidAuditFilter)
	}

	performed, err := h.auditService.EventsForActor(ctx.Context(), userID, limit)
	if err != nil {
		return auditQueryError(ctx, err)
	}
	targeted, err := h.auditService.EventsForTarget(ctx.Context(), userID, limit)
	if err != nil {
		return auditQueryError(ctx, err)
	}
	return sendData(ctx, fiber.Map{
		"userId":    userID,
		"performed": performed,
		"targeted":  targeted,
	})
}

func NewAdminHandler(userService UserService, collectionService CollectionService, auditService AuditService) *AdminHandler {
	return &AdminHandler{
		userService:       userService,
		collectionService: collectionService,
		auditService:      auditService,
	}
}
