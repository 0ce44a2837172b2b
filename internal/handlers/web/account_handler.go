package web

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/davesrecords/davesrecords/internal/collection"
	"github.com/davesrecords/davesrecords/internal/middlewares"
	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/internal/users"
	"github.com/davesrecords/davesrecords/model"
	"github.com/gofiber/fiber/v2"
)

// AccountHandler serves the signed in user's own settings, exclusions and connections
type AccountHandler struct {
	userService       UserService
	collectionService CollectionService
	auditService      AuditService
}

type settingsRequest struct {
	DisplayName       *string `json:"displayName"`
	Bio               *string `json:"bio"`
	PublicSlug        *string `json:"publicSlug"`
	CollectionPrivate *bool   `json:"collectionPrivate"`
}

type settingsResponse struct {
	DisplayName       string `json:"displayName"`
	Bio               string `json:"bio"`
	PublicSlug        string `json:"publicSlug"`
	CollectionPrivate bool   `json:"collectionPrivate"`
}

type exclusionRequest struct {
	ReleaseID interface{} `json:"releaseId"`
}

func toSettingsResponse(user *model.User) settingsResponse {
	return settingsResponse{
		DisplayName:       user.DisplayName,
		Bio:               user.Bio,
		PublicSlug:        user.PublicSlug,
		CollectionPrivate: user.CollectionPrivate,
	}
}

func settingsErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, users.ErrInvalidSlug):
		return fiber.StatusBadRequest, MsgInvalidSlug
	case errors.Is(err, users.ErrDisplayNameTooLong):
		return fiber.StatusBadRequest, MsgDisplayNameTooLong
	case errors.Is(err, users.ErrBioTooLong):
		return fiber.StatusBadRequest, MsgBioTooLong
	case errors.Is(err, users.ErrSlugTaken):
		return fiber.StatusConflict, MsgSlugTaken
	case errors.Is(err, users.ErrUserNotFound):
		return fiber.StatusNotFound, MsgUserNotFound
	}
	return 0, ""
}

// invalidate drops the cached pages of slugs. Failures are logged, the stale
// entries expire with the cache ttl.
func (h *AccountHandler) invalidate(ctx *fiber.Ctx, slugs ...string) {
	seen := map[string]bool{}
	for _, slug := range slugs {
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		if err := h.collectionService.InvalidateOwner(ctx.Context(), slug); err != nil {
			slog.Warn("Could not invalidate collection cache", "slug", slug, "error", err)
		}
	}
}

// PutSettings updates the profile and privacy settings of the signed in user.
func (h *AccountHandler) PutSettings(ctx *fiber.Ctx) error {
	user := middlewares.CurrentUser(ctx)
	var req settingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequest)
	}

	common := ocsf.Common{
		ActivityID:  ocsf.EntityUpdate,
		Message:     "User settings updated",
		Actor:       eventActor(user),
		SrcEndpoint: eventEndpoint(ctx),
	}
	resource := &ocsf.Resource{Type: "user_settings", UID: uintString(user.ID), Name: user.PublicSlug}

	before, after, err := h.userService.UpdateSettings(ctx.Context(), user.ID, users.UserSettings{
		DisplayName:       req.DisplayName,
		Bio:               req.Bio,
		PublicSlug:        req.PublicSlug,
		CollectionPrivate: req.CollectionPrivate,
	})
	if err != nil {
		common.Message = "User settings update rejected"
		h.auditService.Record(ctx.Context(), ocsf.NewEntityManagement(ocsf.EntityManagementParams{
			Common:   failure(common, "invalid_settings", err.Error(), ocsf.SeverityLow),
			Resource: resource,
		}))
		if code, msg := settingsErrorStatus(err); code != 0 {
			return sendError(ctx, code, msg)
		}
		return err
	}

	h.invalidate(ctx, before.PublicSlug, after.PublicSlug)
	resource.Data = map[string]any{
		"before": toSettingsResponse(before),
		"after":  toSettingsResponse(after),
	}
	h.auditService.Record(ctx.Context(), ocsf.NewEntityManagement(ocsf.EntityManagementParams{
		Common:   common,
		Resource: resource,
	}))
	return sendData(ctx, toSettingsResponse(after))
}

func (h *AccountHandler) recordExclusion(ctx *fiber.Ctx, user *model.User, activityID int, releaseID uint64, err error) {
	common := ocsf.Common{
		ActivityID:  activityID,
		Message:     "Album excluded from gallery",
		Actor:       eventActor(user),
		SrcEndpoint: eventEndpoint(ctx),
	}
	if activityID == ocsf.APIDelete {
		common.Message = "Album restored to gallery"
	}
	if err != nil {
		common = failure(common, "exclusion_failed", err.Error(), ocsf.SeverityLow)
	}
	h.auditService.Record(ctx.Context(), ocsf.NewAPIActivity(ocsf.APIActivityParams{
		Common:   common,
		Resource: &ocsf.Resource{Type: "excluded_album", UID: strconv.FormatUint(releaseID, 10)},
		API:      eventAPI(ctx),
	}))
}

func exclusionError(ctx *fiber.Ctx, err error) error {
	if errors.Is(err, collection.ErrInvalidRelease) {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidReleaseID)
	}
	return err
}

// PostExclusion hides a release from the public gallery.
func (h *AccountHandler) PostExclusion(ctx *fiber.Ctx) error {
	user := middlewares.CurrentUser(ctx)
	var req exclusionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequest)
	}
	releaseID, err := parseReleaseID(req.ReleaseID)
	if err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidReleaseID)
	}

	err = h.collectionService.ExcludeAlbum(ctx.Context(), user.ID, releaseID)
	h.recordExclusion(ctx, user, ocsf.APICreate, releaseID, err)
	if err != nil {
		return exclusionError(ctx, err)
	}
	ctx.Status(fiber.StatusCreated)
	return sendData(ctx, fiber.Map{"releaseId": releaseID, "excluded": true})
}

// DeleteExclusion shows a previously excluded release again.
func (h *AccountHandler) DeleteExclusion(ctx *fiber.Ctx) error {
	user := middlewares.CurrentUser(ctx)
	releaseID, err := parseReleaseID(ctx.Params("releaseID"))
	if err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidReleaseID)
	}

	err = h.collectionService.IncludeAlbum(ctx.Context(), user.ID, releaseID)
	h.recordExclusion(ctx, user, ocsf.APIDelete, releaseID, err)
	if err != nil {
		return exclusionError(ctx, err)
	}
	return sendData(ctx, fiber.Map{"releaseId": releaseID, "excluded": false})
}

// PutPrimaryConnection selects the connection shown by default on the gallery.
func (h *AccountHandler) PutPrimaryConnection(ctx *fiber.Ctx) error {
	user := middlewares.CurrentUser(ctx)
	connID, err := parseUintParam(ctx, "id")
	if err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequest)
	}

	if err := h.userService.SetPrimaryConnection(ctx.Context(), user.ID, connID); err != nil {
		if errors.Is(err, users.ErrConnectionNotFound) {
			return sendError(ctx, fiber.StatusNotFound, MsgConnectionNotFound)
		}
		return err
	}
	h.invalidate(ctx, user.PublicSlug)
	h.auditService.Record(ctx.Context(), ocsf.NewEntityManagement(ocsf.EntityManagementParams{
		Common: ocsf.Common{
			ActivityID:  ocsf.EntityUpdate,
			Message:     "Primary Discogs connection changed",
			Actor:       eventActor(user),
			SrcEndpoint: eventEndpoint(ctx),
		},
		Resource: &ocsf.Resource{Type: "discogs_connection", UID: uintString(connID)},
	}))
	return sendData(ctx, fiber.Map{"connectionId": connID, "isPrimary": true})
}

func NewAccountHandler(userService UserService, collectionService CollectionService, auditService AuditService) *AccountHandler {
	return &AccountHandler{
		userService:       userService,
		collectionService: collectionService,
		auditService:      auditService,
	}
}
