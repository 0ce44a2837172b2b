package web

import (
	"errors"
	"log/slog"
	"time"

	"github.com/davesrecords/davesrecords/internal/middlewares"
	"github.com/davesrecords/davesrecords/internal/middlewares/sessions"
	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/internal/users"
	"github.com/davesrecords/davesrecords/model"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// AuthHandler signs users in and out with Discogs and links further Discogs accounts
type AuthHandler struct {
	userService  UserService
	discogsAuth  DiscogsAuth
	auditService AuditService
	now          func() time.Time
}

func mapHomeError(errorCode string) string {
	switch errorCode {
	case "login_failed":
		return MsgDiscogsLoginFailed
	case "discogs_unavailable":
		return MsgDiscogsUnavailable
	case "already_linked":
		return MsgDiscogsAlreadyLinked
	case "banned":
		return MsgDiscogsLoginFailed
	default:
		return ""
	}
}

func (h *AuthHandler) GetHome(ctx *fiber.Ctx) error {
	vars := fiber.Map{
		"errorMsg": mapHomeError(ctx.Query("error")),
	}
	if user := middlewares.CurrentUser(ctx); user != nil {
		vars["user"] = user
		vars["displayName"] = user.PublicName()
		vars["connections"] = user.Connections
	}
	return ctx.Render("home", vars)
}

func (h *AuthHandler) recordLogonFailure(ctx *fiber.Ctx, user *model.User, code, detail string) {
	common := failure(ocsf.Common{
		ActivityID:  ocsf.AuthLogon,
		Message:     "Discogs sign in failed",
		SrcEndpoint: eventEndpoint(ctx),
	}, code, detail, ocsf.SeverityMedium)
	h.auditService.Record(ctx.Context(), ocsf.NewAuthentication(ocsf.AuthenticationParams{
		Common:       common,
		User:         eventUser(user),
		AuthProtocol: authProtocolDiscogs,
	}))
}

// GetLoginDiscogs starts the Discogs handshake. With ?link=1 a signed in user
// links another Discogs account instead of signing in.
func (h *AuthHandler) GetLoginDiscogs(ctx *fiber.Ctx) error {
	user := middlewares.CurrentUser(ctx)
	linkMode := user != nil && ctx.QueryBool("link")
	if user != nil && !linkMode {
		return ctx.Redirect("/c/" + user.PublicSlug)
	}

	token, secret, authorizeURL, err := h.discogsAuth.RequestToken()
	if err != nil {
		slog.Error("Could not obtain discogs request token", "error", err)
		h.recordLogonFailure(ctx, user, "request_token_failed", err.Error())
		return redirect(ctx, "/", "error", "discogs_unavailable")
	}

	session := sessions.Get(ctx)
	session.OAuthRequestToken = token
	session.OAuthRequestSecret = secret
	session.OAuthRequestTime = h.now()
	session.LinkMode = linkMode
	session.Save()
	return ctx.Redirect(authorizeURL)
}

func (h *AuthHandler) completeHandshake(ctx *fiber.Ctx, session *sessions.Session) (*users.DiscogsAccount, bool, error) {
	req, err := adaptor.ConvertRequest(ctx, false)
	if err != nil {
		return nil, false, err
	}
	token, verifier, err := h.discogsAuth.ParseCallback(req)
	if err != nil {
		return nil, false, err
	}
	if !session.HasPendingHandshake(token, h.now()) {
		return nil, false, errors.New("no pending handshake for request token")
	}
	requestSecret, linkMode := session.OAuthRequestSecret, session.LinkMode
	session.ClearHandshake()
	session.Save()

	accessToken, accessSecret, err := h.discogsAuth.AccessToken(token, requestSecret, verifier)
	if err != nil {
		return nil, false, err
	}
	profile, err := h.discogsAuth.Account(ctx.Context(), accessToken, accessSecret)
	if err != nil {
		return nil, false, err
	}
	return &users.DiscogsAccount{
		DiscogsUserID: profile.ID,
		Username:      profile.Username,
		AvatarURL:     profile.AvatarURL,
		AccessToken:   accessToken,
		AccessSecret:  accessSecret,
	}, linkMode, nil
}

func (h *AuthHandler) GetDiscogsCallback(ctx *fiber.Ctx) error {
	session := sessions.Get(ctx)
	if ctx.Query("denied") != "" {
		session.ClearHandshake()
		session.Save()
		h.recordLogonFailure(ctx, middlewares.CurrentUser(ctx), "denied", "authorization denied on discogs")
		return redirect(ctx, "/", "error", "login_failed")
	}

	account, linkMode, err := h.completeHandshake(ctx, session)
	if err != nil {
		slog.Warn("Discogs handshake failed", "ip", ctx.IP(), "error", err)
		h.recordLogonFailure(ctx, middlewares.CurrentUser(ctx), "handshake_failed", err.Error())
		return redirect(ctx, "/", "error", "login_failed")
	}

	if current := middlewares.CurrentUser(ctx); linkMode && current != nil {
		return h.linkConnection(ctx, current, account)
	}

	user, created, err := h.userService.SignInWithDiscogs(ctx.Context(), *account)
	if err != nil {
		slog.Error("Discogs sign in failed", "discogsUser", account.Username, "error", err)
		h.recordLogonFailure(ctx, nil, "sign_in_failed", err.Error())
		return redirect(ctx, "/", "error", "login_failed")
	}
	if user.IsBanned() {
		h.recordLogonFailure(ctx, user, "banned", "account is banned")
		return forceLogout(ctx, "banned")
	}

	if err := sessions.Reset(ctx, sessions.SessionData{
		IP:        ctx.IP(),
		UserID:    user.ID,
		LoginTime: h.now(),
	}); err != nil {
		return err
	}
	h.auditService.Record(ctx.Context(), ocsf.NewAuthentication(ocsf.AuthenticationParams{
		Common: ocsf.Common{
			ActivityID:  ocsf.AuthLogon,
			Message:     "User signed in with Discogs",
			Actor:       eventActor(user),
			SrcEndpoint: eventEndpoint(ctx),
			RawData: map[string]any{
				"discogsUsername": account.Username,
				"created":         created,
			},
		},
		User:         eventUser(user),
		AuthProtocol: authProtocolDiscogs,
	}))
	return ctx.Redirect("/c/" + user.PublicSlug)
}

func (h *AuthHandler) linkConnection(ctx *fiber.Ctx, user *model.User, account *users.DiscogsAccount) error {
	common := ocsf.Common{
		ActivityID:  ocsf.EntityCreate,
		Message:     "Discogs account linked",
		Actor:       eventActor(user),
		SrcEndpoint: eventEndpoint(ctx),
	}
	resource := &ocsf.Resource{Type: "discogs_connection", Name: account.Username}

	conn, err := h.userService.LinkDiscogsConnection(ctx.Context(), user.ID, *account)
	if err != nil {
		common.Message = "Linking Discogs account failed"
		h.auditService.Record(ctx.Context(), ocsf.NewEntityManagement(ocsf.EntityManagementParams{
			Common:   failure(common, "link_failed", err.Error(), ocsf.SeverityLow),
			Resource: resource,
		}))
		if errors.Is(err, users.ErrConnectionLinked) {
			return redirect(ctx, "/", "error", "already_linked")
		}
		return err
	}
	resource.UID = uintString(conn.ID)
	h.auditService.Record(ctx.Context(), ocsf.NewEntityManagement(ocsf.EntityManagementParams{
		Common:   common,
		Resource: resource,
	}))
	return ctx.Redirect("/c/" + user.PublicSlug)
}

func (h *AuthHandler) PostLogout(ctx *fiber.Ctx) error {
	if user := middlewares.CurrentUser(ctx); user != nil {
		h.auditService.Record(ctx.Context(), ocsf.NewAuthentication(ocsf.AuthenticationParams{
			Common: ocsf.Common{
				ActivityID:  ocsf.AuthLogoff,
				Message:     "User signed out",
				Actor:       eventActor(user),
				SrcEndpoint: eventEndpoint(ctx),
			},
			User:         eventUser(user),
			AuthProtocol: authProtocolDiscogs,
		}))
	}
	if err := sessions.Destroy(ctx); err != nil {
		return err
	}
	return ctx.Redirect("/")
}

func NewAuthHandler(userService UserService, discogsAuth DiscogsAuth, auditService AuditService) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		discogsAuth:  discogsAuth,
		auditService: auditService,
		now:          time.Now,
	}
}
