package middlewares

import (
	"context"
	"errors"
	"log/slog"

	"github.com/davesrecords/davesrecords/internal/middlewares/sessions"
	"github.com/davesrecords/davesrecords/internal/users"
	"github.com/davesrecords/davesrecords/model"
	"github.com/gofiber/fiber/v2"
)

const currentUserKey = "currentUser"

type UserLoader interface {
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
}

// ResolveUser loads the signed in user of the session into the request
// locals. Sessions of banned or deleted users are destroyed.
func ResolveUser(loader UserLoader) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		session := sessions.Get(ctx)
		if session == nil || !session.IsLoggedIn() {
			return ctx.Next()
		}

		user, err := loader.GetUserByID(ctx.Context(), session.UserID)
		if errors.Is(err, users.ErrUserNotFound) || (err == nil && user.IsBanned()) {
			slog.Info("Dropping session of inactive user", "userID", session.UserID)
			if err := session.Destroy(); err != nil {
				return err
			}
			return ctx.Next()
		}
		if err != nil {
			return err
		}
		ctx.Locals(currentUserKey, user)
		return ctx.Next()
	}
}

// CurrentUser returns the signed in user, nil for anonymous requests.
func CurrentUser(ctx *fiber.Ctx) *model.User {
	user, _ := ctx.Locals(currentUserKey).(*model.User)
	return user
}

// RequireUser rejects anonymous requests.
func RequireUser(ctx *fiber.Ctx) error {
	if CurrentUser(ctx) == nil {
		return fiber.ErrUnauthorized
	}
	return ctx.Next()
}
