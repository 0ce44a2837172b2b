package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"path"

	"github.com/davesrecords/davesrecords/internal/middlewares/sessions"
	"github.com/gofiber/fiber/v2"
)

const (
	HeaderName    = "X-CSRF-Token"
	FormFieldName = "_csrf"
	LocalsKey     = "csrfToken"
)

var ErrInvalidToken = fiber.NewError(fiber.StatusForbidden, "invalid CSRF token")

func randomToken() string {
	const tokenLength = 32
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate CSRF token: " + err.Error())
	}
	return hex.EncodeToString(b)
}

func isSafeMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	}
	return false
}

// Verify reports whether the request carries the session's token.
func Verify(ctx *fiber.Ctx, session *sessions.Session) bool {
	token := ctx.Get(HeaderName)
	if token == "" && ctx.Method() == fiber.MethodPost {
		token = ctx.FormValue(FormFieldName)
	}
	if token == "" || session.CSRFToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(session.CSRFToken)) == 1
}

type Config struct {
	ExcludePaths []string
}

// New issues a token to signed in sessions and rejects their unsafe requests
// without it. Anonymous sessions have nothing to protect and pass through.
func New(config Config) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		for _, p := range config.ExcludePaths {
			if ok, _ := path.Match(p, ctx.Path()); ok {
				return ctx.Next()
			}
		}
		session := sessions.Get(ctx)
		if session == nil || !session.IsLoggedIn() {
			return ctx.Next()
		}
		if !isSafeMethod(ctx.Method()) && !Verify(ctx, session) {
			return ErrInvalidToken
		}
		if session.CSRFToken == "" {
			session.CSRFToken = randomToken()
			session.Save()
		}
		ctx.Locals(LocalsKey, session.CSRFToken)
		return ctx.Next()
	}
}
