package sessions

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/davesrecords/davesrecords/params"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookieName = "test_session"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(New(Config{
		Storage:        memory.New(),
		SessionMaxAge:  time.Hour,
		CookieHttpOnly: true,
		CookieName:     testCookieName,
	}))
	app.Post("/login/:id", func(ctx *fiber.Ctx) error {
		id, _ := strconv.Atoi(ctx.Params("id"))
		return Reset(ctx, SessionData{IP: ctx.IP(), UserID: uint(id), LoginTime: time.Now()})
	})
	app.Get("/whoami", func(ctx *fiber.Ctx) error {
		return ctx.SendString(strconv.FormatUint(uint64(Get(ctx).UserID), 10))
	})
	app.Post("/logout", func(ctx *fiber.Ctx) error {
		return Destroy(ctx)
	})
	return app
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", testCookieName)
	return nil
}

func whoami(t *testing.T, app *fiber.App, cookie *http.Cookie) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestSessionPersistsAcrossRequests(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login/7", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)
	assert.True(t, cookie.HttpOnly)

	assert.Equal(t, "7", whoami(t, app, cookie))
	assert.Equal(t, "0", whoami(t, app, nil))
}

func TestSessionDestroy(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login/7", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	_, err = app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "0", whoami(t, app, cookie))
}

func TestPendingHandshake(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	data := SessionData{
		OAuthRequestToken:  "rt",
		OAuthRequestSecret: "rs",
		OAuthRequestTime:   start,
		LinkMode:           true,
	}

	assert.True(t, data.HasPendingHandshake("rt", start.Add(time.Minute)))
	assert.False(t, data.HasPendingHandshake("other", start.Add(time.Minute)))
	assert.False(t, data.HasPendingHandshake("rt", start.Add(params.OAuthRequestTokenExpiration+time.Second)))

	data.ClearHandshake()
	assert.False(t, data.HasPendingHandshake("", start))
	assert.False(t, data.LinkMode)
	assert.Empty(t, data.OAuthRequestSecret)
}
