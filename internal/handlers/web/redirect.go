package web

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/davesrecords/davesrecords/internal/middlewares/sessions"
	"github.com/gofiber/fiber/v2"
)

func redirect(ctx *fiber.Ctx, location string, values ...any) error {
	url, err := url.Parse(location)
	if err != nil {
		return err
	}

	query := url.Query()
	for i := 0; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			slog.Error("invalid query parameter", "key", i)
			continue
		}
		if v := values[i+1]; v != nil {
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			query.Set(key, fmt.Sprint(values[i+1]))
		}
	}

	url.RawQuery = query.Encode()
	return ctx.Redirect(url.String())
}

func forceLogout(ctx *fiber.Ctx, errCode string) error {
	if err := sessions.Destroy(ctx); err != nil {
		slog.Error("Could not destroy session", "error", err)
	}
	return redirect(ctx, "/", "error", errCode)
}
