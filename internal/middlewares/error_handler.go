package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/davesrecords/davesrecords/internal/render"
	"github.com/davesrecords/davesrecords/params"
	"github.com/gofiber/fiber/v2"
)

func isAPIRequest(ctx *fiber.Ctx) bool {
	return strings.HasPrefix(ctx.Path(), "/api/")
}

func renderJSONError(ctx *fiber.Ctx, code int, message string) error {
	return ctx.Status(code).JSON(fiber.Map{
		"apiVersion": params.APIVersion,
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  http.StatusText(code),
		},
	})
}

// ErrorHandler renders unhandled handler errors. Internal error details are
// logged and never returned to the client.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := http.StatusText(code)
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("Unhandled error", "path", ctx.Path(), "code", code, "error", err)
		message = http.StatusText(code)
	}

	if isAPIRequest(ctx) {
		return renderJSONError(ctx, code, message)
	}
	switch code {
	case fiber.StatusBadRequest:
		return render.RenderBadRequestErrorPage(ctx)
	case fiber.StatusForbidden:
		return render.RenderForbiddenErrorPage(ctx)
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return render.RenderNotFoundErrorPage(ctx)
	case fiber.StatusTooManyRequests:
		return render.RenderTooManyRequestsPage(ctx)
	case fiber.StatusBadGateway:
		return render.RenderUnavailablePage(ctx)
	default:
		return render.RenderInternalServerErrorPage(ctx)
	}
}
