package render

import (
	"github.com/gofiber/fiber/v2"
)

func renderErrorPage(ctx *fiber.Ctx, code int, title, message string) error {
	body, err := RenderHTML("error", fiber.Map{
		"code":    code,
		"title":   title,
		"message": message,
	})
	if err != nil {
		return err
	}
	ctx.Set("Content-Type", "text/html; charset=utf-8")
	return ctx.Status(code).SendString(body)
}

func RenderInternalServerErrorPage(ctx *fiber.Ctx) error {
	return renderErrorPage(ctx, fiber.StatusInternalServerError, "Something went wrong", "Please try again in a moment.")
}

func RenderNotFoundErrorPage(ctx *fiber.Ctx) error {
	return renderErrorPage(ctx, fiber.StatusNotFound, "Not found", "There is no record collection here.")
}

func RenderForbiddenErrorPage(ctx *fiber.Ctx) error {
	return renderErrorPage(ctx, fiber.StatusForbidden, "Private collection", "The owner keeps this collection private.")
}

func RenderBadRequestErrorPage(ctx *fiber.Ctx) error {
	return renderErrorPage(ctx, fiber.StatusBadRequest, "Bad request", "The request could not be understood.")
}

func RenderTooManyRequestsPage(ctx *fiber.Ctx) error {
	return renderErrorPage(ctx, fiber.StatusTooManyRequests, "Slow down", "Too many requests, try again shortly.")
}

func RenderUnavailablePage(ctx *fiber.Ctx) error {
	return renderErrorPage(ctx, fiber.StatusBadGateway, "Discogs is unavailable", "The collection could not be loaded from Discogs.")
}
