package web

import (
	"net/http"

	"github.com/davesrecords/davesrecords/params"
	"github.com/gofiber/fiber/v2"
)

// Google JSON API style response structures
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type APIResponse struct {
	APIVersion string         `json:"apiVersion"`
	Data       interface{}    `json:"data,omitempty"`
	Error      *ErrorResponse `json:"error,omitempty"`
}

func sendData(ctx *fiber.Ctx, data interface{}) error {
	return ctx.JSON(APIResponse{
		APIVersion: params.APIVersion,
		Data:       data,
	})
}

func sendError(ctx *fiber.Ctx, code int, message string) error {
	return ctx.Status(code).JSON(APIResponse{
		APIVersion: params.APIVersion,
		Error: &ErrorResponse{
			Code:    code,
			Message: message,
			Status:  http.StatusText(code),
		},
	})
}
