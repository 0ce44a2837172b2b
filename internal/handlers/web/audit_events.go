package web

import (
	"strconv"

	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/model"
	"github.com/davesrecords/davesrecords/params"
	"github.com/gofiber/fiber/v2"
)

const authProtocolDiscogs = "OAuth 1.0a"

func eventUser(user *model.User) *ocsf.User {
	if user == nil {
		return nil
	}
	return &ocsf.User{
		UID:  user.ID,
		Name: user.PublicName(),
		Role: string(user.Role),
	}
}

func eventActor(user *model.User) *ocsf.Actor {
	if user == nil {
		return nil
	}
	return &ocsf.Actor{User: *eventUser(user)}
}

func eventEndpoint(ctx *fiber.Ctx) *ocsf.Endpoint {
	return &ocsf.Endpoint{
		IP:        ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
	}
}

func eventAPI(ctx *fiber.Ctx) *ocsf.API {
	operation := ctx.Method() + " " + ctx.Path()
	if route := ctx.Route(); route != nil && route.Path != "" {
		operation = ctx.Method() + " " + route.Path
	}
	return &ocsf.API{
		Operation: operation,
		Service:   params.ProductName,
		RequestID: ctx.Get(fiber.HeaderXRequestID),
	}
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// failure marks common as a failed action with the given detail.
func failure(common ocsf.Common, code, detail string, severityID int) ocsf.Common {
	common.StatusID = ocsf.Status(ocsf.StatusFailure)
	common.StatusCode = code
	common.StatusDetail = detail
	common.SeverityID = ocsf.Severity(severityID)
	return common
}
