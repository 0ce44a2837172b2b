package web

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davesrecords/davesrecords/internal/audit"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
)

var errInvalidParam = errors.New("invalid parameter")

func parseUintParam(ctx *fiber.Ctx, name string) (uint, error) {
	value, err := cast.ToUintE(ctx.Params(name))
	if err != nil || value == 0 {
		return 0, fmt.Errorf("%w: %s", errInvalidParam, name)
	}
	return value, nil
}

func parseReleaseID(value interface{}) (uint64, error) {
	id, err := cast.ToUint64E(value)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: release id", errInvalidParam)
	}
	return id, nil
}

func queryIntPtr(ctx *fiber.Ctx, name string) (*int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, err := cast.ToIntE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidParam, name)
	}
	return &value, nil
}

func queryUintPtr(ctx *fiber.Ctx, name string) (*uint, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, err := cast.ToUintE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidParam, name)
	}
	return &value, nil
}

func queryTimePtr(ctx *fiber.Ctx, name string) (*time.Time, error) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return nil, nil
	}
	value, err := cast.ToTimeE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidParam, name)
	}
	return &value, nil
}

func queryInt(ctx *fiber.Ctx, name string) (int, error) {
	value, err := queryIntPtr(ctx, name)
	if err != nil || value == nil {
		return 0, err
	}
	return *value, nil
}

// parseAuditFilter reads an audit.Filter from the query string.
func parseAuditFilter(ctx *fiber.Ctx) (audit.Filter, error) {
	var (
		filter audit.Filter
		err    error
	)
	intFields := []struct {
		name string
		dst  **int
	}{
		{"class_uid", &filter.ClassUID},
		{"category_uid", &filter.CategoryUID},
		{"activity_id", &filter.ActivityID},
		{"severity_id", &filter.SeverityID},
		{"status_id", &filter.StatusID},
	}
	for _, f := range intFields {
		if *f.dst, err = queryIntPtr(ctx, f.name); err != nil {
			return filter, err
		}
	}
	if filter.ActorUserID, err = queryUintPtr(ctx, "actor_user_id"); err != nil {
		return filter, err
	}
	if filter.TargetUserID, err = queryUintPtr(ctx, "target_user_id"); err != nil {
		return filter, err
	}
	if filter.From, err = queryTimePtr(ctx, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryTimePtr(ctx, "to"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(ctx, "offset"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(ctx, "limit"); err != nil {
		return filter, err
	}
	filter.ResourceType = ctx.Query("resource_type")
	filter.ResourceID = ctx.Query("resource_id")
	return filter, nil
}
