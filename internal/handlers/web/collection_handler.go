package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/davesrecords/davesrecords/internal/collection"
	"github.com/davesrecords/davesrecords/internal/middlewares"
	"github.com/davesrecords/davesrecords/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
)

var timeNow = time.Now

// CollectionHandler serves public gallery pages and their JSON counterpart
type CollectionHandler struct {
	collectionService CollectionService
}

func pageRequest(ctx *fiber.Ctx) collection.PageRequest {
	req := collection.PageRequest{
		Slug:         ctx.Params("slug"),
		Page:         cast.ToInt(ctx.Query("page", "1")),
		ConnectionID: cast.ToUint(ctx.Query("connection")),
		ClientIP:     ctx.IP(),
	}
	if user := middlewares.CurrentUser(ctx); user != nil {
		req.RequesterID = user.ID
	}
	return req
}

func setRateLimitHeaders(ctx *fiber.Ctx, limit ratelimit.Result) {
	if limit.Limit <= 0 {
		return
	}
	ctx.Set("X-RateLimit-Limit", strconv.Itoa(limit.Limit))
	ctx.Set("X-RateLimit-Remaining", strconv.Itoa(limit.Remaining))
	if !limit.ResetAt.IsZero() {
		ctx.Set("X-RateLimit-Reset", strconv.FormatInt(limit.ResetAt.Unix(), 10))
	}
}

func (h *CollectionHandler) getPage(ctx *fiber.Ctx) (*collection.PageResult, error) {
	result, err := h.collectionService.GetCollectionPage(ctx.Context(), pageRequest(ctx))
	if err != nil {
		if errors.Is(err, collection.ErrUpstream) {
			return nil, fiber.NewError(fiber.StatusBadGateway, MsgDiscogsUnavailable)
		}
		return nil, err
	}
	setRateLimitHeaders(ctx, result.RateLimit)
	if result.Outcome == collection.OutcomeRateLimited && !result.RateLimit.ResetAt.IsZero() {
		retryAfter := int(result.RateLimit.ResetAt.Sub(timeNow()).Seconds()) + 1
		if retryAfter < 1 {
			retryAfter = 1
		}
		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	}
	if result.FromCache {
		ctx.Set("X-Cache", "HIT")
	} else {
		ctx.Set("X-Cache", "MISS")
	}
	return result, nil
}

func outcomeError(outcome collection.Outcome) error {
	switch outcome {
	case collection.OutcomeNotFound:
		return fiber.NewError(fiber.StatusNotFound, MsgCollectionNotFound)
	case collection.OutcomeForbidden:
		return fiber.NewError(fiber.StatusForbidden, MsgCollectionPrivate)
	case collection.OutcomeRateLimited:
		return fiber.NewError(fiber.StatusTooManyRequests, MsgTooManyRequests)
	}
	return nil
}

// GetGallery renders the gallery page of a collection.
func (h *CollectionHandler) GetGallery(ctx *fiber.Ctx) error {
	result, err := h.getPage(ctx)
	if err != nil {
		return err
	}
	if err := outcomeError(result.Outcome); err != nil {
		return err
	}

	page := result.Page
	vars := fiber.Map{
		"page":    page,
		"ownView": result.OwnView,
		"user":    middlewares.CurrentUser(ctx),
	}
	if page.Pagination.Page > 1 {
		vars["prevPage"] = page.Pagination.Page - 1
	}
	if page.Pagination.Page < page.Pagination.Pages {
		vars["nextPage"] = page.Pagination.Page + 1
	}
	if result.OwnView {
		excluded := make(map[uint64]bool, len(page.ExcludedIDs))
		for _, id := range page.ExcludedIDs {
			excluded[id] = true
		}
		vars["excluded"] = excluded
	}
	return ctx.Render("gallery", vars)
}

// GetCollection returns a collection page as JSON.
func (h *CollectionHandler) GetCollection(ctx *fiber.Ctx) error {
	result, err := h.getPage(ctx)
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return sendError(ctx, fe.Code, fe.Message)
		}
		return err
	}
	if err := outcomeError(result.Outcome); err != nil {
		fe := err.(*fiber.Error)
		return sendError(ctx, fe.Code, fe.Message)
	}
	return sendData(ctx, result.Page)
}

func NewCollectionHandler(collectionService CollectionService) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService}
}
