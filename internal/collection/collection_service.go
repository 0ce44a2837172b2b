package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/davesrecords/davesrecords/internal/metrics"
	"github.com/davesrecords/davesrecords/internal/ratelimit"
	"github.com/davesrecords/davesrecords/internal/store"
	"github.com/davesrecords/davesrecords/internal/users"
	"github.com/davesrecords/davesrecords/model"
	"github.com/davesrecords/davesrecords/params"
)

type UserService interface {
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
	GetUserBySlug(ctx context.Context, slug string) (*model.User, error)
}

type CollectionService struct {
	userService UserService
	exclusions  ExclusionRepository
	source      Source
	cache       store.Store[Page]
	limiter     ratelimit.Limiter
	pageSize    int
	cacheTTL    time.Duration
}

// CacheKey returns the cache key of a public page relative to the collection key prefix.
func CacheKey(slug string, page int, connectionID uint) string {
	conn := "primary"
	if connectionID != 0 {
		conn = strconv.FormatUint(uint64(connectionID), 10)
	}
	return slug + ":" + strconv.Itoa(page) + ":" + conn
}

func (s *CollectionService) finish(outcome Outcome, result *PageResult) (*PageResult, error) {
	metrics.CollectionReads.WithLabelValues(string(outcome)).Inc()
	result.Outcome = outcome
	return result, nil
}

// GetCollectionPage serves one page of the collection published under req.Slug.
// NotFound, Forbidden and RateLimited are reported through PageResult.Outcome;
// store and upstream failures are returned as errors.
func (s *CollectionService) GetCollectionPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	result := &PageResult{}

	limit, err := s.limiter.Allow(ctx, req.ClientIP)
	if err != nil {
		slog.Warn("Rate limiter unavailable, allowing request", "ip", req.ClientIP, "error", err)
	} else {
		result.RateLimit = limit
		if !limit.Allowed {
			metrics.RateLimited.Inc()
			return s.finish(OutcomeRateLimited, result)
		}
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Page > params.CollectionMaxPage {
		req.Page = params.CollectionMaxPage
	}

	owner, err := s.userService.GetUserBySlug(ctx, req.Slug)
	if errors.Is(err, users.ErrUserNotFound) {
		return s.finish(OutcomeNotFound, result)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve collection %q: %w", req.Slug, err)
	}
	if owner.IsBanned() {
		return s.finish(OutcomeNotFound, result)
	}

	ownView := req.RequesterID != 0 && req.RequesterID == owner.ID
	result.OwnView = ownView
	if owner.CollectionPrivate && !ownView {
		return s.finish(OutcomeForbidden, result)
	}

	connectionID := secondaryConnection(owner, req.ConnectionID)
	key := CacheKey(owner.PublicSlug, req.Page, connectionID)
	if !ownView {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			metrics.CollectionCache.WithLabelValues("hit").Inc()
			result.Page = &cached
			result.FromCache = true
			return s.finish(OutcomeOK, result)
		}
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Failed to read collection cache", "key", key, "error", err)
		}
		metrics.CollectionCache.WithLabelValues("miss").Inc()
	} else {
		metrics.CollectionCache.WithLabelValues("bypass").Inc()
	}

	fetched, err := s.source.FetchPage(ctx, FetchRequest{
		OwnerID:         owner.ID,
		Page:            req.Page,
		PageSize:        s.pageSize,
		IncludeExcluded: ownView,
		ConnectionID:    connectionID,
	})
	if err != nil {
		return nil, err
	}

	page := assemblePage(owner, fetched, ownView)
	if !ownView && !pastLastPage(fetched.Pagination) {
		if err := s.cache.Set(ctx, key, *page, s.cacheTTL); err != nil {
			slog.Warn("Failed to write collection cache", "key", key, "error", err)
		}
	}
	result.Page = page
	return s.finish(OutcomeOK, result)
}

// secondaryConnection returns requestedID when it names a non-primary
// connection of owner and zero otherwise, so every read served by the primary
// connection shares one cache key.
func secondaryConnection(owner *model.User, requestedID uint) uint {
	for _, conn := range owner.Connections {
		if conn.ID == requestedID && !conn.IsPrimary {
			return conn.ID
		}
	}
	return 0
}

func pastLastPage(p Pagination) bool {
	return p.Page > max(p.Pages, 1)
}

func assemblePage(owner *model.User, fetched *FetchResult, ownView bool) *Page {
	albums := fetched.Albums
	if albums == nil {
		albums = []Album{}
	}
	page := &Page{
		Slug:           owner.PublicSlug,
		DisplayName:    owner.PublicName(),
		Bio:            owner.Bio,
		Picture:        owner.Picture,
		Albums:         albums,
		Pagination:     fetched.Pagination,
		ConnectionID:   fetched.ConnectionID,
		ConnectionName: fetched.ConnectionName,
	}
	if ownView {
		page.ExcludedIDs = append([]uint64{}, fetched.ExcludedIDs...)
		for _, conn := range owner.Connections {
			page.Connections = append(page.Connections, Connection{
				ID:        conn.ID,
				Username:  conn.Username,
				AvatarURL: conn.AvatarURL,
				IsPrimary: conn.IsPrimary,
			})
		}
	}
	return page
}

// InvalidateOwner drops every cached page of the collection published under slug.
func (s *CollectionService) InvalidateOwner(ctx context.Context, slug string) error {
	deleted, err := s.cache.DeleteByPrefix(ctx, slug+":")
	if err != nil {
		return fmt.Errorf("invalidate collection %q: %w", slug, err)
	}
	metrics.CollectionInvalidatedKeys.Add(float64(deleted))
	slog.Debug("Invalidated collection cache", "slug", slug, "keys", deleted)
	return nil
}

// ExcludeAlbum hides releaseID from the public gallery of userID.
func (s *CollectionService) ExcludeAlbum(ctx context.Context, userID uint, releaseID uint64) error {
	return s.mutateExclusions(ctx, userID, releaseID, s.exclusions.Add)
}

// IncludeAlbum shows a previously excluded release again.
func (s *CollectionService) IncludeAlbum(ctx context.Context, userID uint, releaseID uint64) error {
	return s.mutateExclusions(ctx, userID, releaseID, s.exclusions.Remove)
}

func (s *CollectionService) mutateExclusions(ctx context.Context, userID uint, releaseID uint64, mutate func(context.Context, uint, uint64) error) error {
	if releaseID == 0 {
		return ErrInvalidRelease
	}
	owner, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := mutate(ctx, userID, releaseID); err != nil {
		return fmt.Errorf("update exclusions of user %d: %w", userID, err)
	}
	return s.InvalidateOwner(ctx, owner.PublicSlug)
}

func (s *CollectionService) ExcludedReleaseIDs(ctx context.Context, userID uint) ([]uint64, error) {
	return s.exclusions.ListReleaseIDs(ctx, userID)
}

type Options struct {
	PageSize     int
	CacheTTL     time.Duration
	CacheEnabled bool
}

func NewCollectionService(userService UserService, exclusions ExclusionRepository, source Source, cache store.Cache, limiter ratelimit.Limiter, opts Options) *CollectionService {
	if opts.PageSize <= 0 || opts.PageSize > params.CollectionMaxPageSize {
		opts.PageSize = params.CollectionDefaultPageSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = params.CollectionCacheTTL
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &CollectionService{
		userService: userService,
		exclusions:  exclusions,
		source:      source,
		cache:       store.New[Page](cache, params.CollectionCacheKeyPrefix, store.WithDisabled(!opts.CacheEnabled)),
		limiter:     limiter,
		pageSize:    opts.PageSize,
		cacheTTL:    opts.CacheTTL,
	}
}
