package collection

import (
	"context"

	"github.com/davesrecords/davesrecords/internal/ratelimit"
)

type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeForbidden   Outcome = "forbidden"
	OutcomeRateLimited Outcome = "rate_limited"
)

type Album struct {
	ID         uint64   `json:"id"`
	InstanceID uint64   `json:"instanceId,omitempty"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists,omitempty"`
	Year       int      `json:"year,omitempty"`
	Thumb      string   `json:"thumb,omitempty"`
	CoverImage string   `json:"coverImage,omitempty"`
	Formats    []string `json:"formats,omitempty"`
	Labels     []string `json:"labels,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Styles     []string `json:"styles,omitempty"`
	DateAdded  string   `json:"dateAdded,omitempty"`
}

type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	Items   int `json:"items"`
	PerPage int `json:"perPage"`
}

type Connection struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	IsPrimary bool   `json:"isPrimary"`
}

// Page is the assembled collection view. ExcludedIDs and Connections are only
// set on the owner's own view, which is never cached.
type Page struct {
	Slug           string       `json:"slug"`
	DisplayName    string       `json:"displayName"`
	Bio            string       `json:"bio,omitempty"`
	Picture        string       `json:"picture,omitempty"`
	Albums         []Album      `json:"albums"`
	Pagination     Pagination   `json:"pagination"`
	ConnectionID   uint         `json:"connectionId,omitempty"`
	ConnectionName string       `json:"connectionName,omitempty"`
	ExcludedIDs    []uint64     `json:"excludedIds,omitempty"`
	Connections    []Connection `json:"connections,omitempty"`
}

type PageRequest struct {
	Slug         string
	Page         int
	ConnectionID uint // zero selects the primary connection
	RequesterID  uint // zero for anonymous requests
	ClientIP     string
}

type PageResult struct {
	Outcome   Outcome
	Page      *Page
	FromCache bool
	OwnView   bool
	RateLimit ratelimit.Result
}

type FetchRequest struct {
	OwnerID         uint
	Page            int
	PageSize        int
	IncludeExcluded bool
	ConnectionID    uint
}

type FetchResult struct {
	Albums         []Album
	Pagination     Pagination
	ExcludedIDs    []uint64
	ConnectionID   uint
	ConnectionName string
}

// Source fetches one page of an owner's collection from upstream.
type Source interface {
	FetchPage(ctx context.Context, req FetchRequest) (*FetchResult, error)
}
