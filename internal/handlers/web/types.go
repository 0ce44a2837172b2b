package web

import (
	"context"
	"net/http"
	"time"

	"github.com/davesrecords/davesrecords/internal/audit"
	"github.com/davesrecords/davesrecords/internal/collection"
	"github.com/davesrecords/davesrecords/internal/discogs"
	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/internal/users"
	"github.com/davesrecords/davesrecords/model"
)

type UserService interface {
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
	SignInWithDiscogs(ctx context.Context, account users.DiscogsAccount) (*model.User, bool, error)
	LinkDiscogsConnection(ctx context.Context, userID uint, account users.DiscogsAccount) (*model.DiscogsConnection, error)
	SetPrimaryConnection(ctx context.Context, userID, connID uint) error
	UpdateSettings(ctx context.Context, userID uint, settings users.UserSettings) (*model.User, *model.User, error)
	SetStatus(ctx context.Context, userID uint, status model.UserStatus) (*model.User, error)
	SetRole(ctx context.Context, userID uint, role model.UserRole) (*model.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*model.User, int64, error)
}

type CollectionService interface {
	GetCollectionPage(ctx context.Context, req collection.PageRequest) (*collection.PageResult, error)
	InvalidateOwner(ctx context.Context, slug string) error
	ExcludeAlbum(ctx context.Context, userID uint, releaseID uint64) error
	IncludeAlbum(ctx context.Context, userID uint, releaseID uint64) error
}

type AuditService interface {
	Record(ctx context.Context, event *ocsf.Event) audit.WriteResult
	Query(ctx context.Context, filter audit.Filter) (*audit.QueryResult, error)
	Stats(ctx context.Context, from, to *time.Time) (*audit.Stats, error)
	EventsForActor(ctx context.Context, userID uint, limit int) ([]*model.AuditEvent, error)
	EventsForTarget(ctx context.Context, userID uint, limit int) ([]*model.AuditEvent, error)
}

// DiscogsAuth performs the Discogs OAuth 1.0a handshake.
type DiscogsAuth interface {
	RequestToken() (token, secret, authorizeURL string, err error)
	ParseCallback(req *http.Request) (token, verifier string, err error)
	AccessToken(requestToken, requestSecret, verifier string) (token, secret string, err error)
	Account(ctx context.Context, accessToken, accessSecret string) (*discogs.Profile, error)
}
