package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/davesrecords/davesrecords/internal/audit"
	"github.com/davesrecords/davesrecords/internal/collection"
	"github.com/davesrecords/davesrecords/internal/discogs"
	"github.com/davesrecords/davesrecords/internal/middlewares"
	"github.com/davesrecords/davesrecords/internal/middlewares/sessions"
	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/internal/users"
	"github.com/davesrecords/davesrecords/model"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu       sync.Mutex
	users    map[uint]*model.User
	accounts map[uint64]uint // discogs user id -> user id
	nextID   uint
	taken    map[string]bool
}

func newFakeUsers(list ...*model.User) *fakeUsers {
	f := &fakeUsers{users: map[uint]*model.User{}, accounts: map[uint64]uint{}, nextID: 100, taken: map[string]bool{}}
	for _, u := range list {
		f.users[u.ID] = u
		for _, c := range u.Connections {
			f.accounts[c.DiscogsUserID] = u.ID
		}
	}
	return f
}

func (f *fakeUsers) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		c := *u
		return &c, nil
	}
	return nil, users.ErrUserNotFound
}

func (f *fakeUsers) SignInWithDiscogs(ctx context.Context, account users.DiscogsAccount) (*model.User, bool, error) {
	f.mu.Lock()
	if id, ok := f.accounts[account.DiscogsUserID]; ok {
		f.mu.Unlock()
		user, err := f.GetUserByID(ctx, id)
		return user, false, err
	}
	f.nextID++
	user := &model.User{
		ID:         f.nextID,
		PublicSlug: users.Slugify(account.Username),
		Role:       model.RoleUser,
		Status:     model.StatusActive,
		Connections: []model.DiscogsConnection{{
			ID: f.nextID, UserID: f.nextID, DiscogsUserID: account.DiscogsUserID, Username: account.Username, IsPrimary: true,
		}},
	}
	f.users[user.ID] = user
	f.accounts[account.DiscogsUserID] = user.ID
	f.mu.Unlock()
	return user, true, nil
}

func (f *fakeUsers) LinkDiscogsConnection(ctx context.Context, userID uint, account users.DiscogsAccount) (*model.DiscogsConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if owner, ok := f.accounts[account.DiscogsUserID]; ok && owner != userID {
		return nil, users.ErrConnectionLinked
	}
	f.accounts[account.DiscogsUserID] = userID
	conn := model.DiscogsConnection{ID: uint(account.DiscogsUserID), UserID: userID, DiscogsUserID: account.DiscogsUserID, Username: account.Username}
	f.users[userID].Connections = append(f.users[userID].Connections, conn)
	return &conn, nil
}

func (f *fakeUsers) SetPrimaryConnection(ctx context.Context, userID, connID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	found := false
	for i := range user.Connections {
		if user.Connections[i].ID == connID {
			found = true
		}
	}
	if !found {
		return users.ErrConnectionNotFound
	}
	for i := range user.Connections {
		user.Connections[i].IsPrimary = user.Connections[i].ID == connID
	}
	return nil
}

func (f *fakeUsers) UpdateSettings(ctx context.Context, userID uint, settings users.UserSettings) (*model.User, *model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	before := *user
	if settings.PublicSlug != nil {
		if len(*settings.PublicSlug) < 3 {
			return nil, nil, users.ErrInvalidSlug
		}
		if f.taken[*settings.PublicSlug] {
			return nil, nil, users.ErrSlugTaken
		}
		user.PublicSlug = *settings.PublicSlug
	}
	if settings.DisplayName != nil {
		user.DisplayName = *settings.DisplayName
	}
	if settings.Bio != nil {
		user.Bio = *settings.Bio
	}
	if settings.CollectionPrivate != nil {
		user.CollectionPrivate = *settings.CollectionPrivate
	}
	after := *user
	return &before, &after, nil
}

func (f *fakeUsers) SetStatus(ctx context.Context, userID uint, status model.UserStatus) (*model.User, error) {
	f.mu.Lock()
	f.users[userID].Status = status
	f.mu.Unlock()
	return f.GetUserByID(ctx, userID)
}

func (f *fakeUsers) SetRole(ctx context.Context, userID uint, role model.UserRole) (*model.User, error) {
	f.mu.Lock()
	f.users[userID].Role = role
	f.mu.Unlock()
	return f.GetUserByID(ctx, userID)
}

func (f *fakeUsers) ListUsers(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []*model.User
	for _, u := range f.users {
		list = append(list, u)
	}
	return list, int64(len(list)), nil
}

type fakeCollections struct {
	mu          sync.Mutex
	result      *collection.PageResult
	err         error
	requests    []collection.PageRequest
	invalidated []string
	excluded    map[uint64]bool
}

func (f *fakeCollections) GetCollectionPage(ctx context.Context, req collection.PageRequest) (*collection.PageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func (f *fakeCollections) InvalidateOwner(ctx context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, slug)
	return nil
}

func (f *fakeCollections) ExcludeAlbum(ctx context.Context, userID uint, releaseID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.excluded == nil {
		f.excluded = map[uint64]bool{}
	}
	f.excluded[releaseID] = true
	return nil
}

func (f *fakeCollections) IncludeAlbum(ctx context.Context, userID uint, releaseID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.excluded, releaseID)
	return nil
}

type fakeAudit struct {
	mu       sync.Mutex
	events   []*ocsf.Event
	queryErr error
	filters  []audit.Filter
}

func (f *fakeAudit) Record(ctx context.Context, event *ocsf.Event) audit.WriteResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return audit.WriteResult{ID: uint64(len(f.events))}
}

func (f *fakeAudit) Query(ctx context.Context, filter audit.Filter) (*audit.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &audit.QueryResult{Events: []*model.AuditEvent{}, Offset: filter.Offset, Limit: filter.Limit}, nil
}

func (f *fakeAudit) Stats(ctx context.Context, from, to *time.Time) (*audit.Stats, error) {
	return &audit.Stats{Total: 3, ByClass: map[int]int64{ocsf.ClassAuthentication: 3}}, nil
}

func (f *fakeAudit) EventsForActor(ctx context.Context, userID uint, limit int) ([]*model.AuditEvent, error) {
	return []*model.AuditEvent{{ID: 1, ActorUserID: userID}}, nil
}

func (f *fakeAudit) EventsForTarget(ctx context.Context, userID uint, limit int) ([]*model.AuditEvent, error) {
	return []*model.AuditEvent{}, nil
}

func (f *fakeAudit) last() *ocsf.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[len(f.events)-1]
}

func (f *fakeAudit) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeDiscogs struct {
	requestErr error
	accessErr  error
	profile    discogs.Profile
}

func (f *fakeDiscogs) RequestToken() (string, string, string, error) {
	if f.requestErr != nil {
		return "", "", "", f.requestErr
	}
	return "rt", "rs", "https://discogs.test/oauth/authorize?oauth_token=rt", nil
}

func (f *fakeDiscogs) ParseCallback(req *http.Request) (string, string, error) {
	q := req.URL.Query()
	return q.Get("oauth_token"), q.Get("oauth_verifier"), nil
}

func (f *fakeDiscogs) AccessToken(requestToken, requestSecret, verifier string) (string, string, error) {
	if f.accessErr != nil {
		return "", "", f.accessErr
	}
	if requestSecret != "rs" || verifier == "" {
		return "", "", io.ErrUnexpectedEOF
	}
	return "at", "as", nil
}

func (f *fakeDiscogs) Account(ctx context.Context, accessToken, accessSecret string) (*discogs.Profile, error) {
	p := f.profile
	return &p, nil
}

var testViews = fstest.MapFS{
	"home.html":    {Data: []byte(`home{{ if .user }} {{ .displayName }}{{ end }}{{ if .errorMsg }} error: {{ .errorMsg }}{{ end }}`)},
	"gallery.html": {Data: []byte(`gallery {{ .page.DisplayName }}{{ range .page.Albums }} [{{ .Title }}]{{ end }}{{ if .nextPage }} next={{ .nextPage }}{{ end }}`)},
}

type testEnv struct {
	app         *fiber.App
	auth        *AuthHandler
	users       *fakeUsers
	collections *fakeCollections
	audit       *fakeAudit
	discogs     *fakeDiscogs
}

const testCookie = "test_session"

func newTestEnv(t *testing.T, list ...*model.User) *testEnv {
	t.Helper()
	env := &testEnv{
		users:       newFakeUsers(list...),
		collections: &fakeCollections{},
		audit:       &fakeAudit{},
		discogs:     &fakeDiscogs{profile: discogs.Profile{ID: 5001, Username: "Dave Smith"}},
	}

	app := fiber.New(fiber.Config{
		Views:             html.NewFileSystem(http.FS(testViews), ".html"),
		ErrorHandler:      middlewares.ErrorHandler,
		PassLocalsToViews: true,
	})
	app.Use(sessions.New(sessions.Config{
		Storage:       memory.New(),
		SessionMaxAge: time.Hour,
		CookieName:    testCookie,
	}))
	app.Use(middlewares.ResolveUser(env.users))
	app.Post("/test/login/:id", func(ctx *fiber.Ctx) error {
		id, _ := strconv.Atoi(ctx.Params("id"))
		return sessions.Reset(ctx, sessions.SessionData{UserID: uint(id)})
	})

	var (
		authHandler       = NewAuthHandler(env.users, env.discogs, env.audit)
		collectionHandler = NewCollectionHandler(env.collections)
		accountHandler    = NewAccountHandler(env.users, env.collections, env.audit)
		adminHandler      = NewAdminHandler(env.users, env.collections, env.audit)
	)
	app.Get("/", authHandler.GetHome)
	app.Get("/login/discogs", authHandler.GetLoginDiscogs)
	app.Get("/oauth/discogs/callback", authHandler.GetDiscogsCallback)
	app.Post("/logout", authHandler.PostLogout)
	app.Get("/c/:slug", collectionHandler.GetGallery)
	app.Get("/api/collection/:slug", collectionHandler.GetCollection)

	me := app.Group("/api/me", middlewares.RequireUser)
	me.Put("/settings", accountHandler.PutSettings)
	me.Post("/exclusions", accountHandler.PostExclusion)
	me.Delete("/exclusions/:releaseID", accountHandler.DeleteExclusion)
	me.Put("/connections/:id/primary", accountHandler.PutPrimaryConnection)

	admin := app.Group("/api/admin", adminHandler.RequireAdmin)
	admin.Get("/users", adminHandler.GetUsers)
	admin.Post("/users/:id/ban", adminHandler.PostBan)
	admin.Post("/users/:id/unban", adminHandler.PostUnban)
	admin.Put("/users/:id/role", adminHandler.PutRole)
	admin.Get("/users/:id/audit", adminHandler.GetUserAudit)
	admin.Get("/audit", adminHandler.GetAudit)
	admin.Get("/audit/stats", adminHandler.GetAuditStats)

	env.app = app
	env.auth = authHandler
	return env
}

func setHandlerClock(env *testEnv, now func() time.Time) {
	env.auth.now = now
}

func (env *testEnv) login(t *testing.T, userID uint) *http.Cookie {
	t.Helper()
	resp, err := env.app.Test(httptest.NewRequest(http.MethodPost, "/test/login/"+strconv.Itoa(int(userID)), nil))
	require.NoError(t, err)
	return findCookie(t, resp)
}

func findCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	t.Fatalf("response has no session cookie")
	return nil
}

type testResponse struct {
	*http.Response
	body string
}

func (r testResponse) envelope(t *testing.T) APIResponse {
	t.Helper()
	var out APIResponse
	require.NoError(t, json.Unmarshal([]byte(r.body), &out))
	return out
}

func (env *testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) testResponse {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return testResponse{Response: resp, body: string(data)}
}
