package sessions

import (
	"crypto/rand"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/davesrecords/davesrecords/params"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	sessionContextKey = "session"
	sessionDataKey    = "data"
)

func init() {
	gob.Register(SessionData{})
}

type SessionData struct {
	IP                 string    // client ip address
	UserID             uint      // signed in user id
	LoginTime          time.Time // last login time
	LastSeen           time.Time // last request time
	OAuthRequestToken  string    // pending discogs request token
	OAuthRequestSecret string    // pending discogs request token secret
	OAuthRequestTime   time.Time // start of the pending handshake
	LinkMode           bool      // pending handshake links a secondary connection
	CSRFToken          string    // token required on state changing requests
}

func (s *SessionData) IsLoggedIn() bool {
	return s.UserID != 0
}

// HasPendingHandshake reports whether the session holds an unexpired
// request token for token.
func (s *SessionData) HasPendingHandshake(token string, now time.Time) bool {
	if s.OAuthRequestToken == "" || s.OAuthRequestToken != token {
		return false
	}
	return now.Sub(s.OAuthRequestTime) <= params.OAuthRequestTokenExpiration
}

func (s *SessionData) ClearHandshake() {
	s.OAuthRequestToken = ""
	s.OAuthRequestSecret = ""
	s.OAuthRequestTime = time.Time{}
	s.LinkMode = false
}

type Session struct {
	*session.Session
	SessionData
}

func (s *Session) Save(data ...SessionData) {
	if len(data) > 0 {
		s.SessionData = data[0]
	}
	s.Set(sessionDataKey, s.SessionData)
}

// Reset rotates the session id and replaces the session data.
func (s *Session) Reset(data ...SessionData) error {
	if err := s.Session.Reset(); err != nil {
		return err
	}
	s.SessionData = SessionData{}
	if len(data) > 0 {
		s.SessionData = data[0]
	}
	s.Set(sessionDataKey, s.SessionData)
	return nil
}

func (s *Session) Destroy() error {
	s.SessionData = SessionData{}
	return s.Session.Destroy()
}

func newSession(sess *session.Session) *Session {
	data, _ := sess.Get(sessionDataKey).(SessionData)
	return &Session{
		Session:     sess,
		SessionData: data,
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Could not generate session id", "error", err)
		return ""
	}
	return hex.EncodeToString(b)
}

func Get(ctx *fiber.Ctx) *Session {
	sess, _ := ctx.Locals(sessionContextKey).(*Session)
	return sess
}

func Destroy(ctx *fiber.Ctx) error {
	sess := Get(ctx)
	if sess == nil {
		return nil
	}
	return sess.Destroy()
}

func Reset(ctx *fiber.Ctx, data SessionData) error {
	sess := Get(ctx)
	if sess == nil {
		return fmt.Errorf("session middleware is not installed")
	}
	return sess.Reset(data)
}

type Config struct {
	Storage        fiber.Storage
	SessionMaxAge  time.Duration
	CookieSecure   bool
	CookieHttpOnly bool
	CookieName     string
}

func New(config Config) fiber.Handler {
	store := session.New(session.Config{
		Storage:        config.Storage,
		Expiration:     config.SessionMaxAge,
		CookieSecure:   config.CookieSecure,
		CookieHTTPOnly: config.CookieHttpOnly,
		CookieSameSite: "Lax",
		KeyLookup:      fmt.Sprintf("cookie:%s", config.CookieName),
		KeyGenerator:   generateSessionID,
	})

	return func(ctx *fiber.Ctx) error {
		sess, err := store.Get(ctx)
		if err != nil {
			return err
		}

		session := newSession(sess)
		ctx.Locals(sessionContextKey, session)
		if err := ctx.Next(); err != nil {
			return err
		}

		if len(session.Keys()) > 0 {
			if data := session.SessionData; data != (SessionData{}) {
				data.LastSeen = time.Now()
				sess.Set(sessionDataKey, data)
			}
			return sess.Save()
		}
		return nil
	}
}
