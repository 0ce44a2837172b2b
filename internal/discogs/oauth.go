package discogs

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
)

type OAuthConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
	APIURL         string
	AuthorizeURL   string
	UserAgent      string
	Timeout        time.Duration
}

// OAuth performs the Discogs OAuth 1.0a handshake and builds signed API clients.
type OAuth struct {
	config    *oauth1.Config
	apiURL    string
	userAgent string
	timeout   time.Duration
}

// RequestToken obtains a temporary request token and the URL the user must visit to authorize it.
func (o *OAuth) RequestToken() (token, secret, authorizeURL string, err error) {
	token, secret, err = o.config.RequestToken()
	if err != nil {
		return "", "", "", err
	}
	u, err := o.config.AuthorizationURL(token)
	if err != nil {
		return "", "", "", err
	}
	return token, secret, u.String(), nil
}

// ParseCallback extracts the request token and verifier from the authorization redirect.
func (o *OAuth) ParseCallback(req *http.Request) (token, verifier string, err error) {
	return oauth1.ParseAuthorizationCallback(req)
}

func (o *OAuth) AccessToken(requestToken, requestSecret, verifier string) (token, secret string, err error) {
	return o.config.AccessToken(requestToken, requestSecret, verifier)
}

// Client returns an API client signing requests with the given access token.
func (o *OAuth) Client(ctx context.Context, accessToken, accessSecret string) *Client {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, &http.Client{Timeout: o.timeout})
	httpClient := o.config.Client(ctx, oauth1.NewToken(accessToken, accessSecret))
	return NewClient(o.apiURL, o.userAgent, httpClient)
}

// Account resolves the Discogs account owning an access token. The profile is
// best effort; when it cannot be loaded only the identity fields are set.
func (o *OAuth) Account(ctx context.Context, accessToken, accessSecret string) (*Profile, error) {
	client := o.Client(ctx, accessToken, accessSecret)
	identity, err := client.Identity(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := client.Profile(ctx, identity.Username)
	if err != nil {
		slog.Warn("Could not load discogs profile", "username", identity.Username, "error", err)
		return &Profile{ID: identity.ID, Username: identity.Username}, nil
	}
	profile.ID = identity.ID
	profile.Username = identity.Username
	return profile, nil
}

func NewOAuth(cfg OAuthConfig) *OAuth {
	return &OAuth{
		config: &oauth1.Config{
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			CallbackURL:    cfg.CallbackURL,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: cfg.APIURL + "/oauth/request_token",
				AuthorizeURL:    cfg.AuthorizeURL,
				AccessTokenURL:  cfg.APIURL + "/oauth/access_token",
			},
		},
		apiURL:    cfg.APIURL,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
}
