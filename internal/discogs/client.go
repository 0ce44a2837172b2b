package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/davesrecords/davesrecords/internal/metrics"
)

// Client calls the Discogs REST API on behalf of one connected account.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("discogs %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode/100)+"xx").Observe(time.Since(start).Seconds())

	if resp.StatusCode >= http.StatusBadRequest {
		return parseAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("discogs %s: decode response: %w", endpoint, err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// Identity returns the account the access token belongs to.
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	var identity Identity
	if err := c.get(ctx, "identity", "/oauth/identity", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (c *Client) Profile(ctx context.Context, username string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, "profile", "/users/"+url.PathEscape(username), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CollectionReleases returns one page of the "All" folder of username's collection.
func (c *Client) CollectionReleases(ctx context.Context, username string, page, perPage int) (*CollectionPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("sort", "added")
	query.Set("sort_order", "desc")

	var out CollectionPage
	path := "/users/" + url.PathEscape(username) + "/collection/folders/0/releases"
	if err := c.get(ctx, "collection", path, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func NewClient(baseURL, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}
