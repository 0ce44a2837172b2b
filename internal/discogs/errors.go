package discogs

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited  = errors.New("discogs rate limit exceeded")
	ErrUnauthorized = errors.New("discogs authorization revoked")
	ErrNotFound     = errors.New("discogs resource not found")
)

// APIError is returned for every non 2xx response of the Discogs API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discogs api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	}
	return nil
}
