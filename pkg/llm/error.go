package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCompletion wraps every failure from a completion provider.
	ErrCompletion = errors.New("completion failed")

	// ErrRateLimited is returned when the provider answers 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedResponse is returned when a response carries no text.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// StatusError classifies a non-2xx provider status.
func StatusError(provider string, status int, body []byte) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w: %s returned status %d: %s", ErrCompletion, ErrRateLimited, provider, status, string(body))
	}
	return fmt.Errorf("%w: %s returned status %d: %s", ErrCompletion, provider, status, string(body))
}
