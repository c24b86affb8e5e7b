package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	ErrProviderUnavailable = errors.New("generation provider unavailable")
	// ErrEmptyResponse marks a well-formed provider reply that carried no
	// text. Treated as retryable.
	ErrEmptyResponse = errors.New("provider response without text output")
)

type providerHTTPError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *providerHTTPError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// isRetryableProviderError classifies transient failures: overload (503),
// rate limiting (429), server errors, network timeouts and empty replies.
// Everything else (bad API key, malformed request) is fatal and aborts the
// whole model-fallback chain.
func isRetryableProviderError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *providerHTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return true
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return true
		case httpErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "timeout") ||
		strings.Contains(message, "overloaded") ||
		strings.Contains(message, "unavailable") ||
		strings.Contains(message, "rate limit")
}
