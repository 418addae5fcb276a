package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrStreamingUnsupported is returned by CompleteStream on adapters that
// only implement the single-call path.
var ErrStreamingUnsupported = errors.New("providers: streaming not supported by this adapter")

// ErrEmbeddingUnsupported is returned by Embed on adapters with no
// embedding endpoint.
var ErrEmbeddingUnsupported = errors.New("providers: embeddings not supported by this adapter")

// Kind is the five-way error taxonomy adapters classify failures into;
// IsRetryable and ShouldFailover derive their decisions from it.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request" // bad params; never retry
	KindAuthentication Kind = "authentication"  // bad/expired key; never retry without intervention
	KindRateLimit      Kind = "rate_limit"      // retry with backoff, or failover to another provider
	KindAPIError       Kind = "api_error"       // provider-side 5xx; retry with backoff
	KindNetwork        Kind = "network"         // transport failure; retry
)

// Error wraps a provider failure with enough context for a caller to
// decide retry, failover, or give up without re-parsing strings.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Message    string
	RetryAfter int // seconds, when the provider specified one; 0 otherwise
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("providers: %s: %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("providers: %s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether the same request may be retried as-is
// (after backoff), without switching providers.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindRateLimit, KindAPIError, KindNetwork:
		return true
	default:
		return false
	}
}

// ShouldFailover reports whether the agent loop should try a different
// provider/model rather than retrying this one.
func (e *Error) ShouldFailover() bool {
	switch e.Kind {
	case KindRateLimit, KindAPIError, KindAuthentication:
		return true
	default:
		return false
	}
}

// ClassifyHTTP turns a provider's HTTP status code and response body
// into a Kind. Providers with richer error payloads (Anthropic's
// {"error":{"type":...}}, OpenAI's {"error":{"code":...}}) should prefer
// their own structured classification and fall back to this only for
// unrecognized shapes.
func ClassifyHTTP(provider string, status int, body string) *Error {
	kind := classifyStatus(status, body)
	return &Error{
		Provider:   provider,
		Kind:       kind,
		StatusCode: status,
		Message:    truncate(body, 500),
	}
}

func classifyStatus(status int, body string) Kind {
	lower := strings.ToLower(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthentication
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case status >= 500:
		return KindAPIError
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota"):
		return KindRateLimit
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "malformed"):
		return KindInvalidRequest
	case status == 0:
		return KindNetwork
	default:
		return KindAPIError
	}
}

// ClassifyNetwork wraps a transport-level error (dial failure, timeout,
// context deadline) into a retryable Error.
func ClassifyNetwork(provider string, err error) *Error {
	return &Error{
		Provider: provider,
		Kind:     KindNetwork,
		Message:  err.Error(),
		Err:      err,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
