package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotConfigured is returned when the selected backend has no client.
	ErrNotConfigured = errors.New("backend not configured")

	// ErrMissingAPIKey is returned when a backend that needs credentials has none.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrUnauthorized is returned when the backend rejects the credentials.
	ErrUnauthorized = errors.New("backend rejected credentials")

	// ErrUnreachable is returned when the backend cannot be contacted.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrMalformedResponse is returned when the backend answers with a payload
	// that cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// IsUnavailable reports whether err means the backend could not serve the
// request at all, as opposed to failing while serving it.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrUnreachable)
}

// StatusError is a non-success HTTP response from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// classifyStatus wraps a provider status code with the matching sentinel.
func classifyStatus(provider string, status int, body string) error {
	se := &StatusError{Provider: provider, StatusCode: status, Body: body}
	switch status {
	case 401, 403:
		return fmt.Errorf("%w: %w", ErrUnauthorized, se)
	default:
		return se
	}
}

// classifyTransport wraps errors raised before any response was received.
// Context cancellation is passed through untouched.
func classifyTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &netErr) || errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, provider, err)
	}
	return fmt.Errorf("%s request failed: %w", provider, err)
}
