package registry

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sony/gobreaker/v2"
)

// ErrorCategory is the normalized failure taxonomy for upstream exchanges.
type ErrorCategory string

const (
	// ErrorTimeout indicates the exchange exceeded its deadline.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorOutage indicates a transport failure or an open breaker.
	ErrorOutage ErrorCategory = "outage"

	// ErrorBadData indicates a response we could not parse.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorSolveMiss indicates the captcha decoded to fewer digits than the
	// challenge needs. The submission still goes ahead and is expected to be
	// rejected.
	ErrorSolveMiss ErrorCategory = "solve_miss"

	// ErrorInternal indicates an unexpected local failure.
	ErrorInternal ErrorCategory = "internal"
)

// UpstreamError wraps a failed exchange with its category.
type UpstreamError struct {
	Category   ErrorCategory
	Upstream   string
	Message    string
	Underlying error
}

func (e *UpstreamError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("upstream %s [%s]: %s: %v", e.Upstream, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("upstream %s [%s]: %s", e.Upstream, e.Category, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Underlying
}

func NewUpstreamError(category ErrorCategory, upstream, message string, underlying error) *UpstreamError {
	return &UpstreamError{
		Category:   category,
		Upstream:   upstream,
		Message:    message,
		Underlying: underlying,
	}
}

// TransportError classifies a failed round trip as timeout or outage.
func TransportError(upstream, message string, err error) *UpstreamError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewUpstreamError(ErrorTimeout, upstream, message, err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return NewUpstreamError(ErrorOutage, upstream, "circuit open", err)
	}
	return NewUpstreamError(ErrorOutage, upstream, message, err)
}

// GetCategory extracts the category from an error chain.
func GetCategory(err error) ErrorCategory {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Category
	}
	return ErrorInternal
}
