package cvapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/resumecraft/cv-upload-client/internal/core/domain"
	"github.com/resumecraft/cv-upload-client/internal/infrastructure/resilience"
)

// HTTPStatusError is a delivered non-success response, kept verbose so
// logs carry enough to debug the backend without a reproduction.
type HTTPStatusError struct {
	Operation  string
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "cv api status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s %s %s: status %s", e.Operation, e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s %s: status %s: %s", e.Operation, e.Method, e.URL, e.Status, strings.TrimSpace(e.Body))
}

func (e *HTTPStatusError) Unwrap() error { return domain.ErrServer }

func (e *HTTPStatusError) HTTPStatus() int { return e.StatusCode }

// ValidationError is a delivered-but-unusable response body: invalid
// JSON, an unexpected shape, or a missing required field. The raw body
// rides along for diagnostics.
type ValidationError struct {
	Operation string
	RawBody   []byte
	Err       error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "cv api validation error"
	}
	return fmt.Sprintf("%s: invalid response body: %v (raw: %s)", e.Operation, e.Err, truncate(string(e.RawBody), 256))
}

func (e *ValidationError) Unwrap() []error {
	return []error{domain.ErrInvalidResponse, e.Err}
}

// TransportError is a network-level failure before any response body
// arrived.
type TransportError struct {
	Operation string
	Method    string
	URL       string
	Err       error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "cv api transport error"
	}
	return fmt.Sprintf("%s %s %s: %v", e.Operation, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{domain.ErrTransport, e.Err}
}

// classifyAPIError feeds the resilience executor. Only failures that a
// repeat request can plausibly fix are retryable; a malformed body is a
// server bug and retrying will not unbreak it.
func classifyAPIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
