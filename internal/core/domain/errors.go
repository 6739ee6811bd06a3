package domain

import (
	"errors"
	"fmt"
)

// Error kinds of the upload lifecycle. Reconciliation failures have no
// kind on purpose: they are downgraded to an un-injected result inside
// the client and never bubble.
var (
	// ErrInvalidResponse marks a delivered-but-malformed response body.
	// Never retried: repeating the request will not fix a server-side
	// serialization bug.
	ErrInvalidResponse = errors.New("invalid response body")

	// ErrTransport marks a network-level failure before any response
	// body was delivered.
	ErrTransport = errors.New("transport failure")

	// ErrServer marks a delivered non-success HTTP status.
	ErrServer = errors.New("server error status")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

type statusCarrier interface {
	HTTPStatus() int
}

// StatusCode reports the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var carrier statusCarrier
	if errors.As(err, &carrier) {
		return carrier.HTTPStatus(), true
	}
	return 0, false
}
