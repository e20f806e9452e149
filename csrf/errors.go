package csrf

import (
	"errors"
	"fmt"
)

// Configuration errors are returned by constructors and by storage operations
// that find the request pipeline wired incorrectly. Backend errors wrap
// whatever the session or key-value collaborator returned.
var (
	ErrMissingSecret     = errors.New("csrf: secret key is required for the hashed token generator")
	ErrInvalidGenerator  = errors.New("csrf: invalid token generator")
	ErrInvalidBackend    = errors.New("csrf: invalid storage backend")
	ErrNoRequestState    = errors.New("csrf: request state not attached, wrap the request with WithRequestState")
	ErrMissingIdentifier = errors.New("csrf: request carries no session identifier")
	ErrNoSession         = errors.New("csrf: no session for request")
	ErrBackend           = errors.New("csrf: storage backend failure")
)

func backendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}

// Verification outcomes reported through FailureReason.
var (
	ErrTokenMismatch = errors.New("csrf: token missing or invalid")
	ErrBadOrigin     = errors.New("csrf: origin not allowed")
)
