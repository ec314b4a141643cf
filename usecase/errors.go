package usecase

import (
	"errors"
	"fmt"

	"prism-connector/domain/repository"
)

// Error kinds used across the orchestrator. Handlers map these to HTTP
// status codes; operator-facing kinds carry remediation text in the message.
var (
	ErrConfig            = errors.New("configuration missing")
	ErrAccountResolution = errors.New("account resolution failed")
	ErrCredential        = errors.New("no valid credential")
	ErrUnsupportedFormat = repository.ErrImageUnsupported
	ErrContainer         = errors.New("media container failed")
	ErrNotReady          = errors.New("media container not ready")
	ErrRateLimited       = repository.ErrPlatformRateLimited
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
)

// kindError wraps a taxonomy sentinel with a situation-specific message so
// errors.Is keeps working through the wrap.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}
