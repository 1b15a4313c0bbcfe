package v4v

import "errors"

// Opaque error taxonomy. Callers should compare with errors.Is; concrete
// call sites wrap these with additional context via fmt.Errorf("...: %w", ...).
var (
	ErrInvalidArgument = errors.New("v4v: invalid argument")
	ErrMemoryFault     = errors.New("v4v: memory fault")
	ErrOutOfMemory     = errors.New("v4v: out of memory")
	ErrNotFound        = errors.New("v4v: not found")
	ErrAlreadyExists   = errors.New("v4v: already exists")
	ErrRefused         = errors.New("v4v: refused")
	ErrWouldBlock      = errors.New("v4v: would block")
	ErrMsgTooLarge     = errors.New("v4v: message too large")
	ErrNoDevice        = errors.New("v4v: no device")
	ErrUnsupported     = errors.New("v4v: unsupported")
)
