package tqdb

import "github.com/acvigue/tqdb-go/internal/errs"

// Sentinel errors, checked with errors.Is. Every boundary in this module
// wraps one of these with %w so the identity survives added context.
var (
	ErrInvalidArg    = errs.ErrInvalidArg
	ErrNoMem         = errs.ErrNoMem
	ErrNotFound      = errs.ErrNotFound
	ErrExists        = errs.ErrExists
	ErrIO            = errs.ErrIO
	ErrCorrupt       = errs.ErrCorrupt
	ErrFull          = errs.ErrFull
	ErrTimeout       = errs.ErrTimeout
	ErrNotRegistered = errs.ErrNotRegistered
)
