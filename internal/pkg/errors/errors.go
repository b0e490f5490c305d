package errors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalid         = errors.New("invalid")
	ErrConflict        = errors.New("conflict")
	ErrTooMany         = errors.New("too many requests")
	ErrInternal        = errors.New("internal")
	ErrEmptyDocument   = errors.New("empty document")
	ErrUnknownStrategy = errors.New("unknown chunking strategy")
	ErrUnknownChunk    = errors.New("unknown chunk id")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
