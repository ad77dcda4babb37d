package errors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalid            = errors.New("invalid")
	ErrConflict           = errors.New("conflict")
	ErrTooMany            = errors.New("too many requests")
	ErrInternal           = errors.New("internal")
	ErrUnavailable        = errors.New("ai provider unavailable")
	ErrEmbeddingFailure   = errors.New("embedding failure")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrQueryFailure       = errors.New("query failure")
	ErrInSetTooLarge      = errors.New("in set too large")
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

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func IsQueryFailure(err error) bool {
	return errors.Is(err, ErrQueryFailure)
}
