package domain

import "errors"

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrRateLimited       = errors.New("too many requests")
	ErrKeyLoad           = errors.New("key material could not be loaded")
	ErrKeyNotFound       = errors.New("signing key not found")
	ErrSigning           = errors.New("token signing failed")
)
