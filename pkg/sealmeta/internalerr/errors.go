package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound       = errors.New("not found")
	ErrMissingNode    = errors.New("missing required node")
	ErrMalformedValue = errors.New("malformed value")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrStoreClosed    = errors.New("store closed")
)
