// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrQuotaExceeded indicates the request would exceed the principal's daily ceiling.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrRateLimited indicates the upstream provider throttled the active credential.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrUpstreamExhausted indicates every credential in the pool was rate limited.
	ErrUpstreamExhausted = errors.New("all upstream credentials exhausted")

	// ErrEncodingFailure indicates the upstream returned no usable audio payload.
	ErrEncodingFailure = errors.New("empty or malformed audio payload")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the caller does not own the requested entity.
	ErrUnauthorized = errors.New("unauthorized")
)
