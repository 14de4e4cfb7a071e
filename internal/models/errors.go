package models

import "errors"

var (
	// ErrSourceFetch covers network, timeout and status failures of a rank or news source
	ErrSourceFetch = errors.New("source fetch failed")
	// ErrEncoding is returned when a response body cannot be decoded
	ErrEncoding = errors.New("unsupported response encoding")
	// ErrQuotaExceeded is a model-side quota or rate limit failure
	ErrQuotaExceeded = errors.New("model quota exceeded")
	// ErrOtherModel is any model failure that is not quota related
	ErrOtherModel = errors.New("model request failed")
	// ErrCredentialMissing means no usable credential is configured for a provider
	ErrCredentialMissing = errors.New("credential missing")
	// ErrCandidateNotFound is returned when a selection does not match the last screen
	ErrCandidateNotFound = errors.New("candidate not found")
)
