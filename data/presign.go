package data

import "time"

// PresignedRequest is a signed request callers can replay against the
// backend without credentials, until it expires.
type PresignedRequest struct {
	// URL is the signed request target.
	URL string

	// Method is the HTTP method the backend dictates for this operation.
	Method string

	// ExpiresAt marks the moment the signature stops being honored.
	ExpiresAt time.Time
}
