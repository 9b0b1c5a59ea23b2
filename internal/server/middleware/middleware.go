// Package middleware holds the Gin middleware stack: panic recovery,
// request IDs, CORS, body-size limits, request logging, rate limiting,
// and session authentication.
package middleware

// Context keys set by the middleware in this package.
const (
	// RequestIDKey holds the request's correlation ID.
	RequestIDKey = "request_id"
	// IdentityKey holds the authenticated auth.Identity.
	IdentityKey = "identity"
)
