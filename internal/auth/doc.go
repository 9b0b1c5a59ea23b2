// Package auth provides JWT session tokens, password hashing, and
// request-scoped identity propagation.
//
// Tokens are HMAC-signed and carry the user id, email, and role. The
// default session lifetime is seven days. Handlers read the authenticated
// identity back out of the request context with FromContext.
package auth
