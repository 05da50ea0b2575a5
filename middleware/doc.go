// Package middleware adapts fitAuth authentication to net/http.
//
// [Guard] reads the Authorization header, calls Authenticate and injects the
// resulting principal into the request context, where handlers read it with
// [PrincipalFromContext]. It is the only place requests are rejected for
// authentication reasons.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; every decision is delegated to the
// Authenticator.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis or the account store.
//   - Make authorization decisions beyond pass/reject.
package middleware
