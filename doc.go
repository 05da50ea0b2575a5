// Package fitAuth is the authentication core of the fitgoal service:
// account registration with Argon2id password hashing, credential login,
// HS256 bearer tokens, revocation and password reset.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// fitAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the [AccountStore] contract and the tagged [Error] type. Hashing lives in
// password, token signing in jwt, revocation in denylist; rate limiting and
// audit dispatch live under internal/ and are never exported.
//
// # Errors
//
// Every Engine error is an [*Error]. Branch on it with errors.Is against the
// exported sentinels, or with [KindOf] and [ReasonOf]; never on the message.
//
// # What this package must NOT do
//
//   - Expose Redis clients, password hashes or reset token digests in its
//     public API.
//   - Read configuration or secrets from the environment.
//   - Import a sub-package that re-imports fitAuth.
package fitAuth
