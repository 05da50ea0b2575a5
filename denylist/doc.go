// Package denylist keeps the server-side revocation list for otherwise
// stateless session tokens.
//
// Entries are keyed by token id (jti) or by subject and expire with the
// tokens they cover, so the list only ever holds revocations that can still
// matter.
//
// # Architecture boundaries
//
// This package owns Redis reads and writes for revocations. It does NOT parse
// tokens or decide authentication outcomes; the Engine consults [Store.IsRevoked]
// after a token's signature and expiry have been verified.
//
// # What this package must NOT do
//
//   - Import fitAuth or jwt.
//   - Store token values. Only identifiers and cutoffs are written.
package denylist
