// Package jwt issues and parses the HS256 session tokens used as bearer
// credentials.
//
// Tokens carry only sub, iat, exp and jti. [Manager.Parse] classifies every
// rejection as [ErrTokenInvalid] or [ErrTokenExpired]; signature checks run
// before time checks, so a forged token is never reported as expired.
//
// # What this package must NOT do
//
//   - Read the signing secret from the environment. It is passed to [NewManager].
//   - Resolve accounts or consult the revocation list. The Engine does that.
package jwt
