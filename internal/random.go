package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const resetSecretSize = 32

// ErrMalformedResetToken is returned when a presented reset token cannot be
// decoded to a secret of the expected size.
var ErrMalformedResetToken = errors.New("malformed reset token")

// NewResetToken returns a random reset token for the user and the digest
// under which it is stored. Only the digest is persisted.
func NewResetToken() (token string, digest string, err error) {
	var secret [resetSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(secret[:])
	return token, digestOf(secret[:]), nil
}

// ResetTokenDigest decodes a presented token and returns its storage digest.
func ResetTokenDigest(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != resetSecretSize {
		return "", ErrMalformedResetToken
	}
	return digestOf(raw), nil
}

func digestOf(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:])
}
