package password

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrent Argon2 evaluations so hashing cannot
// occupy every CPU while other requests are being served.
type Pool struct {
	hasher *Hasher
	sem    *semaphore.Weighted
	size   int64
	dummy  string
}

// NewPool wraps h with a semaphore of size slots. A size <= 0 uses
// runtime.GOMAXPROCS(0).
//
// NewPool computes one throwaway hash with h's parameters; VerifyDummy
// compares against it.
func NewPool(h *Hasher, size int) (*Pool, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil hasher", ErrInvalidConfig)
	}
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}

	filler := make([]byte, 24)
	if _, err := rand.Read(filler); err != nil {
		return nil, fmt.Errorf("read dummy password: %w", err)
	}
	dummy, err := h.Hash(base64.RawStdEncoding.EncodeToString(filler))
	if err != nil {
		return nil, err
	}

	return &Pool{
		hasher: h,
		sem:    semaphore.NewWeighted(int64(size)),
		size:   int64(size),
		dummy:  dummy,
	}, nil
}

// Size returns the number of concurrent evaluations allowed.
func (p *Pool) Size() int {
	return int(p.size)
}

// Hasher returns the underlying hasher.
func (p *Pool) Hasher() *Hasher {
	return p.hasher
}

// Hash waits for a free slot and hashes password. It returns ctx.Err() if
// ctx ends before a slot is acquired; a hash already in progress runs to
// completion.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	return p.hasher.Hash(password)
}

// Verify waits for a free slot and checks password against encoded.
func (p *Pool) Verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)

	return p.hasher.Verify(password, encoded)
}

// VerifyDummy spends the same work as Verify against a hash no password
// matches. Callers use it when there is no stored hash to compare with, so
// that the miss costs as much as a real comparison.
func (p *Pool) VerifyDummy(ctx context.Context, password string) error {
	_, err := p.Verify(ctx, password, p.dummy)
	return err
}

// NeedsRehash reports whether encoded should be replaced with a hash using
// the current parameters.
func (p *Pool) NeedsRehash(encoded string) (bool, error) {
	return p.hasher.NeedsRehash(encoded)
}
