package denylist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces denylist keys.
const DefaultPrefix = "fad"

// ErrRedisUnavailable wraps Redis failures.
var ErrRedisUnavailable = errors.New("denylist redis unavailable")

// Store records revoked tokens in Redis.
//
// Two kinds of entries exist: a single token keyed by its jti, and a
// per-subject cutoff that revokes every token issued before it. Each entry
// carries a TTL covering the token lifetime plus the verifier's leeway, so
// Redis drops it only once no token it could match still verifies.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	leeway time.Duration
	now    func() time.Time
}

// NewStore returns a Store using prefix for its keys; an empty prefix uses
// DefaultPrefix. leeway must match the clock skew the token parser allows
// past exp.
func NewStore(redisClient redis.UniversalClient, prefix string, leeway time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if leeway < 0 {
		leeway = 0
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		leeway: leeway,
		now:    time.Now,
	}
}

func (s *Store) tokenKey(tokenID string) string {
	return s.prefix + ":jti:" + tokenID
}

func (s *Store) subjectKey(subject string) string {
	return s.prefix + ":sub:" + subject
}

// entryTTL is how long an entry must live for a token verifiable until
// expiresAt plus leeway. Zero means nothing is left to revoke.
func (s *Store) entryTTL(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Add(s.leeway).Sub(s.now())
	if ttl <= 0 {
		return 0
	}
	// Round up so the entry never disappears before the token does.
	return ttl.Truncate(time.Second) + time.Second
}

// Revoke denylists tokenID until expiresAt plus leeway. Revoking a token
// that can no longer verify, or one already revoked, succeeds without
// effect.
func (s *Store) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("denylist: empty token id")
	}

	ttl := s.entryTTL(expiresAt)
	if ttl == 0 {
		return nil
	}

	if err := s.redis.Set(ctx, s.tokenKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeSubject revokes every token for subject issued before cutoff, to
// the millisecond. maxTokenTTL bounds how long such a token can remain valid
// and therefore how long the cutoff is kept.
func (s *Store) RevokeSubject(ctx context.Context, subject string, cutoff time.Time, maxTokenTTL time.Duration) error {
	if subject == "" {
		return errors.New("denylist: empty subject")
	}
	if maxTokenTTL <= 0 {
		return errors.New("denylist: token ttl must be positive")
	}

	ttl := s.entryTTL(cutoff.Add(maxTokenTTL))
	if ttl == 0 {
		return nil
	}

	if err := s.redis.Set(ctx, s.subjectKey(subject), strconv.FormatInt(cutoff.UnixMilli(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the token identified by tokenID, issued to
// subject at issuedAt, has been revoked. Both entries are read in one
// pipelined round trip; the keys may live in different cluster slots.
func (s *Store) IsRevoked(ctx context.Context, tokenID, subject string, issuedAt time.Time) (bool, error) {
	var tokenCmd, subjectCmd *redis.StringCmd
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		tokenCmd = pipe.Get(ctx, s.tokenKey(tokenID))
		subjectCmd = pipe.Get(ctx, s.subjectKey(subject))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch err := tokenCmd.Err(); {
	case err == nil:
		return true, nil
	case !errors.Is(err, redis.Nil):
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	raw, err := subjectCmd.Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true, nil
	}
	return issuedAt.UnixMilli() < cutoff, nil
}
