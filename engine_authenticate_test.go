package fitAuth

import (
	"context"
	"errors"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, secret []byte, subject string, issuedAt, expiresAt time.Time) string {
	t.Helper()
	claims := gojwt.RegisteredClaims{
		Subject:   subject,
		ID:        "01HZY3M6C8V2Q0T9K7N4B5D1EX",
		IssuedAt:  gojwt.NewNumericDate(issuedAt),
		ExpiresAt: gojwt.NewNumericDate(expiresAt),
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthenticateResolvesPrincipal(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.register(t, "ada@example.com")
	res := env.login(t, "ada@example.com")

	p, err := env.engine.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.ID != acct.ID || p.Email != acct.Email {
		t.Fatalf("unexpected principal %+v", p)
	}
	if p.TokenID == "" || !p.ExpiresAt.Equal(res.ExpiresAt) {
		t.Fatalf("expected token id and expiry on principal, got %+v", p)
	}
}

func TestAuthenticateReadsAccountFromStore(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.register(t, "ada@example.com")
	res := env.login(t, "ada@example.com")

	env.store.mu.Lock()
	rec := env.store.byID[acct.ID]
	rec.FirstName = "Augusta"
	env.store.byID[acct.ID] = rec
	env.store.mu.Unlock()

	p, err := env.engine.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.FirstName != "Augusta" {
		t.Fatalf("expected fresh store data, got %q", p.FirstName)
	}
}

func TestAuthenticateFailureTaxonomy(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.register(t, "ada@example.com")
	res := env.login(t, "ada@example.com")
	now := time.Now()

	otherSecret := []byte("ffffffffffffffffffffffffffffffff")

	tests := []struct {
		name   string
		token  string
		want   error
		reason Reason
	}{
		{"empty", "", ErrNoCredential, ReasonNoCredential},
		{"garbage", "not-a-token", ErrInvalidToken, ReasonInvalidCredential},
		{"truncated", res.Token[:len(res.Token)-1], ErrInvalidToken, ReasonInvalidCredential},
		{"wrong secret", signTestToken(t, otherSecret, acct.ID, now, now.Add(time.Hour)), ErrInvalidToken, ReasonInvalidCredential},
		{"expired", signTestToken(t, testSecret, acct.ID, now.Add(-2*time.Hour), now.Add(-time.Hour)), ErrExpiredToken, ReasonExpiredCredential},
		{"expired with wrong secret", signTestToken(t, otherSecret, acct.ID, now.Add(-2*time.Hour), now.Add(-time.Hour)), ErrInvalidToken, ReasonInvalidCredential},
		{"unknown principal", signTestToken(t, testSecret, "acct-404", now, now.Add(time.Hour)), ErrUnknownPrincipal, ReasonUnknownPrincipal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := env.engine.Authenticate(context.Background(), tc.token)
			if p != nil {
				t.Fatalf("expected no principal, got %+v", p)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if KindOf(err) != KindUnauthenticated {
				t.Fatalf("expected unauthenticated kind, got %v", KindOf(err))
			}
			if got := ReasonOf(err); got != tc.reason {
				t.Fatalf("expected reason %v, got %v", tc.reason, got)
			}
		})
	}

	if errors.Is(ErrExpiredToken, ErrInvalidToken) {
		t.Fatal("expired and invalid must be distinguishable")
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricAuthInvalidCredential] != 4 {
		t.Fatalf("expected 4 invalid credential outcomes, got %d", snap.Counters[MetricAuthInvalidCredential])
	}
	if snap.Counters[MetricAuthExpiredCredential] != 1 || snap.Counters[MetricAuthNoCredential] != 1 || snap.Counters[MetricAuthUnknownPrincipal] != 1 {
		t.Fatalf("unexpected outcome counters %+v", snap.Counters)
	}
}

func TestAuthenticateDeletedAccountIsUnknownPrincipal(t *testing.T) {
	env := newTestEnv(t, nil)
	acct := env.register(t, "ada@example.com")
	res := env.login(t, "ada@example.com")

	env.store.remove(acct.ID)

	_, err := env.engine.Authenticate(context.Background(), res.Token)
	if !errors.Is(err, ErrUnknownPrincipal) {
		t.Fatalf("expected ErrUnknownPrincipal, got %v", err)
	}
}

func TestAuthenticateStoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "ada@example.com")
	res := env.login(t, "ada@example.com")

	env.store.getErr = errors.New("db down")

	_, err := env.engine.Authenticate(context.Background(), res.Token)
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if ReasonOf(err) != ReasonNone {
		t.Fatalf("internal errors carry no reason, got %v", ReasonOf(err))
	}
}

func TestAuthenticateRedisFailureIsInternal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "ada@example.com")
	res := env.login(t, "ada@example.com")

	env.redis.Close()

	_, err := env.engine.Authenticate(context.Background(), res.Token)
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "ada@example.com")
	res := env.login(t, "ada@example.com")
	ctx := context.Background()

	p, err := env.engine.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := env.engine.Logout(ctx, p); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := env.engine.Logout(ctx, p); err != nil {
		t.Fatalf("second logout must succeed: %v", err)
	}

	_, err = env.engine.Authenticate(ctx, res.Token)
	if !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("expected ErrRevokedToken, got %v", err)
	}

	other := env.login(t, "ada@example.com")
	if _, err := env.engine.Authenticate(ctx, other.Token); err != nil {
		t.Fatalf("a fresh token must still authenticate: %v", err)
	}
}

func TestLogoutWithoutPrincipal(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.engine.Logout(context.Background(), nil); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestAuthenticateLatencyHistogram(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Metrics.EnableLatencyHistograms = true
	})

	_, _ = env.engine.Authenticate(context.Background(), "")

	buckets := env.engine.MetricsSnapshot().Histograms[MetricAuthenticateLatency]
	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}

func TestLogoutHoldsThroughLeeway(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.JWT.Leeway = time.Minute
	})
	acct := env.register(t, "ada@example.com")
	ctx := context.Background()

	// Expired five seconds ago but still accepted within the leeway.
	now := time.Now()
	token := signTestToken(t, testSecret, acct.ID, now.Add(-10*time.Minute), now.Add(-5*time.Second))

	p, err := env.engine.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("token within leeway must authenticate: %v", err)
	}
	if err := env.engine.Logout(ctx, p); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := env.engine.Authenticate(ctx, token); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("expected ErrRevokedToken, got %v", err)
	}

	env.redis.FastForward(30 * time.Second)
	if _, err := env.engine.Authenticate(ctx, token); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("revocation must last until exp plus leeway, got %v", err)
	}
}
