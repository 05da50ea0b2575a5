package fitAuth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fitgoal/fitAuth/denylist"
	internalaudit "github.com/fitgoal/fitAuth/internal/audit"
	"github.com/fitgoal/fitAuth/internal/logging"
	"github.com/fitgoal/fitAuth/internal/rate"
	"github.com/fitgoal/fitAuth/jwt"
)

const (
	rateScopeLoginEmail = "login_email"
	rateScopeLoginIP    = "login_ip"
	rateScopeResetEmail = "reset_email"
)

// passwordHasher is the subset of *password.Pool the Engine uses.
type passwordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) (bool, error)
	VerifyDummy(ctx context.Context, password string) error
	NeedsRehash(encoded string) (bool, error)
}

// Engine runs the authentication workflows. It is safe for concurrent use
// once built; configuration never changes after Build.
type Engine struct {
	config      Config
	accounts    AccountStore
	notifier    ResetNotifier
	passwords   passwordHasher
	jwtManager  *jwt.Manager
	denylist    *denylist.Store
	rateLimiter *rate.Limiter
	resetStore  *passwordResetStore
	validator   *inputValidator
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	log         logging.Logger

	deliveries sync.WaitGroup
}

// Close waits for reset deliveries in flight, then flushes pending audit
// events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.deliveries.Wait()
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login verifies email and password and issues a session token.
//
// An unknown email costs one Argon2 evaluation, like a wrong password, and
// returns ErrAccountNotFound (or ErrInvalidCredential when
// Config.Login.UniformFailure is set). Failed attempts count against the
// per-email and per-IP budgets; once exhausted Login returns ErrRateLimited
// without touching the store.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if err := e.validator.check(loginRequest{Email: email, Password: pw}); err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	ip := clientIPFromContext(ctx)
	if err := e.checkLoginLimits(ctx, email, ip); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitRateLimit(ctx, "login")
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", err, nil)
		}
		return nil, err
	}

	rec, err := e.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrStoreNotFound) {
			return nil, internalError(err)
		}
		if err := e.passwords.VerifyDummy(ctx, pw); err != nil {
			return nil, internalError(err)
		}
		e.recordLoginFailure(ctx, email, ip)
		e.metricInc(MetricLoginUnknownAccount)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrAccountNotFound, nil)
		if e.config.Login.UniformFailure {
			return nil, ErrInvalidCredential
		}
		return nil, ErrAccountNotFound
	}

	ok, err := e.passwords.Verify(ctx, pw, rec.PasswordHash)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		e.recordLoginFailure(ctx, email, ip)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, rec.ID, "", ErrInvalidCredential, nil)
		return nil, ErrInvalidCredential
	}

	if err := e.rateLimiter.Reset(ctx, rateScopeLoginEmail, email); err != nil {
		e.log.Warn(ctx, "reset login limiter failed", "error", err)
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeRehash(ctx, rec, pw)
	}

	tok, err := e.jwtManager.Issue(rec.ID)
	if err != nil {
		return nil, internalError(err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, rec.ID, tok.ID, nil, nil)

	return &LoginResult{
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
		Account:   rec.Account,
	}, nil
}

func (e *Engine) checkLoginLimits(ctx context.Context, email, ip string) error {
	emailPolicy := rate.Policy{Max: e.config.Login.MaxAttemptsPerEmail, Window: e.config.Login.AttemptWindow}
	if err := e.rateLimiter.Check(ctx, rateScopeLoginEmail, email, emailPolicy); err != nil {
		return mapRateErr(err)
	}
	if ip == "" {
		return nil
	}
	ipPolicy := rate.Policy{Max: e.config.Login.MaxAttemptsPerIP, Window: e.config.Login.AttemptWindow}
	if err := e.rateLimiter.Check(ctx, rateScopeLoginIP, ip, ipPolicy); err != nil {
		return mapRateErr(err)
	}
	return nil
}

// recordLoginFailure charges one failed attempt to the email and IP
// budgets. Limiter errors are logged; the caller's outcome is already known.
func (e *Engine) recordLoginFailure(ctx context.Context, email, ip string) {
	emailPolicy := rate.Policy{Max: e.config.Login.MaxAttemptsPerEmail, Window: e.config.Login.AttemptWindow}
	if err := e.rateLimiter.Hit(ctx, rateScopeLoginEmail, email, emailPolicy); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.log.Warn(ctx, "record login failure", "scope", rateScopeLoginEmail, "error", err)
	}
	if ip == "" {
		return
	}
	ipPolicy := rate.Policy{Max: e.config.Login.MaxAttemptsPerIP, Window: e.config.Login.AttemptWindow}
	if err := e.rateLimiter.Hit(ctx, rateScopeLoginIP, ip, ipPolicy); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.log.Warn(ctx, "record login failure", "scope", rateScopeLoginIP, "error", err)
	}
}

func (e *Engine) maybeRehash(ctx context.Context, rec AccountRecord, pw string) {
	needs, err := e.passwords.NeedsRehash(rec.PasswordHash)
	if err != nil || !needs {
		return
	}
	upgraded, err := e.passwords.Hash(ctx, pw)
	if err != nil {
		e.log.Warn(ctx, "password rehash failed", "account_id", rec.ID, "error", err)
		return
	}
	if err := e.accounts.UpdatePasswordHash(ctx, rec.ID, upgraded); err != nil {
		e.log.Warn(ctx, "store rehashed password failed", "account_id", rec.ID, "error", err)
		return
	}
	e.metricInc(MetricPasswordRehash)
	e.emitAudit(ctx, auditEventPasswordRehash, true, rec.ID, "", nil, nil)
}

// Authenticate verifies a bearer token and resolves its account.
//
// Checks run in a fixed order and the first failure is returned: missing
// token, invalid token, expired token, revoked token, unknown account.
// Infrastructure failures are returned as KindInternal.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}
	}()

	p, err := e.authenticate(ctx, token)
	if err != nil {
		switch ReasonOf(err) {
		case ReasonNoCredential:
			e.metricInc(MetricAuthNoCredential)
		case ReasonInvalidCredential:
			e.metricInc(MetricAuthInvalidCredential)
		case ReasonExpiredCredential:
			e.metricInc(MetricAuthExpiredCredential)
		case ReasonRevokedCredential:
			e.metricInc(MetricAuthRevokedCredential)
		case ReasonUnknownPrincipal:
			e.metricInc(MetricAuthUnknownPrincipal)
		}
		return nil, err
	}

	e.metricInc(MetricAuthSuccess)
	return p, nil
}

func (e *Engine) authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoCredential
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken.wrap(err)
		}
		return nil, ErrInvalidToken.wrap(err)
	}

	revoked, err := e.denylist.IsRevoked(ctx, claims.ID, claims.Subject, claims.IssueTime())
	if err != nil {
		return nil, internalError(err)
	}
	if revoked {
		e.emitAudit(ctx, auditEventAuthenticateFailure, false, claims.Subject, claims.ID, ErrRevokedToken, nil)
		return nil, ErrRevokedToken
	}

	rec, err := e.accounts.GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.emitAudit(ctx, auditEventAuthenticateFailure, false, claims.Subject, claims.ID, ErrUnknownPrincipal, nil)
			return nil, ErrUnknownPrincipal
		}
		return nil, internalError(err)
	}

	return &Principal{
		Account:   rec.Account,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the principal's token until it expires. Logging out an
// already revoked token succeeds.
func (e *Engine) Logout(ctx context.Context, p *Principal) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if p == nil || p.TokenID == "" {
		return ErrNoCredential
	}

	if err := e.denylist.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return internalError(err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, p.ID, p.TokenID, nil, nil)
	return nil
}

func mapRateErr(err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrRateLimited.wrap(err)
	}
	return internalError(err)
}
