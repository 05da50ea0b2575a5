package fitAuth

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/fitgoal/fitAuth/internal"
	"github.com/fitgoal/fitAuth/internal/rate"
)

const msgResetTokenInvalid = "Reset token is invalid or expired"

const (
	resetResponseFloor  = 40 * time.Millisecond
	resetResponseJitter = 20 * time.Millisecond

	// resetDeliveryTimeout bounds one notifier call running after the
	// request has returned.
	resetDeliveryTimeout = 30 * time.Second
)

// sleepEnumerationDelay is replaced in tests.
var sleepEnumerationDelay = padPasswordResetResponse

// RequestPasswordReset starts a password reset for email.
//
// Apart from a malformed email, the caller cannot tell whether the account
// exists: the call returns nil in both cases, padded to the same response
// time, and the token is delivered after the call returns. Token storage and
// delivery failures are logged, not returned. A failed account lookup
// returns KindInternal.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	start := time.Now()

	email = normalizeEmail(email)
	if err := e.validator.check(resetRequest{Email: email}); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetRequest)

	if err := e.issueResetToken(ctx, email); err != nil {
		return err
	}

	if err := sleepEnumerationDelay(ctx, start); err != nil {
		return internalError(err)
	}
	return nil
}

func (e *Engine) issueResetToken(ctx context.Context, email string) error {
	policy := rate.Policy{Max: e.config.PasswordReset.MaxRequests, Window: e.config.PasswordReset.RequestWindow}
	if err := e.rateLimiter.Hit(ctx, rateScopeResetEmail, email, policy); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.emitRateLimit(ctx, rateScopeResetEmail)
			return nil
		}
		e.log.Warn(ctx, "reset request limiter failed", "error", err)
	}

	rec, err := e.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", "", ErrAccountNotFound, nil)
			return nil
		}
		return internalError(err)
	}

	if e.notifier == nil {
		e.log.Warn(ctx, "password reset requested without a notifier", "account_id", rec.ID)
		return nil
	}

	token, digest, err := internal.NewResetToken()
	if err != nil {
		e.log.Error(ctx, "generate reset token", "error", err)
		return nil
	}

	expiresAt := time.Now().Add(e.config.PasswordReset.TokenTTL)
	record := &passwordResetRecord{AccountID: rec.ID, ExpiresAt: expiresAt.Unix()}
	if err := e.resetStore.Save(ctx, digest, record, e.config.PasswordReset.TokenTTL); err != nil {
		e.log.Error(ctx, "save reset token", "account_id", rec.ID, "error", err)
		return nil
	}

	e.deliverResetToken(ctx, rec.Account, token, expiresAt)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, rec.ID, "", nil, nil)
	return nil
}

// deliverResetToken hands token to the notifier in the background. Close
// waits for deliveries still in flight.
func (e *Engine) deliverResetToken(ctx context.Context, account Account, token string, expiresAt time.Time) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetDeliveryTimeout)

	e.deliveries.Add(1)
	go func() {
		defer e.deliveries.Done()
		defer cancel()
		if err := e.notifier.SendPasswordReset(sendCtx, account, token, expiresAt); err != nil {
			e.log.Warn(sendCtx, "send reset notification", "account_id", account.ID, "error", err)
		}
	}()
}

// ConfirmPasswordReset redeems a reset token and replaces the account's
// password. Each token works once. On success every token issued to the
// account before the reset stops authenticating; if that revocation cannot
// be recorded the call fails with KindInternal.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.validator.check(resetConfirmRequest{Password: newPassword, ConfirmPassword: confirmPassword}); err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		return err
	}

	digest, err := internal.ResetTokenDigest(token)
	if err != nil {
		return e.resetConfirmFailed(ctx)
	}

	// Unknown tokens are rejected before any hashing; the token is only
	// redeemed once the new hash is ready.
	if _, err := e.resetStore.Peek(ctx, digest); err != nil {
		if errors.Is(err, errResetNotFound) {
			return e.resetConfirmFailed(ctx)
		}
		return internalError(err)
	}

	hash, err := e.passwords.Hash(ctx, newPassword)
	if err != nil {
		return internalError(err)
	}

	record, err := e.resetStore.Consume(ctx, digest)
	if err != nil {
		if errors.Is(err, errResetNotFound) {
			return e.resetConfirmFailed(ctx)
		}
		return internalError(err)
	}

	if err := e.revokeBeforeNow(ctx, record.AccountID); err != nil {
		return err
	}
	if err := e.accounts.UpdatePasswordHash(ctx, record.AccountID, hash); err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return e.resetConfirmFailed(ctx)
		}
		return internalError(err)
	}
	// Move the cutoff past the update so logins that raced it with the old
	// password are revoked too.
	if err := e.revokeBeforeNow(ctx, record.AccountID); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, record.AccountID, "", nil, nil)
	return nil
}

func (e *Engine) revokeBeforeNow(ctx context.Context, accountID string) error {
	if err := e.denylist.RevokeSubject(ctx, accountID, time.Now(), e.jwtManager.TTL()); err != nil {
		e.log.Error(ctx, "revoke tokens after reset", "account_id", accountID, "error", err)
		return internalError(err)
	}
	return nil
}

func (e *Engine) resetConfirmFailed(ctx context.Context) error {
	err := NewValidationError(map[string]string{"token": msgResetTokenInvalid})
	e.metricInc(MetricPasswordResetConfirmFailure)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", "", err, nil)
	return err
}

// padPasswordResetResponse sleeps until a random point between the floor
// and floor plus jitter after start, whatever work happened in between.
func padPasswordResetResponse(ctx context.Context, start time.Time) error {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(resetResponseJitter)+1))
	if err != nil {
		return err
	}

	wait := resetResponseFloor + time.Duration(n.Int64()) - time.Since(start)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
