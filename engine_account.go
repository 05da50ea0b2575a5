package fitAuth

import (
	"context"
	"errors"
	"strings"
)

// Register creates an account. The email is trimmed and lowercased before
// any lookup, the password is hashed through the bounded pool, and the
// account is written with a single insert carrying the finished hash.
//
// An email that is already taken returns ErrDuplicateAccount, including
// when a concurrent Register wins the race to the insert.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = normalizeEmail(req.Email)
	if err := e.validator.check(req); err != nil {
		e.metricInc(MetricRegisterValidationFailure)
		return nil, err
	}

	_, err := e.accounts.GetAccountByEmail(ctx, req.Email)
	switch {
	case err == nil:
		e.registerDuplicate(ctx)
		return nil, ErrDuplicateAccount
	case !errors.Is(err, ErrStoreNotFound):
		return nil, internalError(err)
	}

	hash, err := e.passwords.Hash(ctx, req.Password)
	if err != nil {
		return nil, internalError(err)
	}

	rec, err := e.accounts.CreateAccount(ctx, NewAccount{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrStoreDuplicate) {
			e.registerDuplicate(ctx)
			return nil, ErrDuplicateAccount
		}
		return nil, internalError(err)
	}

	result := &RegisterResult{Account: rec.Account}
	var tokenID string
	if e.config.Account.IssueTokenOnRegister {
		tok, err := e.jwtManager.Issue(rec.ID)
		if err != nil {
			return nil, internalError(err)
		}
		result.Token = tok.Value
		result.ExpiresAt = tok.ExpiresAt
		tokenID = tok.ID
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, rec.ID, tokenID, nil, nil)
	return result, nil
}

func (e *Engine) registerDuplicate(ctx context.Context) {
	e.metricInc(MetricRegisterDuplicate)
	e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrDuplicateAccount, nil)
}
