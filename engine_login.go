package snapzy

import (
	"context"
	"errors"
	"strings"
)

// Login authenticates username/password and issues a session token. Unknown
// usernames and wrong passwords both return [ErrInvalidCredentials]; a dummy
// hash verification runs on the unknown-username path so the two failures
// cost the same. An unverified account is reported as [ErrNotVerified].
func (e *Engine) Login(ctx context.Context, username, pass string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, "", "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	acct, err := e.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			_, _ = e.hasher.Verify(pass, e.dummyHash)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLogin, false, "", "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"reason": "unknown_username"}
			})
			return nil, ErrInvalidCredentials
		}
		mapped := storeFailure(err)
		e.emitAudit(ctx, auditEventLogin, false, "", "", mapped, nil)
		return nil, mapped
	}

	if !acct.Verified || acct.PasswordHash == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, acct.ID, acct.Email, ErrNotVerified, nil)
		return nil, ErrNotVerified
	}

	ok, err := e.hasher.Verify(pass, acct.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, acct.ID, acct.Email, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	token, err := e.tokens.Issue(acct.ID, acct.Username)
	if err != nil {
		e.emitAudit(ctx, auditEventLogin, false, acct.ID, acct.Email, err, func() map[string]string {
			return map[string]string{"reason": "token_issuance_failed"}
		})
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, acct.ID, acct.Email, nil, nil)

	return &LoginResult{
		Token: token,
		User:  acct.Public(),
	}, nil
}
