package snapzy

import (
	"context"
	"errors"
	"strings"
)

// CompleteRegistration fills in the credential fields of a verified account.
// It requires a verified, not-yet-credentialed account, a globally unique
// username, and a password meeting the configured minimum length. On success
// a welcome notification is dispatched on a detached goroutine; its failure
// is routed to the audit sink and never fails the registration.
func (e *Engine) CompleteRegistration(ctx context.Context, req RegistrationRequest) error {
	if err := e.ready(); err != nil {
		return err
	}

	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	if !validEmail(email) {
		e.emitAudit(ctx, auditEventRegistration, false, "", email, ErrInvalidEmail, nil)
		return ErrInvalidEmail
	}
	if username == "" || strings.TrimSpace(req.FullName) == "" {
		e.metricInc(MetricRegistrationRejected)
		e.emitAudit(ctx, auditEventRegistration, false, "", email, ErrRegistrationInvalid, nil)
		return ErrRegistrationInvalid
	}
	if len(req.Password) < e.config.Password.MinLength {
		e.metricInc(MetricRegistrationRejected)
		e.emitAudit(ctx, auditEventRegistration, false, "", email, ErrWeakPassword, nil)
		return ErrWeakPassword
	}

	acct, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		mapped := storeFailure(err)
		e.emitAudit(ctx, auditEventRegistration, false, "", email, mapped, nil)
		return mapped
	}
	if !acct.Verified {
		e.metricInc(MetricRegistrationRejected)
		e.emitAudit(ctx, auditEventRegistration, false, acct.ID, email, ErrNotVerified, nil)
		return ErrNotVerified
	}
	if acct.State() == StateRegistered {
		e.metricInc(MetricRegistrationRejected)
		e.emitAudit(ctx, auditEventRegistration, false, acct.ID, email, ErrAlreadyRegistered, nil)
		return ErrAlreadyRegistered
	}

	// Pre-check for a friendlier error; the unique index on save is the
	// authoritative guard.
	other, err := e.store.FindByUsername(ctx, username)
	if err == nil && other.ID != acct.ID {
		e.metricInc(MetricRegistrationRejected)
		e.emitAudit(ctx, auditEventRegistration, false, acct.ID, email, ErrDuplicateUsername, nil)
		return ErrDuplicateUsername
	}
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		mapped := storeFailure(err)
		e.emitAudit(ctx, auditEventRegistration, false, acct.ID, email, mapped, nil)
		return mapped
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventRegistration, false, acct.ID, email, err, nil)
		return errors.Join(ErrStoreUnavailable, err)
	}

	acct.Username = username
	acct.FullName = strings.TrimSpace(req.FullName)
	acct.PasswordHash = hash

	if err := e.store.Save(ctx, acct); err != nil {
		mapped := storeFailure(err)
		e.emitAudit(ctx, auditEventRegistration, false, acct.ID, email, mapped, nil)
		return mapped
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventRegistration, true, acct.ID, email, nil, nil)

	e.sendWelcomeAsync(ctx, acct.ID, acct.Email, acct.FullName)
	return nil
}

// sendWelcomeAsync delivers the welcome mail detached from the request
// lifecycle. The context is decoupled from the caller's cancellation so the
// send is not aborted when the HTTP response is already written.
func (e *Engine) sendWelcomeAsync(ctx context.Context, accountID, email, fullName string) {
	detached := context.WithoutCancel(ctx)

	e.background.Add(1)
	go func() {
		defer e.background.Done()

		if err := e.notifier.SendWelcome(detached, email, fullName); err != nil {
			e.metricInc(MetricWelcomeMailFailed)
			e.emitAudit(detached, auditEventWelcomeMail, false, accountID, email, err, nil)
			return
		}
		e.emitAudit(detached, auditEventWelcomeMail, true, accountID, email, nil, nil)
	}()
}
