package snapzy

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/snapzy-app/snapzy/internal"
	"github.com/snapzy-app/snapzy/internal/guard"
)

// RequestOTP starts (or restarts) verification for email. For an unseen
// address it creates a pending account; for an unverified one it overwrites
// the previous code (last-write-wins). The code is persisted before the
// notifier is called: a delivery failure returns [ErrNotificationFailed]
// while the stored code stays valid until its expiry.
func (e *Engine) RequestOTP(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		e.emitAudit(ctx, auditEventOTPRequest, false, "", email, ErrInvalidEmail, nil)
		return ErrInvalidEmail
	}

	release, err := e.acquireIssueLock(ctx, auditEventOTPRequest, email)
	if err != nil {
		return err
	}
	defer release()

	acct, err := e.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, ErrAccountNotFound):
		acct, err = e.store.CreatePending(ctx, email)
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost the creation race; the row exists now.
			acct, err = e.store.FindByEmail(ctx, email)
		}
		if err != nil {
			mapped := storeFailure(err)
			e.emitAudit(ctx, auditEventOTPRequest, false, "", email, mapped, nil)
			return mapped
		}
	default:
		mapped := storeFailure(err)
		e.emitAudit(ctx, auditEventOTPRequest, false, "", email, mapped, nil)
		return mapped
	}

	if acct.Verified {
		e.emitAudit(ctx, auditEventOTPRequest, false, acct.ID, email, ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	if err := e.issueOTP(ctx, auditEventOTPRequest, acct); err != nil {
		return err
	}

	e.metricInc(MetricOTPRequested)
	e.emitAudit(ctx, auditEventOTPRequest, true, acct.ID, email, nil, nil)
	return nil
}

// ResendOTP regenerates the code for an existing, unverified account. The
// previous code is overwritten unconditionally and the expiry window
// restarts; there is no code history.
func (e *Engine) ResendOTP(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		e.emitAudit(ctx, auditEventOTPResend, false, "", email, ErrInvalidEmail, nil)
		return ErrInvalidEmail
	}

	release, err := e.acquireIssueLock(ctx, auditEventOTPResend, email)
	if err != nil {
		return err
	}
	defer release()

	acct, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		mapped := storeFailure(err)
		e.emitAudit(ctx, auditEventOTPResend, false, "", email, mapped, nil)
		return mapped
	}
	if acct.Verified {
		e.emitAudit(ctx, auditEventOTPResend, false, acct.ID, email, ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	if err := e.issueOTP(ctx, auditEventOTPResend, acct); err != nil {
		return err
	}

	e.metricInc(MetricOTPResent)
	e.emitAudit(ctx, auditEventOTPResend, true, acct.ID, email, nil, nil)
	return nil
}

// VerifyOTP checks submittedCode against the stored challenge. A code is
// rejected when it mismatches or when the current instant has reached the
// stored expiry (the expiry instant itself counts as expired). On success
// the account becomes verified and both OTP fields are cleared; a second
// call then fails with [ErrAlreadyVerified].
func (e *Engine) VerifyOTP(ctx context.Context, email, submittedCode string) error {
	if err := e.ready(); err != nil {
		return err
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		e.emitAudit(ctx, auditEventOTPVerify, false, "", email, ErrInvalidEmail, nil)
		return ErrInvalidEmail
	}

	acct, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		mapped := storeFailure(err)
		e.emitAudit(ctx, auditEventOTPVerify, false, "", email, mapped, nil)
		return mapped
	}
	if acct.Verified {
		e.emitAudit(ctx, auditEventOTPVerify, false, acct.ID, email, ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	if !otpMatches(acct, submittedCode, time.Now()) {
		e.metricInc(MetricOTPRejected)
		e.emitAudit(ctx, auditEventOTPVerify, false, acct.ID, email, ErrInvalidOTP, nil)
		return ErrInvalidOTP
	}

	acct.Verified = true
	acct.OTPCode = ""
	acct.OTPExpiresAt = time.Time{}

	if err := e.store.Save(ctx, acct); err != nil {
		mapped := storeFailure(err)
		e.emitAudit(ctx, auditEventOTPVerify, false, acct.ID, email, mapped, nil)
		return mapped
	}

	e.metricInc(MetricOTPVerified)
	e.emitAudit(ctx, auditEventOTPVerify, true, acct.ID, email, nil, nil)
	return nil
}

// issueOTP generates, persists and delivers a fresh code for acct.
func (e *Engine) issueOTP(ctx context.Context, eventType string, acct *AccountRecord) error {
	code, err := internal.NewOTP()
	if err != nil {
		e.emitAudit(ctx, eventType, false, acct.ID, acct.Email, err, func() map[string]string {
			return map[string]string{"reason": "otp_generation_failed"}
		})
		return errors.Join(ErrStoreUnavailable, err)
	}

	acct.OTPCode = code
	acct.OTPExpiresAt = time.Now().Add(e.config.OTP.TTL)

	if err := e.store.Save(ctx, acct); err != nil {
		mapped := storeFailure(err)
		e.emitAudit(ctx, eventType, false, acct.ID, acct.Email, mapped, nil)
		return mapped
	}

	if err := e.notifier.SendOTP(ctx, acct.Email, code, e.config.OTP.TTL); err != nil {
		// The code is already persisted; the caller learns delivery failed
		// and can resend, which mints a fresh code anyway.
		e.metricInc(MetricOTPMailFailed)
		e.emitAudit(ctx, auditEventOTPMail, false, acct.ID, acct.Email, err, nil)
		return ErrNotificationFailed
	}

	return nil
}

func (e *Engine) acquireIssueLock(ctx context.Context, eventType, email string) (func(), error) {
	if e.issueGuard == nil {
		return func() {}, nil
	}

	release, err := e.issueGuard.Acquire(ctx, email)
	switch {
	case err == nil:
		return release, nil
	case errors.Is(err, guard.ErrHeld):
		e.metricInc(MetricIssuanceContended)
		e.emitAudit(ctx, eventType, false, "", email, ErrOTPRequestInFlight, nil)
		return nil, ErrOTPRequestInFlight
	default:
		// Guard is best-effort: on Redis failure fall back to unguarded
		// last-write-wins issuance.
		e.emitAudit(ctx, eventType, false, "", email, err, func() map[string]string {
			return map[string]string{"reason": "issuance_guard_unavailable"}
		})
		return func() {}, nil
	}
}

// otpMatches compares codes in constant time and applies the strict expiry
// boundary: now >= expiry is expired.
func otpMatches(acct *AccountRecord, submitted string, now time.Time) bool {
	if acct.OTPCode == "" || acct.OTPExpiresAt.IsZero() {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(acct.OTPCode), []byte(submitted)) != 1 {
		return false
	}
	return now.Before(acct.OTPExpiresAt)
}
