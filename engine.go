package snapzy

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/snapzy-app/snapzy/internal/guard"
	"github.com/snapzy-app/snapzy/jwt"
	"github.com/snapzy-app/snapzy/password"
)

// emailShape is the acceptance pattern for account emails: one non-space
// local part, "@", one non-space domain containing at least one dot.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Engine runs the Snapzy verification state machine. Construct it through
// [Builder.Build]; after that, all methods are safe for concurrent use.
type Engine struct {
	config     Config
	store      AccountStore
	notifier   Notifier
	issueGuard *guard.Guard
	audit      *auditDispatcher
	metrics    *Metrics
	hasher     *password.Argon2
	tokens     *jwt.Manager
	dummyHash  string

	// background tracks fire-and-forget notification goroutines so Close
	// can wait them out.
	background sync.WaitGroup
}

// Close flushes the audit dispatcher and waits for in-flight background
// notifications. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.background.Wait()
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// ParseToken verifies a session token and returns its claims. HTTP
// middleware uses this to guard authenticated routes.
func (e *Engine) ParseToken(tokenStr string) (*jwt.SessionClaims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	return e.tokens.Parse(tokenStr)
}

// FindAccount returns the account owning username, for authenticated
// profile reads. The caller must have verified the session token first.
func (e *Engine) FindAccount(ctx context.Context, username string) (*AccountRecord, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	acct, err := e.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure(err)
	}
	return acct, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.notifier == nil || e.hasher == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	return nil
}

// normalizeEmail lowercases and trims the address; uniqueness is enforced on
// the normalized form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return emailShape.MatchString(email)
}

func storeFailure(err error) error {
	switch {
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrDuplicateUsername):
		return err
	default:
		return errors.Join(ErrStoreUnavailable, err)
	}
}
