package snapzy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/snapzy-app/snapzy"
	"github.com/snapzy-app/snapzy/store/memstore"
)

// fakeNotifier records deliveries and injects failures.
type fakeNotifier struct {
	mu         sync.Mutex
	otpCalls   []string
	welcomes   []string
	otpErr     error
	welcomeErr error
}

func (f *fakeNotifier) SendOTP(_ context.Context, email, _ string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.otpErr != nil {
		return f.otpErr
	}
	f.otpCalls = append(f.otpCalls, email)
	return nil
}

func (f *fakeNotifier) SendWelcome(_ context.Context, email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.welcomeErr != nil {
		return f.welcomeErr
	}
	f.welcomes = append(f.welcomes, email)
	return nil
}

func (f *fakeNotifier) otpCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.otpCalls)
}

func (f *fakeNotifier) welcomeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.welcomes)
}

func newTestEngine(t *testing.T, store snapzy.AccountStore, notifier snapzy.Notifier) *snapzy.Engine {
	t.Helper()

	cfg := snapzy.DefaultConfig()
	cfg.Token.Secret = []byte("test-secret-0123456789")
	// Cheap hashing keeps the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := snapzy.New().
		WithConfig(cfg).
		WithStore(store).
		WithNotifier(notifier).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func storedCode(t *testing.T, store *memstore.Store, email string) string {
	t.Helper()
	acct, err := store.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail(%q): %v", email, err)
	}
	if acct.OTPCode == "" {
		t.Fatalf("no OTP stored for %q", email)
	}
	return acct.OTPCode
}

func TestRequestOTPCreatesPendingAccount(t *testing.T) {
	store := memstore.New()
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, store, notifier)
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, "Alice@Example.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}

	acct, err := store.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if acct.Verified {
		t.Error("new account must not be verified")
	}
	if acct.State() != snapzy.StateOTPPending {
		t.Errorf("state = %v, want StateOTPPending", acct.State())
	}
	if len(acct.OTPCode) != 6 {
		t.Errorf("OTP code %q, want 6 digits", acct.OTPCode)
	}
	if !acct.OTPExpiresAt.After(time.Now()) {
		t.Error("OTP expiry must be in the future")
	}
	if notifier.otpCount() != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.otpCount())
	}
}

func TestRequestOTPInvalidEmail(t *testing.T) {
	engine := newTestEngine(t, memstore.New(), &fakeNotifier{})

	for _, email := range []string{"", "no-at-sign", "a@b", "sp ace@example.com", "a@@example.com"} {
		if err := engine.RequestOTP(context.Background(), email); !errors.Is(err, snapzy.ErrInvalidEmail) {
			t.Errorf("RequestOTP(%q) = %v, want ErrInvalidEmail", email, err)
		}
	}
}

func TestRequestOTPAlreadyVerified(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, "bob@example.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	code := storedCode(t, store, "bob@example.com")
	if err := engine.VerifyOTP(ctx, "bob@example.com", code); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	if err := engine.RequestOTP(ctx, "bob@example.com"); !errors.Is(err, snapzy.ErrAlreadyVerified) {
		t.Errorf("RequestOTP on verified account = %v, want ErrAlreadyVerified", err)
	}
}

func TestVerifyOTPSuccessClearsChallenge(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, "carol@example.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	code := storedCode(t, store, "carol@example.com")

	if err := engine.VerifyOTP(ctx, "carol@example.com", code); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	acct, err := store.FindByEmail(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if !acct.Verified {
		t.Error("account must be verified")
	}
	if acct.OTPCode != "" || !acct.OTPExpiresAt.IsZero() {
		t.Errorf("OTP fields not cleared: code=%q expiry=%v", acct.OTPCode, acct.OTPExpiresAt)
	}

	// Replaying the same code must fail now.
	if err := engine.VerifyOTP(ctx, "carol@example.com", code); !errors.Is(err, snapzy.ErrAlreadyVerified) {
		t.Errorf("replay = %v, want ErrAlreadyVerified", err)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, "dave@example.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	code := storedCode(t, store, "dave@example.com")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if err := engine.VerifyOTP(ctx, "dave@example.com", wrong); !errors.Is(err, snapzy.ErrInvalidOTP) {
		t.Errorf("VerifyOTP(wrong) = %v, want ErrInvalidOTP", err)
	}

	// A rejected attempt must not consume the stored code.
	if err := engine.VerifyOTP(ctx, "dave@example.com", code); err != nil {
		t.Errorf("VerifyOTP(correct after wrong) = %v", err)
	}
}

func TestVerifyOTPExpiryBoundary(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, "eve@example.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	acct, err := store.FindByEmail(ctx, "eve@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	code := acct.OTPCode

	// Expiry in the past: the code is dead even though it matches.
	acct.OTPExpiresAt = time.Now().Add(-time.Second)
	if err := store.Save(ctx, acct); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := engine.VerifyOTP(ctx, "eve@example.com", code); !errors.Is(err, snapzy.ErrInvalidOTP) {
		t.Errorf("expired code = %v, want ErrInvalidOTP", err)
	}

	// The stored expiry instant itself also counts as expired.
	acct, _ = store.FindByEmail(ctx, "eve@example.com")
	acct.OTPExpiresAt = time.Now()
	if err := store.Save(ctx, acct); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := engine.VerifyOTP(ctx, "eve@example.com", code); !errors.Is(err, snapzy.ErrInvalidOTP) {
		t.Errorf("code at expiry instant = %v, want ErrInvalidOTP", err)
	}
}

func TestVerifyOTPUnknownAccount(t *testing.T) {
	engine := newTestEngine(t, memstore.New(), &fakeNotifier{})

	err := engine.VerifyOTP(context.Background(), "ghost@example.com", "123456")
	if !errors.Is(err, snapzy.ErrAccountNotFound) {
		t.Errorf("VerifyOTP(unknown) = %v, want ErrAccountNotFound", err)
	}
}

func TestResendOTPOverwritesCode(t *testing.T) {
	store := memstore.New()
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, store, notifier)
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, "frank@example.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	first := storedCode(t, store, "frank@example.com")

	// Age the first code so the resend's fresh window is observable.
	acct, _ := store.FindByEmail(ctx, "frank@example.com")
	acct.OTPExpiresAt = time.Now().Add(time.Minute)
	if err := store.Save(ctx, acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := engine.ResendOTP(ctx, "frank@example.com"); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	acct, _ = store.FindByEmail(ctx, "frank@example.com")
	second := acct.OTPCode

	if !acct.OTPExpiresAt.After(time.Now().Add(5 * time.Minute)) {
		t.Error("resend must restart the expiry window")
	}
	if notifier.otpCount() != 2 {
		t.Errorf("notifier calls = %d, want 2", notifier.otpCount())
	}

	// Only the latest code is live. If the draw collided, the old code
	// still verifying is indistinguishable, so only assert when distinct.
	if first != second {
		if err := engine.VerifyOTP(ctx, "frank@example.com", first); !errors.Is(err, snapzy.ErrInvalidOTP) {
			t.Errorf("old code after resend = %v, want ErrInvalidOTP", err)
		}
	}
	if err := engine.VerifyOTP(ctx, "frank@example.com", second); err != nil {
		t.Errorf("latest code = %v, want success", err)
	}
}

func TestResendOTPUnknownAccount(t *testing.T) {
	engine := newTestEngine(t, memstore.New(), &fakeNotifier{})

	err := engine.ResendOTP(context.Background(), "ghost@example.com")
	if !errors.Is(err, snapzy.ErrAccountNotFound) {
		t.Errorf("ResendOTP(unknown) = %v, want ErrAccountNotFound", err)
	}
}

func TestRequestOTPDeliveryFailureKeepsCode(t *testing.T) {
	store := memstore.New()
	notifier := &fakeNotifier{otpErr: errors.New("smtp down")}
	engine := newTestEngine(t, store, notifier)
	ctx := context.Background()

	err := engine.RequestOTP(ctx, "grace@example.com")
	if !errors.Is(err, snapzy.ErrNotificationFailed) {
		t.Fatalf("RequestOTP = %v, want ErrNotificationFailed", err)
	}

	// The code was persisted before the send, so it is still verifiable.
	code := storedCode(t, store, "grace@example.com")
	if err := engine.VerifyOTP(ctx, "grace@example.com", code); err != nil {
		t.Errorf("VerifyOTP after delivery failure = %v", err)
	}
}

func TestOTPMetrics(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, "hank@example.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	_ = engine.VerifyOTP(ctx, "hank@example.com", "bogus0")
	code := storedCode(t, store, "hank@example.com")
	if err := engine.VerifyOTP(ctx, "hank@example.com", code); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if got := snap.Counters[snapzy.MetricOTPRequested]; got != 1 {
		t.Errorf("MetricOTPRequested = %d, want 1", got)
	}
	if got := snap.Counters[snapzy.MetricOTPRejected]; got != 1 {
		t.Errorf("MetricOTPRejected = %d, want 1", got)
	}
	if got := snap.Counters[snapzy.MetricOTPVerified]; got != 1 {
		t.Errorf("MetricOTPVerified = %d, want 1", got)
	}
}
