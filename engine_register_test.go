package snapzy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/snapzy-app/snapzy"
	"github.com/snapzy-app/snapzy/store/memstore"
)

// verifiedAccount walks an email through request+verify so registration
// tests start from a verified, credential-less account.
func verifiedAccount(t *testing.T, engine *snapzy.Engine, store *memstore.Store, email string) {
	t.Helper()
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, email); err != nil {
		t.Fatalf("RequestOTP(%q): %v", email, err)
	}
	code := storedCode(t, store, email)
	if err := engine.VerifyOTP(ctx, email, code); err != nil {
		t.Fatalf("VerifyOTP(%q): %v", email, err)
	}
}

func TestCompleteRegistrationSuccess(t *testing.T) {
	store := memstore.New()
	notifier := &fakeNotifier{}
	engine := newTestEngine(t, store, notifier)
	ctx := context.Background()

	verifiedAccount(t, engine, store, "iris@example.com")

	err := engine.CompleteRegistration(ctx, snapzy.RegistrationRequest{
		Email:    "iris@example.com",
		Username: "iris",
		FullName: "Iris Chen",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("CompleteRegistration: %v", err)
	}

	acct, err := store.FindByEmail(ctx, "iris@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if acct.State() != snapzy.StateRegistered {
		t.Errorf("state = %v, want StateRegistered", acct.State())
	}
	if acct.Username != "iris" || acct.FullName != "Iris Chen" {
		t.Errorf("credentials not stored: %q %q", acct.Username, acct.FullName)
	}
	if acct.PasswordHash == "" || acct.PasswordHash == "hunter22" {
		t.Error("password must be stored hashed")
	}

	// Close waits out the background welcome delivery.
	engine.Close()
	if notifier.welcomeCount() != 1 {
		t.Errorf("welcome deliveries = %d, want 1", notifier.welcomeCount())
	}
}

func TestCompleteRegistrationRequiresVerification(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	ctx := context.Background()

	if err := engine.RequestOTP(ctx, "jack@example.com"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}

	err := engine.CompleteRegistration(ctx, snapzy.RegistrationRequest{
		Email:    "jack@example.com",
		Username: "jack",
		FullName: "Jack Ryan",
		Password: "secret1",
	})
	if !errors.Is(err, snapzy.ErrNotVerified) {
		t.Errorf("CompleteRegistration(unverified) = %v, want ErrNotVerified", err)
	}
}

func TestCompleteRegistrationUnknownEmail(t *testing.T) {
	engine := newTestEngine(t, memstore.New(), &fakeNotifier{})

	err := engine.CompleteRegistration(context.Background(), snapzy.RegistrationRequest{
		Email:    "ghost@example.com",
		Username: "ghost",
		FullName: "Ghost",
		Password: "secret1",
	})
	if !errors.Is(err, snapzy.ErrAccountNotFound) {
		t.Errorf("CompleteRegistration(unknown) = %v, want ErrAccountNotFound", err)
	}
}

func TestCompleteRegistrationValidation(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	verifiedAccount(t, engine, store, "kate@example.com")

	tests := []struct {
		name string
		req  snapzy.RegistrationRequest
		want error
	}{
		{
			name: "short password",
			req: snapzy.RegistrationRequest{
				Email: "kate@example.com", Username: "kate", FullName: "Kate", Password: "abc",
			},
			want: snapzy.ErrWeakPassword,
		},
		{
			name: "missing username",
			req: snapzy.RegistrationRequest{
				Email: "kate@example.com", FullName: "Kate", Password: "secret1",
			},
			want: snapzy.ErrRegistrationInvalid,
		},
		{
			name: "missing full name",
			req: snapzy.RegistrationRequest{
				Email: "kate@example.com", Username: "kate", Password: "secret1",
			},
			want: snapzy.ErrRegistrationInvalid,
		},
		{
			name: "bad email",
			req: snapzy.RegistrationRequest{
				Email: "not-an-email", Username: "kate", FullName: "Kate", Password: "secret1",
			},
			want: snapzy.ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := engine.CompleteRegistration(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("CompleteRegistration = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompleteRegistrationDuplicateUsername(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	ctx := context.Background()

	verifiedAccount(t, engine, store, "lena@example.com")
	verifiedAccount(t, engine, store, "luke@example.com")

	if err := engine.CompleteRegistration(ctx, snapzy.RegistrationRequest{
		Email: "lena@example.com", Username: "lstar", FullName: "Lena", Password: "secret1",
	}); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	err := engine.CompleteRegistration(ctx, snapzy.RegistrationRequest{
		Email: "luke@example.com", Username: "lstar", FullName: "Luke", Password: "secret1",
	})
	if !errors.Is(err, snapzy.ErrDuplicateUsername) {
		t.Errorf("second registration = %v, want ErrDuplicateUsername", err)
	}

	// The refused account is untouched and can retry with a free name.
	if err := engine.CompleteRegistration(ctx, snapzy.RegistrationRequest{
		Email: "luke@example.com", Username: "luke", FullName: "Luke", Password: "secret1",
	}); err != nil {
		t.Errorf("retry with free username = %v", err)
	}
}

func TestCompleteRegistrationAlreadyRegistered(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store, &fakeNotifier{})
	ctx := context.Background()

	verifiedAccount(t, engine, store, "mia@example.com")
	req := snapzy.RegistrationRequest{
		Email: "mia@example.com", Username: "mia", FullName: "Mia", Password: "secret1",
	}
	if err := engine.CompleteRegistration(ctx, req); err != nil {
		t.Fatalf("CompleteRegistration: %v", err)
	}

	if err := engine.CompleteRegistration(ctx, req); !errors.Is(err, snapzy.ErrAlreadyRegistered) {
		t.Errorf("repeat registration = %v, want ErrAlreadyRegistered", err)
	}
}

func TestWelcomeMailFailureDoesNotFailRegistration(t *testing.T) {
	store := memstore.New()
	notifier := &fakeNotifier{welcomeErr: errors.New("smtp down")}
	engine := newTestEngine(t, store, notifier)
	ctx := context.Background()

	verifiedAccount(t, engine, store, "nina@example.com")

	err := engine.CompleteRegistration(ctx, snapzy.RegistrationRequest{
		Email: "nina@example.com", Username: "nina", FullName: "Nina", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("CompleteRegistration = %v, want success despite welcome failure", err)
	}

	engine.Close()
	snap := engine.MetricsSnapshot()
	if got := snap.Counters[snapzy.MetricWelcomeMailFailed]; got != 1 {
		t.Errorf("MetricWelcomeMailFailed = %d, want 1", got)
	}

	acct, _ := store.FindByEmail(ctx, "nina@example.com")
	if acct.State() != snapzy.StateRegistered {
		t.Errorf("state = %v, want StateRegistered", acct.State())
	}
}
