package snapzy

import (
	"context"
	"time"
)

// AccountState is the derived lifecycle position of an [AccountRecord] in the
// verification state machine. Records never store the state; it is a pure
// function of the verification flag and credential fields.
type AccountState uint8

const (
	// StateOTPPending is an account created by an OTP request and not yet verified.
	StateOTPPending AccountState = iota
	// StateVerifiedUnregistered is a verified account without credentials.
	StateVerifiedUnregistered
	// StateRegistered is a verified account with username and password set.
	StateRegistered
)

// AccountRecord is the full persisted account row. It carries OTP challenge
// fields, credentials, and profile data. A record in pending shape holds only
// ID, Email and the OTP fields; Verified implies the OTP fields are cleared.
type AccountRecord struct {
	ID           string
	Email        string
	Username     string
	FullName     string
	PasswordHash string
	OTPCode      string
	OTPExpiresAt time.Time
	Verified     bool
	Followers    []string
	Following    []string
	ProfileImg   string
	CoverImg     string
	Bio          string
	Link         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// State derives the account's position in the verification state machine.
func (a *AccountRecord) State() AccountState {
	switch {
	case !a.Verified:
		return StateOTPPending
	case a.PasswordHash == "":
		return StateVerifiedUnregistered
	default:
		return StateRegistered
	}
}

// Public returns the projection of the record that is safe to return to
// clients. It never includes the password hash or OTP fields.
func (a *AccountRecord) Public() Account {
	return Account{
		ID:         a.ID,
		Username:   a.Username,
		FullName:   a.FullName,
		Email:      a.Email,
		Followers:  a.Followers,
		Following:  a.Following,
		ProfileImg: a.ProfileImg,
		CoverImg:   a.CoverImg,
		Bio:        a.Bio,
		Link:       a.Link,
	}
}

// Account is the public projection of an account, as serialized on the wire.
type Account struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	FullName   string   `json:"fullName"`
	Email      string   `json:"email"`
	Followers  []string `json:"followers"`
	Following  []string `json:"following"`
	ProfileImg string   `json:"profileImg"`
	CoverImg   string   `json:"coverImg"`
	Bio        string   `json:"bio"`
	Link       string   `json:"link"`
}

// AccountStore is the interface callers must implement to persist accounts.
// Implementations must enforce email and username uniqueness at the storage
// layer and report violations as [ErrDuplicateEmail] / [ErrDuplicateUsername];
// missing rows are reported as [ErrAccountNotFound]. Any other error is
// treated as storage unavailability.
//
// The engine performs one read followed by one write per transition and does
// not wrap the pair in a transaction; see the issuance guard in [Builder]
// for the concurrent-issuance case.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*AccountRecord, error)
	FindByUsername(ctx context.Context, username string) (*AccountRecord, error)
	CreatePending(ctx context.Context, email string) (*AccountRecord, error)
	Save(ctx context.Context, account *AccountRecord) error
}

// Notifier delivers outbound account mail. The engine calls it exactly once
// per successful OTP issuance and once per completed registration; it never
// retries.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
	SendWelcome(ctx context.Context, email, fullName string) error
}

// RegistrationRequest is the input for [Engine.CompleteRegistration].
type RegistrationRequest struct {
	Email    string
	Username string
	FullName string
	Password string
}

// LoginResult is returned by [Engine.Login]: a signed bearer token and the
// public projection of the authenticated account.
type LoginResult struct {
	Token string
	User  Account
}
