package snapzy

import "errors"

var (
	// ErrInvalidEmail is returned when an email fails shape validation.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrAccountNotFound is returned when no account exists for the given key.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAlreadyVerified is returned when an OTP transition targets a verified account.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrInvalidOTP is returned when the submitted code mismatches or has expired.
	ErrInvalidOTP = errors.New("invalid or expired otp")
	// ErrNotVerified is returned when registration or login requires a verified account.
	ErrNotVerified = errors.New("account not verified")
	// ErrAlreadyRegistered is returned when registration targets a credentialed account.
	ErrAlreadyRegistered = errors.New("account already registered")
	// ErrRegistrationInvalid is returned when a registration request is missing fields.
	ErrRegistrationInvalid = errors.New("invalid registration request")
	// ErrDuplicateEmail is returned when the email unique index rejects a write.
	ErrDuplicateEmail = errors.New("email already taken")
	// ErrDuplicateUsername is returned when the username unique index rejects a write.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrWeakPassword is returned when a password is shorter than the configured minimum.
	ErrWeakPassword = errors.New("password below minimum length")
	// ErrInvalidCredentials is returned on login failure. Unknown usernames and
	// wrong passwords are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrOTPRequestInFlight is returned when the issuance guard holds a lock
	// for the same email.
	ErrOTPRequestInFlight = errors.New("otp issuance already in progress")
	// ErrNotificationFailed is returned when the OTP mail could not be delivered.
	// The OTP has been persisted; resending issues a fresh code.
	ErrNotificationFailed = errors.New("notification delivery failed")
	// ErrStoreUnavailable wraps storage failures that are not domain errors.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is returned when an Engine method runs before Build wiring.
	ErrEngineNotReady = errors.New("engine not initialized")
)
