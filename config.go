package snapzy

import (
	"errors"
	"time"
)

// Config defines the engine's tunable behavior. Instances are intended to be
// configured during initialization and then treated as immutable.
type Config struct {
	OTP      OTPConfig
	Password PasswordConfig
	Token    TokenConfig
	Guard    GuardConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// OTPConfig controls code generation and expiry.
type OTPConfig struct {
	// TTL is the absolute validity window of an issued code. The stored
	// expiry instant itself counts as expired.
	TTL time.Duration
}

// PasswordConfig carries the Argon2id parameters and the engine-level
// minimum password length policy.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// TokenConfig configures session token issuance.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte // hs256
	PrivateKey    []byte // ed25519
	PublicKey     []byte // ed25519
	Issuer        string
}

// GuardConfig controls the optional per-email OTP issuance lock. The guard
// activates only when the Builder is given a Redis client.
type GuardConfig struct {
	Enabled     bool
	LockTTL     time.Duration
	RedisPrefix string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 10-minute OTP validity,
// 6-character password minimum, 7-day HS256 tokens, audit and metrics on.
func DefaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			TTL: 10 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   6,
		},
		Token: TokenConfig{
			TTL:           7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "snapzy",
		},
		Guard: GuardConfig{
			Enabled:     true,
			LockTTL:     5 * time.Second,
			RedisPrefix: "otpg",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be positive")
	}
	if c.Password.MinLength < 1 {
		return errors.New("password minimum length must be >= 1")
	}
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	switch c.Token.SigningMethod {
	case "hs256":
		if len(c.Token.Secret) == 0 {
			return errors.New("hs256 token signing requires a secret")
		}
	case "ed25519":
		if len(c.Token.PrivateKey) == 0 || len(c.Token.PublicKey) == 0 {
			return errors.New("ed25519 token signing requires a key pair")
		}
	default:
		return errors.New("unsupported token signing method")
	}
	if c.Guard.Enabled && c.Guard.LockTTL <= 0 {
		return errors.New("guard lock TTL must be positive when the guard is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
