package snapzy

import (
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("secret")
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OTP.TTL != 10*time.Minute {
		t.Errorf("OTP TTL = %v, want 10m", cfg.OTP.TTL)
	}
	if cfg.Password.MinLength != 6 {
		t.Errorf("password MinLength = %d, want 6", cfg.Password.MinLength)
	}
	if cfg.Token.TTL != 7*24*time.Hour {
		t.Errorf("token TTL = %v, want 168h", cfg.Token.TTL)
	}
	if cfg.Token.SigningMethod != "hs256" {
		t.Errorf("signing method = %q, want hs256", cfg.Token.SigningMethod)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero otp ttl", func(c *Config) { c.OTP.TTL = 0 }, true},
		{"zero min length", func(c *Config) { c.Password.MinLength = 0 }, true},
		{"zero token ttl", func(c *Config) { c.Token.TTL = 0 }, true},
		{"hs256 without secret", func(c *Config) { c.Token.Secret = nil }, true},
		{"unknown method", func(c *Config) { c.Token.SigningMethod = "rs512" }, true},
		{"ed25519 without keys", func(c *Config) {
			c.Token.SigningMethod = "ed25519"
			c.Token.Secret = nil
		}, true},
		{"guard without ttl", func(c *Config) { c.Guard.LockTTL = 0 }, true},
		{"disabled guard without ttl", func(c *Config) {
			c.Guard.Enabled = false
			c.Guard.LockTTL = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := validConfig()
	clone := cloneConfig(cfg)

	clone.Token.Secret[0] ^= 0xFF
	if cfg.Token.Secret[0] == clone.Token.Secret[0] {
		t.Error("clone must not share secret backing array")
	}
}
