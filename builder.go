package snapzy

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/snapzy-app/snapzy/internal/guard"
	"github.com/snapzy-app/snapzy/jwt"
	"github.com/snapzy-app/snapzy/password"
)

// Builder wires an [Engine] from its configuration and injected
// capabilities. A Builder is single-use.
type Builder struct {
	config   Config
	store    AccountStore
	notifier Notifier
	redis    *redis.Client

	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore injects the account persistence backend. Required.
func (b *Builder) WithStore(store AccountStore) *Builder {
	b.store = store
	return b
}

// WithNotifier injects the outbound mail capability. Required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithRedis injects the client backing the per-email OTP issuance guard.
// Optional: without it, concurrent issuance falls back to last-write-wins.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAuditSink injects the sink receiving engine audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and dependency set and constructs the
// Engine. The Engine performs no I/O during Build beyond hashing one dummy
// password for login timing equalization.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("account store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		notifier: b.notifier,
	}

	if cfg.Guard.Enabled && b.redis != nil {
		engine.issueGuard = guard.New(b.redis, cfg.Guard.RedisPrefix, cfg.Guard.LockTTL)
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	// Verified against unknown usernames so login cost does not reveal
	// account existence.
	dummyHash, err := hasher.Hash("snapzy.login.equalizer")
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummyHash

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Token.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		Secret:        cloneBytes(cfg.Token.Secret),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tokens

	b.built = true

	return engine, nil
}
