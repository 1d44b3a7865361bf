package coursegate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/coursegate/audit"
	"github.com/MrEthical07/coursegate/envelope"
	"github.com/MrEthical07/coursegate/jwt"
	"github.com/MrEthical07/coursegate/session"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/blake3"
)

const handleKeyContext = "coursegate 2024 session listing handle v1"

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store

	trail    audit.Trail
	observer audit.Sink

	verifier    CredentialVerifier
	users       UserDirectory
	enrollments EnrollmentLookup
	resolvers   []PrincipalResolver

	logger *slog.Logger
	clock  func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores sessions in Redis under Session.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore uses store instead of Redis. It takes precedence over WithRedis.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithAuditTrail sets the durable trail. Required.
func (b *Builder) WithAuditTrail(trail audit.Trail) *Builder {
	b.trail = trail
	return b
}

// WithAuditObserver mirrors every durably appended event to sink asynchronously.
func (b *Builder) WithAuditObserver(sink audit.Sink) *Builder {
	b.observer = sink
	return b
}

// WithCredentialVerifier enables Login.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithUserDirectory enables bearer resolution and the active-user re-check on
// session resolution.
func (b *Builder) WithUserDirectory(users UserDirectory) *Builder {
	b.users = users
	return b
}

// WithEnrollmentLookup enables premium-tier decisions in Authorize.
func (b *Builder) WithEnrollmentLookup(lookup EnrollmentLookup) *Builder {
	b.enrollments = lookup
	return b
}

// WithResolver appends a principal resolver after the built-in session and
// bearer resolvers.
func (b *Builder) WithResolver(r PrincipalResolver) *Builder {
	if r != nil {
		b.resolvers = append(b.resolvers, r)
	}
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("session store or redis client required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.RetentionGrace)
	}
	if b.trail == nil {
		return nil, errors.New("audit trail required")
	}

	env, err := envelope.New(cfg.Envelope.Key)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		store:       store,
		envelope:    env,
		trail:       b.trail,
		verifier:    b.verifier,
		users:       b.users,
		enrollments: b.enrollments,
		logger:      logger,
		metrics:     NewMetrics(cfg.Metrics),
		now:         now,
	}
	blake3.DeriveKey(handleKeyContext, cfg.Envelope.Key, engine.handleKey[:])

	if b.observer != nil {
		engine.observers = audit.NewDispatcher(audit.DispatcherConfig{
			BufferSize: cfg.Audit.ObserverBufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.observer)
	}

	if cfg.Bearer.Enabled {
		if b.users == nil {
			return nil, errors.New("bearer tokens require a user directory")
		}
		key := cfg.Bearer.Secret
		if cfg.Bearer.SigningMethod == jwt.MethodEd25519 {
			key = cfg.Bearer.PrivateKey
		}
		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.Bearer.TokenTTL,
			SigningMethod: cfg.Bearer.SigningMethod,
			PrivateKey:    cloneBytes(key),
			PublicKey:     cloneBytes(cfg.Bearer.PublicKey),
			Issuer:        cfg.Bearer.Issuer,
			Audience:      cfg.Bearer.Audience,
			Leeway:        cfg.Bearer.Leeway,
			Now:           now,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		engine.bearer = jm
	}

	if cfg.Playback.Enabled {
		pm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.Playback.TTL,
			SigningMethod: jwt.MethodHS256,
			PrivateKey:    cloneBytes(cfg.playbackSecret()),
			Issuer:        cfg.Bearer.Issuer,
			Now:           now,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		engine.playback = pm
	}

	engine.resolvers = append(engine.resolvers, sessionResolver{engine: engine})
	if engine.bearer != nil {
		engine.resolvers = append(engine.resolvers, bearerResolver{engine: engine})
	}
	engine.resolvers = append(engine.resolvers, b.resolvers...)

	b.built = true
	return engine, nil
}
