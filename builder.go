package ssokit

import (
	"errors"
	"fmt"

	internalaudit "github.com/launchdeck/ssokit/internal/audit"

	"github.com/launchdeck/ssokit/gateway"
	"github.com/launchdeck/ssokit/store"
)

// Builder defines a public type used by ssokit APIs.
//
// Builder assembles a Coordinator from a Config plus pluggable ports. Only
// the gateway is mandatory; everything else has a sensible default. A
// Builder is single-use.
type Builder struct {
	config     Config
	gateway    gateway.Gateway
	kv         store.KV
	clock      Clock
	clientInfo ClientInfoProvider
	auditSink  AuditSink
	built      bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithGateway describes the withgateway operation and its observable behavior.
func (b *Builder) WithGateway(gw gateway.Gateway) *Builder {
	b.gateway = gw
	return b
}

// WithStorage describes the withstorage operation and its observable behavior.
//
// WithStorage sets the key-value backend for the durable session cache.
// Defaults to an in-process [store.MemoryKV].
func (b *Builder) WithStorage(kv store.KV) *Builder {
	b.kv = kv
	return b
}

// WithClock describes the withclock operation and its observable behavior.
//
// Tests inject a fake clock here to drive the renewal loop deterministically.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithClientInfo describes the withclientinfo operation and its observable behavior.
func (b *Builder) WithClientInfo(provider ClientInfoProvider) *Builder {
	b.clientInfo = provider
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, fills in defaulted ports and returns a
// ready Coordinator in the Loading state. Call [Coordinator.Start] next.
func (b *Builder) Build() (*Coordinator, error) {
	if b.built {
		return nil, errors.New("ssokit: builder already used")
	}
	b.built = true

	if b.gateway == nil {
		return nil, errors.New("ssokit: gateway is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, fmt.Errorf("ssokit: invalid config: %w", err)
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}
	kv := b.kv
	if kv == nil {
		kv = store.NewMemoryKV()
	}
	clientInfo := b.clientInfo
	if clientInfo == nil {
		clientInfo = newHTTPClientInfo(b.config.Client)
	}
	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NoOpSink{}
	}

	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, sink)

	return &Coordinator{
		config:     b.config,
		gateway:    b.gateway,
		store:      store.NewStore(kv, b.config.Session.StorageKey, clock.Now),
		clock:      clock,
		clientInfo: clientInfo,
		audit:      dispatcher,
		metrics:    NewMetrics(b.config.Metrics),
		state:      State{IsLoading: true},
		flights:    make(map[string]*loginFlight),
	}, nil
}
