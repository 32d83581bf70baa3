package embedder

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cooldown defaults
const (
	DefaultFailureThreshold = 3
	DefaultCooldownPeriod   = 30 * time.Second
)

// Gated wraps an Embedder with a circuit-style cooldown. After
// FailureThreshold consecutive provider failures the gate opens and every
// call fails fast with ErrCoolingDown until CooldownPeriod elapses. The
// first call after the window closes probes the provider again; a success
// resets the failure count.
//
// Validation errors (empty text, oversized batch) do not count as provider
// failures and never trip the gate.
type Gated struct {
	inner Embedder

	threshold int
	period    time.Duration
	now       func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time
}

// GateOption configures a Gated embedder.
type GateOption func(*Gated)

// WithFailureThreshold sets the consecutive-failure count that trips the gate.
func WithFailureThreshold(n int) GateOption {
	return func(g *Gated) {
		if n > 0 {
			g.threshold = n
		}
	}
}

// WithCooldownPeriod sets how long the gate stays open after tripping.
func WithCooldownPeriod(d time.Duration) GateOption {
	return func(g *Gated) {
		if d > 0 {
			g.period = d
		}
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) GateOption {
	return func(g *Gated) {
		g.now = now
	}
}

// NewGated wraps inner with a cooldown gate.
func NewGated(inner Embedder, opts ...GateOption) *Gated {
	g := &Gated{
		inner:     inner,
		threshold: DefaultFailureThreshold,
		period:    DefaultCooldownPeriod,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CoolingDown reports whether the gate is currently open.
func (g *Gated) CoolingDown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open()
}

// open reports gate state. Caller holds g.mu.
func (g *Gated) open() bool {
	if g.failures < g.threshold {
		return false
	}
	if g.now().Sub(g.openedAt) >= g.period {
		// Window elapsed. Allow one probe through by dropping just below
		// the threshold; another failure re-opens the gate immediately.
		g.failures = g.threshold - 1
		return false
	}
	return true
}

// admit checks the gate before a provider call. Caller must not hold g.mu.
func (g *Gated) admit() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open() {
		remaining := g.period - g.now().Sub(g.openedAt)
		return fmt.Errorf("%w: %s unavailable for %s", ErrCoolingDown, g.inner.Provider(), remaining.Round(time.Second))
	}
	return nil
}

// record updates the failure count after a provider call.
func (g *Gated) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		g.failures = 0
		return
	}
	g.failures++
	if g.failures == g.threshold {
		g.openedAt = g.now()
	}
}

func (g *Gated) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := g.admit(); err != nil {
		return nil, err
	}

	emb, err := g.inner.GenerateEmbedding(ctx, req)
	g.record(err)
	return emb, err
}

func (g *Gated) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if err := g.admit(); err != nil {
		return nil, err
	}

	resp, err := g.inner.GenerateBatch(ctx, req)
	g.record(err)
	return resp, err
}

func (g *Gated) Dimension() int {
	return g.inner.Dimension()
}

func (g *Gated) Provider() string {
	return g.inner.Provider()
}

func (g *Gated) Model() string {
	return g.inner.Model()
}

func (g *Gated) Close() error {
	return g.inner.Close()
}
