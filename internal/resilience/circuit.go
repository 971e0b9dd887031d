package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = eris.New("gcis upstream circuit is open")

// Breaker stops calling the upstream after Threshold consecutive transient
// failures and lets one probe through once Cooldown has passed.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
	probing  bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Open reports whether calls are currently rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && b.now().Sub(b.openedAt) < b.cooldown
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	if b.probing || b.now().Sub(b.openedAt) < b.cooldown {
		return ErrCircuitOpen
	}
	b.probing = true
	return nil
}

// record updates the breaker with the outcome of a call made under ctx.
// Calls that never got an upstream answer leave the state as it was.
func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasProbe := b.probing
	b.probing = false

	if !reachedUpstream(ctx, err) {
		return
	}

	if !IsTransient(err) {
		if b.open {
			zap.L().Info("gcis circuit closed")
		}
		b.failures = 0
		b.open = false
		return
	}

	b.failures++
	if wasProbe || b.failures >= b.threshold {
		if !b.open || wasProbe {
			zap.L().Warn("gcis circuit opened", zap.Int("failures", b.failures), zap.Error(err))
		}
		b.open = true
		b.openedAt = b.now()
	}
}

// reachedUpstream reports whether err reflects the upstream's behavior
// rather than a rejected request or a caller that gave up.
func reachedUpstream(ctx context.Context, err error) bool {
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, gcis.ErrInvalidParams) && !errors.Is(err, context.Canceled)
}

// Guarded wraps lookups against the upstream with a Breaker.
type Guarded struct {
	Client  gcis.Client
	Breaker *Breaker
}

// ListBusinessItems delegates to the client unless the circuit is open.
func (g Guarded) ListBusinessItems(ctx context.Context, params gcis.ListParams) ([]gcis.BusinessItem, error) {
	if err := g.Breaker.allow(); err != nil {
		return nil, err
	}
	items, err := g.Client.ListBusinessItems(ctx, params)
	g.Breaker.record(ctx, err)
	return items, err
}

// GetBusinessItem delegates to the client unless the circuit is open.
func (g Guarded) GetBusinessItem(ctx context.Context, code string) (*gcis.BusinessItem, error) {
	if err := g.Breaker.allow(); err != nil {
		return nil, err
	}
	item, err := g.Client.GetBusinessItem(ctx, code)
	g.Breaker.record(ctx, err)
	return item, err
}
