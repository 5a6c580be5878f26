package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultInterval = 15 * time.Second

	// maxInFlight caps outstanding runs, so a hung source cannot pile up goroutines.
	maxInFlight = 2
)

// FeedSource is anything that can produce a feed for an identity: the local Aggregator or a remote API.
type FeedSource interface {
	Aggregate(ctx context.Context, identity domain.Identity) Feed
}

// Poller re-runs aggregation on an interval and on demand. Up to maxInFlight runs may overlap,
// further triggers are skipped until one returns. A result that finishes after a newer one has
// been applied is dropped.
type Poller struct {
	source   FeedSource
	identity domain.Identity
	interval time.Duration
	refresh  chan struct{}

	seq      atomic.Uint64
	inFlight atomic.Int32

	mu       sync.RWMutex
	applied  uint64
	latest   Feed
	hasFeed  bool
	stopped  bool
	handlers []func(Feed)

	log zerolog.Logger
}

func NewPoller(source FeedSource, identity domain.Identity, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		source:   source,
		identity: identity,
		interval: interval,
		refresh:  make(chan struct{}, 1),
		log:      log.With().Str("component", "notification_poller").Logger(),
	}
}

// OnUpdate registers fn to receive every applied feed. Register before Run.
func (p *Poller) OnUpdate(fn func(Feed)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, fn)
}

// Refresh asks for an immediate run. Calls made while one is already queued collapse into it.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

func (p *Poller) Latest() (Feed, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.hasFeed
}

// Run polls until ctx is cancelled. The first run starts immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.stop()

	p.tick(ctx)
	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-p.refresh:
			p.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.inFlight.Load() >= maxInFlight {
		p.log.Debug().Msg("notification runs still in flight, skipping")
		return
	}
	p.inFlight.Add(1)
	seq := p.seq.Add(1)
	// in-flight requests outlive cancellation; their results are discarded in apply
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer p.inFlight.Add(-1)
		feed := p.source.Aggregate(runCtx, p.identity)
		p.apply(seq, feed)
	}()
}

func (p *Poller) apply(seq uint64, feed Feed) bool {
	p.mu.Lock()
	if p.stopped || seq <= p.applied {
		p.mu.Unlock()
		p.log.Debug().Uint64("seq", seq).Msg("discarding stale notification feed")
		return false
	}
	p.applied = seq
	p.latest = feed
	p.hasFeed = true
	handlers := append([]func(Feed){}, p.handlers...)
	p.mu.Unlock()

	for _, fn := range handlers {
		fn(feed)
	}
	return true
}

func (p *Poller) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
