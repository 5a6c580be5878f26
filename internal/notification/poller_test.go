package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedWithTotal(total int64) Feed {
	return Feed{Items: []domain.Notification{}, Counts: domain.NotificationCounts{Total: total}}
}

func TestPoller_DiscardsStaleResults(t *testing.T) {
	p := NewPoller(&scriptedSource{}, buyer, time.Hour, zerolog.Nop())

	assert.True(t, p.apply(2, feedWithTotal(2)))
	assert.False(t, p.apply(1, feedWithTotal(1)))

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(2), latest.Counts.Total)
}

func TestPoller_SlowEarlierRunDoesNotOverwriteNewer(t *testing.T) {
	gate := make(chan struct{})
	src := &scriptedSource{
		gates: map[int]chan struct{}{1: gate},
		feeds: map[int]Feed{1: feedWithTotal(1), 2: feedWithTotal(2)},
	}
	p := NewPoller(src, buyer, time.Hour, zerolog.Nop())

	var mu sync.Mutex
	var seen []int64
	p.OnUpdate(func(f Feed) {
		mu.Lock()
		seen = append(seen, f.Counts.Total)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)
	p.Refresh()
	require.Eventually(t, func() bool {
		f, ok := p.Latest()
		return ok && f.Counts.Total == 2
	}, time.Second, 5*time.Millisecond)

	// the first run finishes late
	close(gate)
	time.Sleep(50 * time.Millisecond)

	latest, _ := p.Latest()
	assert.Equal(t, int64(2), latest.Counts.Total)
	mu.Lock()
	assert.Equal(t, []int64{2}, seen)
	mu.Unlock()
}

func TestPoller_StopsOnCancel(t *testing.T) {
	gate := make(chan struct{})
	src := &scriptedSource{
		gates: map[int]chan struct{}{1: gate},
		feeds: map[int]Feed{1: feedWithTotal(1)},
	}
	p := NewPoller(src, buyer, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	// a result arriving after shutdown is ignored
	close(gate)
	time.Sleep(50 * time.Millisecond)
	_, ok := p.Latest()
	assert.False(t, ok)
}

func TestPoller_IntervalTicks(t *testing.T) {
	src := &scriptedSource{feeds: map[int]Feed{}}
	p := NewPoller(src, buyer, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool { return src.count() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestPoller_HungSourceBoundsOutstandingRuns(t *testing.T) {
	gate := make(chan struct{})
	src := &scriptedSource{
		gates: map[int]chan struct{}{1: gate, 2: gate, 3: gate},
		feeds: map[int]Feed{},
	}
	p := NewPoller(src, buyer, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool { return src.count() == maxInFlight }, time.Second, 5*time.Millisecond)
	p.Refresh()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, maxInFlight, src.count())

	// once the source recovers, ticks start again
	close(gate)
	require.Eventually(t, func() bool { return src.count() > maxInFlight }, time.Second, 5*time.Millisecond)
}

func TestPoller_WithAggregator(t *testing.T) {
	agg := NewAggregator(
		&mockOffers{offers: []*domain.Offer{offerAt("o-1", domain.OfferStatusCountered, 1)}},
		&mockConversations{unread: 4},
		0, 0, zerolog.Nop())
	p := NewPoller(agg, buyer, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		f, ok := p.Latest()
		return ok && f.Counts.Total == 5
	}, time.Second, 5*time.Millisecond)
}
