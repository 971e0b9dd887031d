package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gcis-cli/pkg/gcis"
	"github.com/sells-group/gcis-cli/pkg/gcis/mocks"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(threshold int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(threshold, time.Minute)
	b.now = clock.now
	return b, clock
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(2)

	b.record(ctx, transportErr(503))
	assert.False(t, b.Open())
	b.record(ctx, transportErr(503))
	assert.True(t, b.Open())
	assert.ErrorIs(t, b.allow(), ErrCircuitOpen)
}

func TestBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(1)

	b.record(ctx, gcis.ErrNotFound)
	b.record(ctx, &gcis.ShapeError{Reason: "bad"})
	assert.False(t, b.Open())
	assert.NoError(t, b.allow())
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(2)

	b.record(ctx, transportErr(503))
	b.record(ctx, nil)
	b.record(ctx, transportErr(503))
	assert.False(t, b.Open())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker(1)

	b.record(ctx, transportErr(0))
	require.True(t, b.Open())

	clock.t = clock.t.Add(2 * time.Minute)
	assert.False(t, b.Open())
	require.NoError(t, b.allow())
	// Only one probe at a time.
	assert.ErrorIs(t, b.allow(), ErrCircuitOpen)

	// Failed probe reopens for another cooldown.
	b.record(ctx, transportErr(503))
	assert.True(t, b.Open())

	clock.t = clock.t.Add(2 * time.Minute)
	require.NoError(t, b.allow())
	b.record(ctx, nil)
	assert.False(t, b.Open())
	assert.NoError(t, b.allow())
}

func TestGuarded_RejectsWhileOpen(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("ListBusinessItems", mock.Anything, gcis.ListParams{}).
		Return(nil, transportErr(502)).Once()

	b, _ := newTestBreaker(1)
	g := Guarded{Client: client, Breaker: b}

	_, err := g.ListBusinessItems(context.Background(), gcis.ListParams{})
	assert.True(t, gcis.IsTransportError(err))

	_, err = g.GetBusinessItem(context.Background(), "A101011")
	assert.True(t, errors.Is(err, ErrCircuitOpen))
}

func TestGuarded_PassesThrough(t *testing.T) {
	item := gcis.BusinessItem{BusinessItem: "A101011"}
	client := mocks.NewMockClient(t)
	client.On("GetBusinessItem", mock.Anything, "A101011").Return(&item, nil)

	b, _ := newTestBreaker(1)
	got, err := Guarded{Client: client, Breaker: b}.GetBusinessItem(context.Background(), "A101011")
	require.NoError(t, err)
	assert.Equal(t, "A101011", got.BusinessItem)
}

func TestGuarded_ClientTimeoutsOpenCircuit(t *testing.T) {
	srv, hits := newSlowUpstream(t)
	client := gcis.NewClient(gcis.WithBaseURL(srv.URL), gcis.WithTimeout(50*time.Millisecond))

	b, _ := newTestBreaker(2)
	g := Guarded{Client: client, Breaker: b}
	ctx := context.Background()

	for range 2 {
		_, err := g.ListBusinessItems(ctx, gcis.ListParams{})
		require.True(t, gcis.IsTransportError(err))
	}
	assert.True(t, b.Open())

	_, err := g.ListBusinessItems(ctx, gcis.ListParams{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGuarded_InvalidParamsKeepCircuitOpen(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("ListBusinessItems", mock.Anything, gcis.ListParams{}).
		Return(nil, transportErr(503)).Once()
	client.On("ListBusinessItems", mock.Anything, gcis.ListParams{Top: -1}).
		Return(nil, eris.Wrap(gcis.ErrInvalidParams, "top must not be negative")).Once()

	b, clock := newTestBreaker(1)
	g := Guarded{Client: client, Breaker: b}
	ctx := context.Background()

	_, err := g.ListBusinessItems(ctx, gcis.ListParams{})
	require.True(t, gcis.IsTransportError(err))
	require.True(t, b.Open())

	clock.t = clock.t.Add(2 * time.Minute)
	_, err = g.ListBusinessItems(ctx, gcis.ListParams{Top: -1})
	assert.ErrorIs(t, err, gcis.ErrInvalidParams)

	assert.True(t, b.open)
	assert.Equal(t, 1, b.failures)
	// The half-open slot is released for the next real call.
	assert.NoError(t, b.allow())
}

func TestGuarded_CancelledCallerKeepsCircuitOpen(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("GetBusinessItem", mock.Anything, "A101011").
		Return(nil, transportErr(503)).Once()
	client.On("GetBusinessItem", mock.Anything, "A102011").
		Return(nil, &gcis.TransportError{Err: eris.Wrap(context.Canceled, "gcis: request failed")}).Once()

	b, clock := newTestBreaker(1)
	g := Guarded{Client: client, Breaker: b}

	_, err := g.GetBusinessItem(context.Background(), "A101011")
	require.True(t, gcis.IsTransportError(err))

	clock.t = clock.t.Add(2 * time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.GetBusinessItem(ctx, "A102011")
	require.Error(t, err)

	assert.True(t, b.open)
	assert.Equal(t, 1, b.failures)
}

func TestBreaker_CallerDeadlineIsIgnored(t *testing.T) {
	b, _ := newTestBreaker(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.record(ctx, &gcis.TransportError{Err: eris.Wrap(context.DeadlineExceeded, "gcis: request failed")})
	assert.False(t, b.Open())
	assert.Equal(t, 0, b.failures)
}
