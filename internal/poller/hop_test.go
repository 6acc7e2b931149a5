package poller_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mikey0000/ha-electric-kiwi/internal/poller"
	"github.com/mikey0000/ha-electric-kiwi/pkg/ekapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testIntervals = ekapi.HopIntervals{
		1:  {StartTime: "12:00 AM", EndTime: "1:00 AM", Active: 1},
		2:  {StartTime: "1:00 AM", EndTime: "2:00 AM", Active: 0},
		37: {StartTime: "9:00 PM", EndTime: "10:00 PM", Active: 1},
	}
	testHop = ekapi.Hop{
		ConnectionID: "515363",
		Start:        ekapi.HopStart{StartTime: "9:00 PM", Interval: "37"},
		End:          ekapi.HopEnd{EndTime: "10:00 PM", Interval: "38"},
	}
)

func TestHop_Run(t *testing.T) {
	client := fakeHopClient{intervals: testIntervals, hop: testHop}
	h := poller.NewHop(&client, time.Hour, slog.Default())

	ch := h.Register()
	defer h.Unregister(ch)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- h.Run(ctx) }()

	update := <-ch
	assert.Equal(t, testHop, update)

	selected, ok := h.Selected()
	require.True(t, ok)
	assert.Equal(t, testHop, selected)

	// inactive intervals are dropped at catalog-fetch time
	options := h.Options()
	assert.Equal(t, map[string]int{
		"12:00 AM - 1:00 AM": 1,
		"9:00 PM - 10:00 PM": 37,
	}, options)

	// a second refresh only re-fetches the selection, not the catalog
	h.Refresh()
	<-ch
	assert.Equal(t, 1, client.intervalCallCount())
	assert.Equal(t, 2, client.hopCallCount())

	cancel()
	assert.NoError(t, <-errCh)
}

func TestHop_Run_CatalogFailurePreservesUnpopulatedState(t *testing.T) {
	client := fakeHopClient{intervals: testIntervals, hop: testHop}
	client.setIntervalsError(&ekapi.APIError{StatusCode: 502, Message: "bad gateway"})
	h := poller.NewHop(&client, time.Hour, slog.Default())

	ch := h.Register()
	defer h.Unregister(ch)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- h.Run(ctx) }()

	// the catalog fetch fails, so the cycle aborts before the selection fetch
	assert.Eventually(t, func() bool { return client.intervalCallCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, client.hopCallCount())
	assert.Empty(t, h.Options())
	_, ok := h.Selected()
	assert.False(t, ok)

	// the next refresh retries the catalog fetch
	client.setIntervalsError(nil)
	h.Refresh()
	<-ch
	assert.Equal(t, 2, client.intervalCallCount())
	assert.Equal(t, 1, client.hopCallCount())

	cancel()
	assert.NoError(t, <-errCh)
}

func TestHop_Run_AuthFailureStopsPolling(t *testing.T) {
	client := fakeHopClient{intervals: testIntervals, hop: testHop}
	client.setIntervalsError(&ekapi.AuthError{StatusCode: 401})
	h := poller.NewHop(&client, time.Hour, slog.Default())

	err := h.Run(context.Background())
	require.Error(t, err)
	var authErr *ekapi.AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestHop_SetHop(t *testing.T) {
	client := fakeHopClient{intervals: testIntervals, hop: testHop}
	h := poller.NewHop(&client, time.Hour, slog.Default())

	ch := h.Register()
	defer h.Unregister(ch)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- h.Run(ctx) }()
	<-ch

	// the cached selection is the value returned by the API, and clients
	// are notified without waiting for the next poll
	want := ekapi.Hop{
		ConnectionID: "515363",
		Start:        ekapi.HopStart{StartTime: "12:00 AM", Interval: "1"},
		End:          ekapi.HopEnd{EndTime: "1:00 AM", Interval: "2"},
	}
	client.setPosted(want)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, want, <-ch)
	}()

	hop, err := h.SetHop(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, hop)
	<-done

	selected, ok := h.Selected()
	require.True(t, ok)
	assert.Equal(t, want, selected)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestHop_SetHop_FailureKeepsSelection(t *testing.T) {
	client := fakeHopClient{intervals: testIntervals, hop: testHop}
	h := poller.NewHop(&client, time.Hour, slog.Default())

	ch := h.Register()
	defer h.Unregister(ch)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- h.Run(ctx) }()
	<-ch

	client.setPostError(&ekapi.APIError{StatusCode: 500, Message: "boom"})

	_, err := h.SetHop(ctx, 1)
	require.Error(t, err)

	selected, ok := h.Selected()
	require.True(t, ok)
	assert.Equal(t, testHop, selected)

	cancel()
	assert.NoError(t, <-errCh)
}

type fakeHopClient struct {
	lock          sync.Mutex
	intervals     ekapi.HopIntervals
	intervalsErr  error
	hop           ekapi.Hop
	posted        ekapi.Hop
	postErr       error
	intervalCalls int
	hopCalls      int
}

func (f *fakeHopClient) GetHopIntervals(_ context.Context) (ekapi.HopIntervals, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.intervalCalls++
	if f.intervalsErr != nil {
		return nil, f.intervalsErr
	}
	return f.intervals, nil
}

func (f *fakeHopClient) GetHop(_ context.Context) (ekapi.Hop, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.hopCalls++
	return f.hop, nil
}

func (f *fakeHopClient) PostHop(_ context.Context, _ int) (ekapi.Hop, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.postErr != nil {
		return ekapi.Hop{}, f.postErr
	}
	return f.posted, nil
}

func (f *fakeHopClient) setIntervalsError(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.intervalsErr = err
}

func (f *fakeHopClient) setPosted(hop ekapi.Hop) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.posted = hop
}

func (f *fakeHopClient) setPostError(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.postErr = err
}

func (f *fakeHopClient) intervalCallCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.intervalCalls
}

func (f *fakeHopClient) hopCallCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.hopCalls
}
