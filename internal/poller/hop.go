package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mikey0000/ha-electric-kiwi/pkg/ekapi"
	"github.com/mikey0000/ha-electric-kiwi/pkg/pubsub"
)

// HopClient is the part of the Electric Kiwi API the hour of power poller
// needs.
type HopClient interface {
	GetHopIntervals(context.Context) (ekapi.HopIntervals, error)
	GetHop(context.Context) (ekapi.Hop, error)
	PostHop(context.Context, int) (ekapi.Hop, error)
}

// Hop maintains the hour of power state: the catalog of selectable windows,
// fetched once per lifetime and filtered to active entries, and the
// currently selected window, refreshed on a fixed interval. SetHop changes
// the selection on demand, outside the timer cadence.
type Hop struct {
	client HopClient
	*pubsub.Publisher[ekapi.Hop]
	interval time.Duration
	logger   *slog.Logger
	refresh  chan struct{}

	lock      sync.RWMutex
	intervals ekapi.HopIntervals // nil until the catalog has been fetched
	selected  ekapi.Hop
	updated   bool
}

// NewHop returns an hour of power poller.
func NewHop(client HopClient, interval time.Duration, logger *slog.Logger) *Hop {
	return &Hop{
		client:    client,
		Publisher: pubsub.New[ekapi.Hop](logger.With(slog.String("component", "registry"))),
		interval:  interval,
		logger:    logger,
		refresh:   make(chan struct{}, 1),
	}
}

// Run refreshes the selected hour of power once at startup and then on every
// tick, or when Refresh is called. It returns a non-nil error only when the
// API rejects the credentials.
func (h *Hop) Run(ctx context.Context) error {
	h.logger.Debug("started", slog.Duration("interval", h.interval))
	defer h.logger.Debug("stopped")

	if err := h.poll(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-h.refresh:
		}

		if err := h.poll(ctx); err != nil {
			return err
		}
	}
}

// Refresh triggers a refresh outside the timer cadence. If a refresh is
// already pending, the call is coalesced with it.
func (h *Hop) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

func (h *Hop) poll(ctx context.Context) error {
	start := time.Now()
	err := h.update(ctx)
	if err == nil {
		h.logger.Debug("hour of power updated", slog.Duration("duration", time.Since(start)))
		return nil
	}
	var authErr *ekapi.AuthError
	if errors.As(err, &authErr) {
		h.logger.Error("hour of power update failed: re-authorization required", slog.Any("err", err))
		return err
	}
	h.logger.Error("hour of power update failed", slog.Any("err", err))
	return nil
}

func (h *Hop) update(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	if err := h.loadIntervals(ctx); err != nil {
		return err
	}

	hop, err := h.client.GetHop(ctx)
	if err != nil {
		return err
	}

	h.setSelected(hop)
	h.Publish(hop)
	return nil
}

// loadIntervals fetches the interval catalog on the first successful
// refresh. The catalog doesn't change within a session, so it's never
// re-fetched once populated. Inactive intervals are dropped on the way in.
func (h *Hop) loadIntervals(ctx context.Context) error {
	h.lock.RLock()
	populated := h.intervals != nil
	h.lock.RUnlock()
	if populated {
		return nil
	}

	intervals, err := h.client.GetHopIntervals(ctx)
	if err != nil {
		return err
	}

	active := make(ekapi.HopIntervals, len(intervals))
	for number, interval := range intervals {
		if interval.Active == 1 {
			active[number] = interval
		}
	}

	h.lock.Lock()
	h.intervals = active
	h.lock.Unlock()
	return nil
}

func (h *Hop) setSelected(hop ekapi.Hop) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.selected = hop
	h.updated = true
}

// Options maps each selectable window's label ("start - end") to its
// interval number. It is empty until the catalog has been fetched.
func (h *Hop) Options() map[string]int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	options := make(map[string]int, len(h.intervals))
	for number, interval := range h.intervals {
		options[interval.StartTime+" - "+interval.EndTime] = number
	}
	return options
}

// SetHop submits a new hour of power selection and caches the value the API
// returns. Clients are notified immediately, without waiting for the next
// poll. On failure, the cached selection is left unchanged.
func (h *Hop) SetHop(ctx context.Context, interval int) (ekapi.Hop, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	hop, err := h.client.PostHop(ctx, interval)
	if err != nil {
		return ekapi.Hop{}, err
	}

	h.setSelected(hop)
	h.Publish(hop)
	return hop, nil
}

// Selected returns the most recently fetched selection. The second return
// value is false until the first successful refresh.
func (h *Hop) Selected() (ekapi.Hop, bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.selected, h.updated
}
