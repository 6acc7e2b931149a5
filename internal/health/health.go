// Package health serves the latest snapshots as a JSON health endpoint.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mikey0000/ha-electric-kiwi/pkg/ekapi"
)

// AccountPoller is the part of the account poller the health endpoint needs.
type AccountPoller interface {
	Register() chan ekapi.AccountBalance
	Unregister(chan ekapi.AccountBalance)
	Refresh()
}

// HopPoller is the part of the hour of power poller the health endpoint
// needs.
type HopPoller interface {
	Register() chan ekapi.Hop
	Unregister(chan ekapi.Hop)
	Refresh()
}

// Health reports the latest account balance and hour of power. It responds
// with http.StatusServiceUnavailable (and triggers a refresh) until both
// pollers have reported.
type Health struct {
	account AccountPoller
	hop     HopPoller
	logger  *slog.Logger

	lock    sync.RWMutex
	report  report
	updated bool
}

type report struct {
	Account *ekapi.AccountBalance `json:"account,omitempty"`
	Hop     *ekapi.Hop            `json:"hop,omitempty"`
}

func New(account AccountPoller, hop HopPoller, logger *slog.Logger) *Health {
	return &Health{
		account: account,
		hop:     hop,
		logger:  logger,
	}
}

func (h *Health) Run(ctx context.Context) error {
	h.logger.Debug("started")
	defer h.logger.Debug("stopped")

	accountCh := h.account.Register()
	defer h.account.Unregister(accountCh)
	hopCh := h.hop.Register()
	defer h.hop.Unregister(hopCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case balance := <-accountCh:
			h.lock.Lock()
			h.report.Account = &balance
			h.updated = h.report.Hop != nil
			h.lock.Unlock()
		case hop := <-hopCh:
			h.lock.Lock()
			h.report.Hop = &hop
			h.updated = h.report.Account != nil
			h.lock.Unlock()
		}
	}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if !h.updated {
		http.Error(w, "no update yet", http.StatusServiceUnavailable)
		h.account.Refresh()
		h.hop.Refresh()
		return
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(h.report); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
