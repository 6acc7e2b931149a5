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

// AccountClient is the part of the Electric Kiwi API the account poller
// needs.
type AccountClient interface {
	GetAccountBalance(context.Context) (ekapi.AccountBalance, error)
}

// Account refreshes the account balance on a fixed interval and retains the
// most recently fetched snapshot. The balance is read-only: there is no
// mutation path.
type Account struct {
	client AccountClient
	*pubsub.Publisher[ekapi.AccountBalance]
	interval time.Duration
	logger   *slog.Logger
	refresh  chan struct{}

	lock    sync.RWMutex
	balance ekapi.AccountBalance
	updated bool
}

// NewAccount returns an account balance poller.
func NewAccount(client AccountClient, interval time.Duration, logger *slog.Logger) *Account {
	return &Account{
		client:    client,
		Publisher: pubsub.New[ekapi.AccountBalance](logger.With(slog.String("component", "registry"))),
		interval:  interval,
		logger:    logger,
		refresh:   make(chan struct{}, 1),
	}
}

// Run refreshes the balance once at startup and then on every tick, or when
// Refresh is called. It returns a non-nil error only when the API rejects
// the credentials: generic failures leave the cached snapshot untouched and
// are retried on the next tick.
func (a *Account) Run(ctx context.Context) error {
	a.logger.Debug("started", slog.Duration("interval", a.interval))
	defer a.logger.Debug("stopped")

	if err := a.poll(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-a.refresh:
		}

		if err := a.poll(ctx); err != nil {
			return err
		}
	}
}

// Refresh triggers a refresh outside the timer cadence. If a refresh is
// already pending, the call is coalesced with it.
func (a *Account) Refresh() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

func (a *Account) poll(ctx context.Context) error {
	start := time.Now()
	err := a.update(ctx)
	if err == nil {
		a.logger.Debug("account updated", slog.Duration("duration", time.Since(start)))
		return nil
	}
	var authErr *ekapi.AuthError
	if errors.As(err, &authErr) {
		a.logger.Error("account update failed: re-authorization required", slog.Any("err", err))
		return err
	}
	a.logger.Error("account update failed", slog.Any("err", err))
	return nil
}

func (a *Account) update(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	balance, err := a.client.GetAccountBalance(ctx)
	if err != nil {
		return err
	}

	a.lock.Lock()
	a.balance = balance
	a.updated = true
	a.lock.Unlock()

	a.Publish(balance)
	return nil
}

// Balance returns the most recently fetched snapshot. The second return
// value is false until the first successful refresh.
func (a *Account) Balance() (ekapi.AccountBalance, bool) {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.balance, a.updated
}
