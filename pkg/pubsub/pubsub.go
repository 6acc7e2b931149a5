// Package pubsub provides a basic publish/subscribe implementation, used to
// notify interested parties when a poller has fetched new data.
package pubsub

import (
	"log/slog"
	"sync"
)

// Publisher sends the information passed to Publish to all registered
// clients.
type Publisher[T any] struct {
	clients map[chan T]struct{}
	logger  *slog.Logger
	lock    sync.RWMutex
}

// New returns a new Publisher.
func New[T any](logger *slog.Logger) *Publisher[T] {
	return &Publisher[T]{
		clients: make(map[chan T]struct{}),
		logger:  logger,
	}
}

// Register adds a client and returns the channel it will receive updates on.
func (p *Publisher[T]) Register() chan T {
	p.lock.Lock()
	defer p.lock.Unlock()
	ch := make(chan T)
	p.clients[ch] = struct{}{}
	p.logger.Debug("client registered", slog.Int("clients", len(p.clients)))
	return ch
}

// Unregister removes a client's channel.
func (p *Publisher[T]) Unregister(ch chan T) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.clients, ch)
	p.logger.Debug("client unregistered", slog.Int("clients", len(p.clients)))
}

// Publish sends info to all registered clients.
func (p *Publisher[T]) Publish(info T) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	for ch := range p.clients {
		ch <- info
	}
}

// Clients returns the current number of registered clients.
func (p *Publisher[T]) Clients() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return len(p.clients)
}
