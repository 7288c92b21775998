// ABOUTME: Registry of long-lived provider clients keyed by (ticket, provider kind)
// ABOUTME: Atomic get-or-create with idle-based eviction of unused sessions

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adanzweig/ronda-backend/internal/provider"
)

// DefaultIdleTTL is how long an unused session survives before the
// sweeper evicts it.
const DefaultIdleTTL = time.Hour

// sweepInterval is how often the sweeper scans for idle sessions
const sweepInterval = 5 * time.Minute

// Factory constructs a provider client. Tests substitute fakes here.
type Factory func(ctx context.Context, kind provider.Kind, apiKey string) (provider.Client, error)

type key struct {
	ticketID int64
	kind     provider.Kind
}

type entry struct {
	client   provider.Client
	lastUsed time.Time
}

// Registry holds one live provider client per (ticket, provider kind).
// Lookup-or-create is atomic: two concurrent calls for the same ticket
// and kind observe exactly one client construction. The API key of the
// first caller wins; differing keys on later calls are ignored.
type Registry struct {
	mu      sync.Mutex
	entries map[key]*entry
	factory Factory
	idleTTL time.Duration
	done    chan struct{}
	closed  bool
	logger  *slog.Logger
}

// NewRegistry creates a registry using the given client factory. A nil
// factory defaults to constructing live provider clients. idleTTL <= 0
// defaults to DefaultIdleTTL. A background sweeper evicts sessions idle
// longer than the TTL until Close is called.
func NewRegistry(factory Factory, idleTTL time.Duration, logger *slog.Logger) *Registry {
	if factory == nil {
		factory = provider.NewClient
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		entries: make(map[key]*entry),
		factory: factory,
		idleTTL: idleTTL,
		done:    make(chan struct{}),
		logger:  logger.With("component", "session"),
	}
	go r.sweep()
	return r
}

// GetOrCreate returns the live client for (ticketID, kind), constructing
// one bound to apiKey on first use. The check-and-insert runs under the
// registry lock, so a losing racer returns the winner's client.
func (r *Registry) GetOrCreate(ctx context.Context, ticketID int64, kind provider.Kind, apiKey string) (provider.Client, error) {
	k := key{ticketID: ticketID, kind: kind}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[k]; ok {
		e.lastUsed = time.Now()
		return e.client, nil
	}

	client, err := r.factory(ctx, kind, apiKey)
	if err != nil {
		return nil, err
	}
	r.entries[k] = &entry{client: client, lastUsed: time.Now()}
	r.logger.Debug("session created", "ticket_id", ticketID, "provider", string(kind))
	return client, nil
}

// Evict drops all sessions for a ticket, e.g. when the ticket closes
func (r *Registry) Evict(ticketID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.entries {
		if k.ticketID == ticketID {
			delete(r.entries, k)
		}
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
}

// sweep periodically evicts sessions idle longer than the TTL
func (r *Registry) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.done:
			return
		}
	}
}

func (r *Registry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.idleTTL)
	for k, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, k)
			r.logger.Debug("idle session evicted", "ticket_id", k.ticketID, "provider", string(k.kind))
		}
	}
}
