// internal/host/store.go
package host

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/cardtable/internal/callbreak"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/fish"
)

// SnapshotLoader fetches a persisted snapshot for rehydration.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, gameID uuid.UUID) (variant string, data []byte, err error)
}

// Store holds the live hosts, one per running game. Idle hosts are evicted
// by the janitor and rehydrated from their snapshot on next access.
type Store struct {
	mu    sync.Mutex
	hosts map[uuid.UUID]*Host

	// Loader rehydrates evicted games; nil disables rehydration.
	Loader SnapshotLoader

	// Configure configures a freshly created or rehydrated host (broadcast
	// fns, persistence sinks) before it is published in the store.
	Configure func(h *Host)
}

// NewStore builds an empty host store.
func NewStore() *Store {
	return &Store{hosts: make(map[uuid.UUID]*Host)}
}

// Add registers a host, running the store's Configure hook first.
func (s *Store) Add(h *Host) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Configure != nil {
		s.Configure(h)
	}
	s.hosts[h.ID()] = h
}

// Get returns a live host without touching storage.
func (s *Store) Get(id uuid.UUID) (*Host, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[id]
	return h, ok
}

// Delete removes a host from the store.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hosts, id)
}

// GetOrRehydrate returns the live host for a game, restoring it from its
// snapshot when it was evicted.
func (s *Store) GetOrRehydrate(ctx context.Context, id uuid.UUID) (*Host, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.hosts[id]; ok {
		return h, nil
	}
	if s.Loader == nil {
		return nil, engine.NotFound("game", id.String())
	}
	variant, data, err := s.Loader.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	var g engine.Game
	switch variant {
	case fish.Variant:
		g, err = fish.Restore(data)
	case callbreak.Variant:
		g, err = callbreak.Restore(data)
	default:
		return nil, engine.Invalidf("unknown game variant %q", variant)
	}
	if err != nil {
		return nil, err
	}
	h := New(g)
	if s.Configure != nil {
		s.Configure(h)
	}
	s.hosts[id] = h
	logrus.WithFields(logrus.Fields{"game_id": id, "variant": variant}).Info("rehydrated game from snapshot")
	return h, nil
}

// snapshotHosts copies the host list so eviction checks run outside the
// store lock.
func (s *Store) snapshotHosts() []*Host {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Host, 0, len(s.hosts))
	for _, h := range s.hosts {
		out = append(out, h)
	}
	return out
}

// StartJanitor evicts hosts idle longer than idleAfter, checking every
// interval until ctx is done. Completed games are dropped outright; live
// ones keep their snapshot as the rehydration source.
func (s *Store) StartJanitor(ctx context.Context, interval, idleAfter time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(idleAfter)
			}
		}
	}()
}

func (s *Store) sweep(idleAfter time.Duration) {
	for _, h := range s.snapshotHosts() {
		if h.IdleSince() < idleAfter {
			continue
		}
		h.Mu.Lock()
		h.stopTimers()
		terminal := h.Game.Status().Terminal()
		h.Mu.Unlock()
		s.Delete(h.ID())
		logrus.WithFields(logrus.Fields{
			"game_id":  h.ID(),
			"terminal": terminal,
		}).Info("evicted idle game")
	}
}
