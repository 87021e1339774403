// Package paramstore implements the family-indexed register store
// (component D): upsert/flatten/prime ingest, and a bus-consuming loop
// that keeps the store current as realtime updates arrive. Grounded on
// original_source's ParamStore (upsert/get_family/flatten/
// ingest_prime_payload/run_with_bus).
package paramstore

import (
	"context"
	"sync"

	"github.com/bragerone/bragerone-go/bus"
	"github.com/bragerone/bragerone-go/domain"
)

// Store is a concurrency-safe, family-indexed register store. It is not
// re-entrant across suspension points: concurrent Upserts on the same
// family are serialized by mu.
type Store struct {
	mu       sync.RWMutex
	families map[domain.Family]*domain.ParamFamily
}

// New creates an empty Store.
func New() *Store {
	return &Store{families: make(map[domain.Family]*domain.ParamFamily)}
}

// Upsert parses key and sets the named channel to value, creating the
// family if absent. An invalid key is soft-ignored: no mutation occurs
// and a nil family is returned alongside the parse error for callers
// that want to log it.
func (s *Store) Upsert(key string, value any) (*domain.ParamFamily, error) {
	addr, err := domain.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return s.upsertAddress(addr, value, domain.FamilyMeta{}), nil
}

func (s *Store) upsertAddress(addr domain.Address, value any, meta domain.FamilyMeta) *domain.ParamFamily {
	fam := addr.Family()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.families[fam]
	if !ok {
		f = &domain.ParamFamily{Pool: fam.Pool, Idx: fam.Idx, Channels: make(map[domain.Channel]any)}
		s.families[fam] = f
	}
	f.Channels[addr.Chan] = value
	f.Meta = mergeMeta(f.Meta, meta)
	return f
}

func mergeMeta(base, incoming domain.FamilyMeta) domain.FamilyMeta {
	if incoming.Storable != nil {
		base.Storable = incoming.Storable
	}
	if incoming.CreatedAt != nil {
		base.CreatedAt = incoming.CreatedAt
	}
	if incoming.PreviousCreatedAt != nil {
		base.PreviousCreatedAt = incoming.PreviousCreatedAt
	}
	if incoming.UpdatedAt != nil {
		base.UpdatedAt = incoming.UpdatedAt
	}
	if incoming.UpdatedAtClient != nil {
		base.UpdatedAtClient = incoming.UpdatedAtClient
	}
	if incoming.Expire != nil {
		base.Expire = incoming.Expire
	}
	if incoming.Average != nil {
		base.Average = incoming.Average
	}
	return base
}

// GetFamily looks up the family for (pool, idx), or returns a zero
// ParamFamily and false if no channel of that family has ever been set.
func (s *Store) GetFamily(pool, idx int) (domain.ParamFamily, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.families[domain.Family{Pool: pool, Idx: idx}]
	if !ok {
		return domain.ParamFamily{}, false
	}
	return f.Clone(), true
}

// RawValue returns the current value stored at addr, if any channel of
// its family has been set.
func (s *Store) RawValue(addr domain.Address) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.families[addr.Family()]
	if !ok {
		return nil, false
	}
	v, ok := f.Channels[addr.Chan]
	return v, ok
}

// Flatten produces a mapping from full register keys to their current
// channel value.
func (s *Store) Flatten() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any)
	for fam, f := range s.families {
		for ch, v := range f.Channels {
			addr := domain.Address{Pool: fam.Pool, Chan: ch, Index: fam.Idx}
			out[addr.Key()] = v
		}
	}
	return out
}

// RunWithBus consumes events from sub until ctx is cancelled or the
// subscription's channel closes, ignoring meta-only events (nil Value)
// and upserting every other event's channel value.
func (s *Store) RunWithBus(ctx context.Context, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.C():
			if !ok {
				return
			}
			if update.Value == nil {
				continue
			}
			s.upsertAddress(domain.Address{Pool: update.Pool, Chan: update.Chan, Index: update.Idx}, update.Value, update.Meta)
		}
	}
}
