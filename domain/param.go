package domain

import "time"

// ParamFamily holds one entry per channel for a single (pool, idx).
// Created on first upsert for its key; mutated only by the store; never
// destroyed once created.
type ParamFamily struct {
	Pool     int
	Idx      int
	Channels map[Channel]any

	// Recognized metadata keys, preserved from dict-shaped prime entries.
	Meta FamilyMeta
}

// FamilyMeta carries the subset of per-entry metadata the prime payload
// may attach to a dict-shaped value: {value, storable, createdAt, ...}.
type FamilyMeta struct {
	Storable          *bool
	CreatedAt         *time.Time
	PreviousCreatedAt *time.Time
	UpdatedAt         *time.Time
	UpdatedAtClient   *time.Time
	Expire            *time.Time
	Average           *float64
}

// Clone returns a shallow copy of the family, safe to hand to a caller
// without exposing the store's internal map.
func (f *ParamFamily) Clone() ParamFamily {
	out := ParamFamily{Pool: f.Pool, Idx: f.Idx, Meta: f.Meta}
	out.Channels = make(map[Channel]any, len(f.Channels))
	for k, v := range f.Channels {
		out.Channels[k] = v
	}
	return out
}

// ParamUpdate is the event shape published onto the bus for each channel
// delta observed from the realtime connection or ingested prime payload.
type ParamUpdate struct {
	DevID     string
	Pool      int
	Chan      Channel
	Idx       int
	Value     any // nil for meta-only events
	Meta      FamilyMeta
	Timestamp time.Time
	Seq       uint64
}

// Key renders the address portion of the update.
func (u ParamUpdate) Key() string {
	return Address{Pool: u.Pool, Chan: u.Chan, Index: u.Idx}.Key()
}
