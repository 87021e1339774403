// Package bus implements the in-process multicast event bus (component
// C): publish assigns a strictly increasing sequence id and fans the
// update out to every currently-registered subscriber. Grounded on the
// teacher's realtime hub event loop (register/unregister/broadcast over
// channels guarded by a mutex), generalized from "broadcast to
// connected sockets" to "broadcast typed updates to in-process
// subscribers."
package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bragerone/bragerone-go/domain"
)

// queueSize is the buffer depth of each subscriber's channel. The bus
// models an unbounded FIFO per the spec; a large buffer approximates
// that without risking unbounded memory growth from a stalled consumer,
// which would otherwise block Publish for every other subscriber.
const queueSize = 4096

// Bus is a multi-subscriber broadcaster of ParamUpdate events.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
	seq  atomic.Uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscription is a single subscriber's queue. Detach when the consumer
// loop exits; a cancelled ctx detaches automatically.
type Subscription struct {
	ch     chan domain.ParamUpdate
	bus    *Bus
	cancel context.CancelFunc
}

// Subscribe returns a fresh subscription. The returned channel delivers
// updates in publish order; close Unsubscribe (or cancel ctx) when the
// caller is done consuming.
func (b *Bus) Subscribe(ctx context.Context) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{ch: make(chan domain.ParamUpdate, queueSize), bus: b, cancel: cancel}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(sub)
	}()

	return sub
}

// C returns the channel to range over.
func (s *Subscription) C() <-chan domain.ParamUpdate {
	return s.ch
}

// Unsubscribe detaches this subscription from the bus.
func (s *Subscription) Unsubscribe() {
	s.cancel()
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish assigns the next sequence number to update and enqueues it
// into every currently-registered subscriber. A subscriber whose queue
// is full is skipped for this update rather than blocking every other
// subscriber; this only happens if a consumer has stalled far behind.
func (b *Bus) Publish(update domain.ParamUpdate) domain.ParamUpdate {
	update.Seq = b.seq.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		select {
		case sub.ch <- update:
		default:
		}
	}
	return update
}

// SubscriberCount reports the number of currently-attached subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
