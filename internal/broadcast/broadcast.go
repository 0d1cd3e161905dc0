// Package broadcast fans live-update events out to every connected
// dashboard client. Delivery is best-effort: a subscriber that is gone or
// not draining its queue is dropped, never waited on.
package broadcast

import (
	"sync"

	"github.com/op/go-logging"

	"chronocam/internal/event"
)

var log = logging.MustGetLogger("broadcast")

// subscriberBuffer bounds how far a client may fall behind before it is
// considered dead. There is no durable queue; missed events are lost.
const subscriberBuffer = 16

type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan event.Event]struct{}
}

func New() *Broadcaster {
	return &Broadcaster{subs: make(map[chan event.Event]struct{})}
}

// Subscribe registers a new client and returns its event channel. The
// channel is closed by Unsubscribe or when the broadcaster drops the client.
func (b *Broadcaster) Subscribe() chan event.Event {
	ch := make(chan event.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client and closes its channel. Safe to call while a
// broadcast is in flight and safe to call twice.
func (b *Broadcaster) Unsubscribe(ch chan event.Event) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast delivers ev to every subscriber registered at call time. Failed
// deliveries (full or closed channel) drop that subscriber after the sweep;
// one bad client never blocks the others.
func (b *Broadcaster) Broadcast(ev event.Event) {
	b.mu.RLock()
	snapshot := make([]chan event.Event, 0, len(b.subs))
	for ch := range b.subs {
		snapshot = append(snapshot, ch)
	}
	b.mu.RUnlock()

	var dead []chan event.Event
	for _, ch := range snapshot {
		if !trySend(ch, ev) {
			dead = append(dead, ch)
		}
	}

	for _, ch := range dead {
		log.Warningf("dropping slow or closed subscriber (event %s)", ev.Type)
		b.Unsubscribe(ch)
	}
}

// Len reports the current subscriber count.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// trySend performs a non-blocking send. A concurrently closed channel makes
// the send panic; that is folded into the failed-delivery result.
func trySend(ch chan event.Event, ev event.Event) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}
