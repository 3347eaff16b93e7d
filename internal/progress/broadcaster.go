package progress

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is the channel capacity given to each subscriber. A
// subscriber that falls more than a buffer behind loses events rather than
// slowing the writer down.
const subscriberBuffer = 64

// Broadcaster fans events out to any number of subscribers. Publish never
// blocks: events for a full subscriber channel are dropped.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its id and receive
// channel. The caller must Unsubscribe with the returned id when done; the
// broadcaster owns and closes the channel.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	ch := make(chan Event, subscriberBuffer)
	id := uuid.New().String()

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel. Unknown ids are
// ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers ev to every subscriber that has buffer space left.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// drop if subscriber not reading
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
