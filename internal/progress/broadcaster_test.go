package progress

import (
	"testing"
	"time"
)

func TestBroadcasterDelivers(t *testing.T) {
	b := NewBroadcaster()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	ev := Event{
		URL:         "http://example.com/a.png",
		Path:        "/tmp/a.png",
		Downloaded:  1024,
		Total:       2048,
		BytesPerSec: 512,
	}
	b.Publish(ev)

	select {
	case got := <-ch:
		if got != ev {
			t.Errorf("got %+v, want %+v", got, ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcasterDropsWhenFull(t *testing.T) {
	b := NewBroadcaster()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	// Nobody is reading: fill the buffer and keep publishing. Publish must
	// not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(Event{Downloaded: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The buffered events are the oldest ones.
	first := <-ch
	if first.Downloaded != 0 {
		t.Errorf("expected first buffered event, got Downloaded=%d", first.Downloaded)
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Unsubscribe")
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}

	// Unsubscribing twice is fine.
	b.Unsubscribe(id)
}

func TestBroadcasterMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster()
	id1, ch1 := b.Subscribe()
	id2, ch2 := b.Subscribe()
	defer b.Unsubscribe(id1)
	defer b.Unsubscribe(id2)

	b.Publish(Event{Downloaded: 7})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Downloaded != 7 {
				t.Errorf("got Downloaded=%d, want 7", got.Downloaded)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}
