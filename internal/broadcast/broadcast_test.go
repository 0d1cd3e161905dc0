package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronocam/internal/event"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := New()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Broadcast(event.Status(event.StatusRunning))

	assert.Equal(t, event.TypeStatus, (<-a).Type)
	assert.Equal(t, event.TypeStatus, (<-c).Type)
}

func TestBroadcastPreservesPublishOrder(t *testing.T) {
	b := New()
	ch := b.Subscribe()

	b.Broadcast(event.Status(event.StatusRunning))
	b.Broadcast(event.CameraError("snapshot_failed", "boom"))
	b.Broadcast(event.Status(event.StatusPaused))

	assert.Equal(t, event.TypeStatus, (<-ch).Type)
	assert.Equal(t, event.TypeCameraError, (<-ch).Type)
	assert.Equal(t, event.StatusPaused, (<-ch).Status)
}

func TestFailingSubscriberIsDroppedOthersDelivered(t *testing.T) {
	b := New()

	healthy1 := b.Subscribe()
	healthy2 := b.Subscribe()
	stuck := b.Subscribe()

	// Fill the stuck subscriber's buffer so the next delivery fails.
	for i := 0; i < subscriberBuffer; i++ {
		b.Broadcast(event.Status(event.StatusRunning))
	}
	for i := 0; i < subscriberBuffer; i++ {
		<-healthy1
		<-healthy2
	}
	require.Equal(t, 3, b.Len())

	b.Broadcast(event.CameraError("snapshot_failed", "boom"))

	// The two draining subscribers still got the message.
	assert.Equal(t, event.TypeCameraError, (<-healthy1).Type)
	assert.Equal(t, event.TypeCameraError, (<-healthy2).Type)

	// The stuck one was removed and its channel closed after its buffered
	// backlog drains.
	assert.Equal(t, 2, b.Len())
	for i := 0; i < subscriberBuffer; i++ {
		<-stuck
	}
	_, open := <-stuck
	assert.False(t, open)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	ch := b.Subscribe()

	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	assert.Equal(t, 0, b.Len())
}

func TestBroadcastToClosedSubscriberDropsIt(t *testing.T) {
	b := New()
	keep := b.Subscribe()
	gone := b.Subscribe()
	b.Unsubscribe(gone)

	b.Broadcast(event.Status(event.StatusRunning))

	assert.Equal(t, event.TypeStatus, (<-keep).Type)
	assert.Equal(t, 1, b.Len())
}

func TestConcurrentSubscribeDuringBroadcast(t *testing.T) {
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ch := b.Subscribe()
				b.Broadcast(event.Status(event.StatusRunning))
				b.Unsubscribe(ch)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, b.Len())
}
