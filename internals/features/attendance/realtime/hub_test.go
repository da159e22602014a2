package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestHubFansOutToEverySubscriber(t *testing.T) {
	hub := NewHub(4)
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()
	require.Equal(t, 2, hub.Count())

	Emit(context.Background(), hub, "records.changed", "s-1")
	assert.Equal(t, "records.changed", recv(t, a).Type)
	assert.Equal(t, "s-1", recv(t, b).ID)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, hub.Count())
}

func TestHubDropsForFullSubscriberWithoutBlocking(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(context.Background(), Event{Type: "student.changed"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, ch, 1)
}

func TestEmitWithNilPublisherIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Emit(context.Background(), nil, "x", "y") })
}
