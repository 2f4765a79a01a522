// ABOUTME: Tests for the pass feed broadcaster
// ABOUTME: Covers actor filtering, wildcard subscribers, slow consumers, cancellation and Close

package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEvent(passID, actorID string) Event {
	return Event{PassID: passID, ActorID: actorID, Handle: actorID, Timestamp: time.Now(), Intent: "look around"}
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_ActorFilter(t *testing.T) {
	b := New(nil)
	defer b.Close()

	ada, _ := b.Subscribe(t.Context(), "ada")
	bo, _ := b.Subscribe(t.Context(), "bo")
	all, _ := b.Subscribe(t.Context(), AllActors)

	b.Publish(makeEvent("p1", "ada"))

	assert.Equal(t, "p1", receive(t, ada).PassID)
	assert.Equal(t, "p1", receive(t, all).PassID)
	assertNoEvent(t, bo)
}

func TestBroadcaster_SlowSubscriberDrops(t *testing.T) {
	b := New(nil)
	defer b.Close()

	ch, _ := b.Subscribe(t.Context(), AllActors)
	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish(makeEvent("p", "ada"))
	}
	assert.Len(t, ch, subscriberBufferSize)
}

func TestBroadcaster_ContextCancelUnsubscribes(t *testing.T) {
	b := New(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "ada")
	require.Equal(t, 1, b.Subscribers())

	cancel()
	require.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	assert.False(t, ok)
	b.Publish(makeEvent("p1", "ada"))
}

func TestBroadcaster_UnsubscribeTwice(t *testing.T) {
	b := New(nil)
	defer b.Close()

	_, id := b.Subscribe(t.Context(), "ada")
	b.Unsubscribe("ada", id)
	b.Unsubscribe("ada", id)
	b.Unsubscribe("nobody", id)
	assert.Equal(t, 0, b.Subscribers())
}

func TestBroadcaster_Close(t *testing.T) {
	b := New(nil)
	ch, _ := b.Subscribe(t.Context(), "ada")
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := b.Subscribe(t.Context(), "ada")
	_, ok = <-late
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())
}

func TestBroadcaster_ConcurrentPublish(t *testing.T) {
	b := New(nil)
	defer b.Close()

	ch, _ := b.Subscribe(t.Context(), AllActors)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				b.Publish(makeEvent("p", "ada"))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ch, 32)
}
