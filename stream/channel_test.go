package stream

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, sub *Subscriber) *Event {
	t.Helper()
	select {
	case evt, ok := <-sub.C():
		if !ok {
			t.Fatal("subscriber channel closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func TestChannelPublishAndReceive(t *testing.T) {
	t.Parallel()

	c := NewChannel("queue.state", 0)
	sub := c.Subscribe()

	c.Publish(NewEvent(EventQueueState, QueueEventData{State: "processing"}))

	evt := recvEvent(t, sub)
	if evt.Type != EventQueueState {
		t.Errorf("Type = %q, want %q", evt.Type, EventQueueState)
	}
}

func TestChannelSeedReplay(t *testing.T) {
	t.Parallel()

	c := NewChannel("queue.count", 0)

	// Publish before anyone subscribes.
	c.Publish(NewEvent(EventQueueCount, CountEventData{Remaining: 3}))

	// A late subscriber still observes the current value first.
	sub := c.Subscribe()
	evt := recvEvent(t, sub)
	if evt.Type != EventQueueCount {
		t.Errorf("Type = %q, want %q", evt.Type, EventQueueCount)
	}

	// Later events follow the seed.
	c.Publish(NewEvent(EventQueueCount, CountEventData{Remaining: 2}))
	evt = recvEvent(t, sub)
	if evt.Type != EventQueueCount {
		t.Errorf("Type = %q, want %q", evt.Type, EventQueueCount)
	}
}

func TestChannelNoSeedBeforeFirstPublish(t *testing.T) {
	t.Parallel()

	c := NewChannel("task.state", 0)
	sub := c.Subscribe()

	select {
	case evt := <-sub.C():
		t.Fatalf("unexpected event before first publish: %v", evt.Type)
	case <-time.After(50 * time.Millisecond):
		// ok — nothing retained yet
	}
}

func TestChannelFanOut(t *testing.T) {
	t.Parallel()

	c := NewChannel("queue.state", 0)
	a := c.Subscribe()
	b := c.Subscribe()

	c.Publish(NewEvent(EventQueueState, QueueEventData{State: "idle"}))

	for _, sub := range []*Subscriber{a, b} {
		recvEvent(t, sub)
	}
}

func TestChannelUnsubscribe(t *testing.T) {
	t.Parallel()

	c := NewChannel("queue.state", 0)
	sub := c.Subscribe()
	c.Unsubscribe(sub.ID())

	if _, ok := <-sub.C(); ok {
		t.Error("expected closed subscriber channel")
	}
	if c.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", c.SubscriberCount())
	}
}

func TestChannelCloseIsSilent(t *testing.T) {
	t.Parallel()

	c := NewChannel("queue.count", 0)
	sub := c.Subscribe()

	c.Close()
	c.Close() // idempotent

	// Publishing after close must not deliver anything.
	c.Publish(NewEvent(EventQueueCount, CountEventData{Remaining: 1}))

	if _, ok := <-sub.C(); ok {
		t.Error("received event after close")
	}
}

func TestChannelSubscribeAfterClose(t *testing.T) {
	t.Parallel()

	c := NewChannel("queue.state", 0)
	c.Close()

	sub := c.Subscribe()
	if _, ok := <-sub.C(); ok {
		t.Error("expected closed subscriber channel")
	}
}

func TestSubscriberDropsWhenFull(t *testing.T) {
	t.Parallel()

	c := NewChannel("queue.count", 1)
	sub := c.Subscribe()

	c.Publish(NewEvent(EventQueueCount, CountEventData{Remaining: 2}))
	c.Publish(NewEvent(EventQueueCount, CountEventData{Remaining: 1}))

	if sub.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", sub.Dropped())
	}
	if c.Stats().Dropped != 1 {
		t.Errorf("channel Dropped = %d, want 1", c.Stats().Dropped)
	}
}
