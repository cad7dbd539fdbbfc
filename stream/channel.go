package stream

import (
	"sync"
	"sync/atomic"

	"github.com/egyleader/queue-plus/id"
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 64

// Channel is a broadcast channel for one kind of lifecycle event.
// It retains the most recent event and replays it to each new subscriber
// before regular delivery begins (the seed). A closed channel drops all
// further publishes, so nothing is ever emitted after Close.
// It is safe for concurrent use.
type Channel struct {
	name       string
	bufferSize int

	mu     sync.RWMutex
	subs   map[string]*Subscriber
	last   *Event
	closed bool

	// Metrics.
	totalPublished atomic.Int64
	totalDropped   atomic.Int64
}

// NewChannel creates a broadcast channel. A bufferSize of zero or less
// falls back to DefaultBufferSize.
func NewChannel(name string, bufferSize int) *Channel {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Channel{
		name:       name,
		bufferSize: bufferSize,
		subs:       make(map[string]*Subscriber),
	}
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Subscribe registers a new subscriber. If the channel holds a retained
// event, it is delivered to the subscriber first, so the first event a
// late subscriber observes reflects current status. Subscribing to a
// closed channel returns a subscriber whose event channel is already
// closed.
func (c *Channel) Subscribe() *Subscriber {
	sub := NewSubscriber(id.NewSubscriberID().String(), c.bufferSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		sub.Close()
		return sub
	}

	if c.last != nil {
		sub.send(c.last)
	}
	c.subs[sub.ID()] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes it.
func (c *Channel) Unsubscribe(subscriberID string) {
	c.mu.Lock()
	sub, ok := c.subs[subscriberID]
	delete(c.subs, subscriberID)
	c.mu.Unlock()

	if ok {
		sub.Close()
	}
}

// Publish retains evt as the channel's seed and fans it out to all
// subscribers. Publishing to a closed channel is a no-op. Delivery is
// non-blocking, so the lock is held for the whole fan-out; this keeps
// Publish and Close mutually exclusive and guarantees nothing is emitted
// after Close returns.
func (c *Channel) Publish(evt *Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.last = evt

	for _, s := range c.subs {
		if s.send(evt) {
			c.totalPublished.Add(1)
		} else {
			c.totalDropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (c *Channel) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Stats returns channel delivery counters.
func (c *Channel) Stats() ChannelStats {
	return ChannelStats{
		Published: c.totalPublished.Load(),
		Dropped:   c.totalDropped.Load(),
	}
}

// ChannelStats contains channel delivery metrics.
type ChannelStats struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
}

// Close closes the channel and every subscriber. Safe to call multiple
// times. No event is delivered after Close returns.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = make(map[string]*Subscriber)
	c.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
