package store

import (
	"context"
	"sync"
)

// Message is one delivered pubsub payload, shape-compatible with what the
// redis subscription yields so consumers never care which backend is live.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription delivers messages for a set of channels until closed.
type Subscription struct {
	ch        chan Message
	closeOnce sync.Once
	closed    chan struct{}
	cancel    func()

	mu   sync.RWMutex
	done bool
}

// C is the delivery channel. It closes when the subscription ends.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close ends the subscription and releases its resources.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

func newSubscription(buffer int) *Subscription {
	return &Subscription{
		ch:     make(chan Message, buffer),
		closed: make(chan struct{}),
	}
}

// deliver hands a message to the subscriber without blocking; a full buffer
// drops the message rather than stalling the publisher. The read lock keeps
// the delivery channel open for the duration of the send.
func (s *Subscription) deliver(msg Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.done {
		return
	}
	select {
	case s.ch <- msg:
	default:
	}
}

// finish marks the subscription dead and closes the delivery channel once
// in-flight deliveries have drained.
func (s *Subscription) finish() {
	s.mu.Lock()
	if !s.done {
		s.done = true
		close(s.ch)
	}
	s.mu.Unlock()
}

// MemHub is the in-process pubsub used when redis is unavailable. Same
// fan-out semantics as the redis path, scoped to one process.
type MemHub struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription
}

func NewMemHub() *MemHub {
	return &MemHub{subs: make(map[string][]*Subscription)}
}

// Subscribe registers for the given channels. The subscription ends when
// Close is called or ctx is done.
func (h *MemHub) Subscribe(ctx context.Context, channels ...string) *Subscription {
	sub := newSubscription(64)

	h.mu.Lock()
	for _, channel := range channels {
		h.subs[channel] = append(h.subs[channel], sub)
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, channel := range channels {
			entries := h.subs[channel]
			for i, s := range entries {
				if s == sub {
					h.subs[channel] = append(entries[:i], entries[i+1:]...)
					break
				}
			}
			if len(h.subs[channel]) == 0 {
				delete(h.subs, channel)
			}
		}
		sub.finish()
	}()

	return sub
}

// Publish fans a payload out to every subscriber of channel.
func (h *MemHub) Publish(channel string, payload []byte) {
	h.mu.RLock()
	entries := make([]*Subscription, len(h.subs[channel]))
	copy(entries, h.subs[channel])
	h.mu.RUnlock()

	msg := Message{Channel: channel, Payload: payload}
	for _, sub := range entries {
		sub.deliver(msg)
	}
}
