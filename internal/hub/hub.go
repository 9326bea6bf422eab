// Package hub implements per-room fan-out of newly stored messages to live
// subscribers. Delivery is best-effort and never persisted; a client that
// joins after a publish catches up through history instead.
package hub

import (
	"log/slog"
	"sync"

	"roomchat/internal/domain"
	"roomchat/internal/observability"
	"roomchat/internal/registry"
)

// subscriptionBuffer bounds how far a subscriber may lag before it is
// dropped. A dropped subscriber sees its stream close and reconnects.
const subscriptionBuffer = 256

// Subscription is one client's live feed for a single room. The stream
// closes on Close, hub shutdown, or when the subscriber falls too far behind.
type Subscription struct {
	room string
	ch   chan *domain.Message
	hub  *Hub
}

// Room returns the room this subscription is attached to.
func (s *Subscription) Room() string {
	return s.room
}

// Messages returns the stream of broadcast messages, FIFO within the room.
func (s *Subscription) Messages() <-chan *domain.Message {
	return s.ch
}

// Close unsubscribes and releases the buffer. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub maintains the per-room subscriber sets and broadcasts messages.
type Hub struct {
	rooms *registry.Registry

	mu       sync.Mutex
	subs     map[string]map[*Subscription]struct{}
	shutdown bool
}

// New creates a new Hub validating rooms against the given registry.
func New(rooms *registry.Registry) *Hub {
	return &Hub{
		rooms: rooms,
		subs:  make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a live feed for the room. The subscription is active
// when Subscribe returns: every subsequent Publish for the room is delivered.
func (h *Hub) Subscribe(room string) (*Subscription, error) {
	if !h.rooms.IsValid(room) {
		return nil, domain.ErrInvalidRoom
	}

	sub := &Subscription{
		room: room,
		ch:   make(chan *domain.Message, subscriptionBuffer),
		hub:  h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shutdown {
		close(sub.ch)
		return sub, nil
	}

	if h.subs[room] == nil {
		h.subs[room] = make(map[*Subscription]struct{})
	}
	h.subs[room][sub] = struct{}{}
	observability.RoomSubscribersActive.WithLabelValues(room).Inc()

	return sub, nil
}

// Unsubscribe removes a subscription and closes its stream. Idempotent;
// calling it on an already-removed subscription is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// Publish delivers the message to every current subscriber of the room.
// A subscriber whose buffer is full is dropped rather than blocking the
// others; the publisher never sees an error.
func (h *Hub) Publish(room string, msg *domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[room] {
		select {
		case sub.ch <- msg:
			observability.RoomMessagesBroadcast.WithLabelValues(room).Inc()
		default:
			slog.Warn("dropping slow subscriber",
				slog.String("room", room))
			observability.RoomSubscribersDropped.WithLabelValues(room).Inc()
			h.remove(sub)
		}
	}
}

// SubscriberCount returns the number of live subscriptions for a room.
func (h *Hub) SubscriberCount(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[room])
}

// Shutdown closes every subscription. Further subscribes return an
// already-closed stream and publishes deliver to nobody.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shutdown {
		return
	}
	h.shutdown = true

	for room, subs := range h.subs {
		for sub := range subs {
			close(sub.ch)
			observability.RoomSubscribersActive.WithLabelValues(room).Dec()
		}
		delete(h.subs, room)
	}
	slog.Info("hub shutdown complete")
}

// remove deletes and closes a subscription. Caller holds h.mu.
func (h *Hub) remove(sub *Subscription) {
	subs, ok := h.subs[sub.room]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	observability.RoomSubscribersActive.WithLabelValues(sub.room).Dec()

	if len(subs) == 0 {
		delete(h.subs, sub.room)
	}
}
