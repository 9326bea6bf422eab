package service

import (
	"context"
	"log/slog"
	"sync"

	"roomchat/internal/domain"
	"roomchat/internal/hub"
	"roomchat/internal/observability"
	"roomchat/internal/registry"
)

// MessageEventPublisher forwards stored messages to an external event stream.
type MessageEventPublisher interface {
	PublishMessage(ctx context.Context, msg *domain.Message) error
}

// ChatService orchestrates the message store and the broadcast hub. It is
// stateless between calls apart from the fixed per-room lock table.
type ChatService struct {
	messages domain.MessageRepository
	rooms    *registry.Registry
	hub      *hub.Hub
	events   MessageEventPublisher

	// roomLocks serializes append+publish per room so every subscriber
	// observes broadcasts in storage insertion order.
	roomLocks map[string]*sync.Mutex
}

// NewChatService creates a ChatService. events may be nil when no external
// event stream is configured.
func NewChatService(messages domain.MessageRepository, rooms *registry.Registry, h *hub.Hub, events MessageEventPublisher) *ChatService {
	locks := make(map[string]*sync.Mutex, len(rooms.List()))
	for _, room := range rooms.List() {
		locks[room] = &sync.Mutex{}
	}
	return &ChatService{
		messages:  messages,
		rooms:     rooms,
		hub:       h,
		events:    events,
		roomLocks: locks,
	}
}

// PostMessage stores a message and fans it out to the room's subscribers.
// sender must be a verified identity supplied by the auth layer; an empty
// sender means the request never carried one. A failed append publishes
// nothing.
func (s *ChatService) PostMessage(ctx context.Context, room, sender, body string) (*domain.Message, error) {
	if sender == "" {
		return nil, domain.ErrUnauthorized
	}

	lock, ok := s.roomLocks[room]
	if !ok {
		return nil, domain.ErrInvalidRoom
	}

	lock.Lock()
	msg, err := s.messages.Append(ctx, room, sender, body)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	observability.MessagesStored.WithLabelValues(room).Inc()
	s.hub.Publish(room, msg)
	lock.Unlock()

	if s.events != nil {
		if err := s.events.PublishMessage(ctx, msg); err != nil {
			slog.Warn("failed to publish message event",
				slog.String("room", room),
				slog.String("error", err.Error()))
		}
	}

	return msg, nil
}

// GetHistory returns all stored messages for the room, oldest first.
func (s *ChatService) GetHistory(ctx context.Context, room string) ([]*domain.Message, error) {
	return s.messages.History(ctx, room)
}

// JoinRoom opens a live subscription for the room.
func (s *ChatService) JoinRoom(room string) (*hub.Subscription, error) {
	if !s.rooms.IsValid(room) {
		return nil, domain.ErrInvalidRoom
	}
	return s.hub.Subscribe(room)
}

// ListRooms returns the fixed room catalog in configured order.
func (s *ChatService) ListRooms() []string {
	return s.rooms.List()
}
