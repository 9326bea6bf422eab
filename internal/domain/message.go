package domain

import (
	"context"
	"time"
)

// Message represents one chat utterance. Messages are immutable once stored;
// there is no update or delete path.
type Message struct {
	ID        int64     `json:"id"`
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxBodyBytes caps the size of a message body accepted by the store.
const MaxBodyBytes = 1000

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	// Append validates and durably stores a message, assigning its ID and
	// timestamp. The returned message is the stored record.
	Append(ctx context.Context, room, sender, body string) (*Message, error)
	// History returns all messages for a room in insertion order, oldest
	// first. A valid room with no messages yields an empty slice.
	History(ctx context.Context, room string) ([]*Message, error)
}
