package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"roomchat/internal/domain"
	"roomchat/internal/registry"
)

// MessageRepository implements domain.MessageRepository for PostgreSQL.
// Appends are single-statement inserts; the BIGSERIAL id is the sequence
// position that orders history replay.
type MessageRepository struct {
	db    *sql.DB
	rooms *registry.Registry
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sql.DB, rooms *registry.Registry) *MessageRepository {
	return &MessageRepository{db: db, rooms: rooms}
}

// Append validates and inserts a message, returning the stored record with
// its assigned id and timestamp.
func (r *MessageRepository) Append(ctx context.Context, room, sender, body string) (*domain.Message, error) {
	if !r.rooms.IsValid(room) {
		return nil, domain.ErrInvalidRoom
	}
	if sender == "" {
		return nil, domain.ErrInvalidSender
	}
	if len(body) == 0 || len(body) > domain.MaxBodyBytes {
		return nil, domain.ErrInvalidBody
	}

	msg := &domain.Message{
		Room:   room,
		Sender: sender,
		Body:   body,
	}

	query := `
		INSERT INTO messages (room, sender, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		msg.Room,
		msg.Sender,
		msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return msg, nil
}

// History retrieves all messages for a room in insertion order, oldest first.
func (r *MessageRepository) History(ctx context.Context, room string) ([]*domain.Message, error) {
	if !r.rooms.IsValid(room) {
		return nil, domain.ErrInvalidRoom
	}

	query := `
		SELECT id, room, sender, body, created_at
		FROM messages
		WHERE room = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		msg := &domain.Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.Room,
			&msg.Sender,
			&msg.Body,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
