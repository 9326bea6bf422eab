// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the roomchat application.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"roomchat/internal/domain"
)

// ErrMockNotFound is returned by in-memory mocks for missing records.
var ErrMockNotFound = errors.New("mock: not found")

// MockMessageRepository implements domain.MessageRepository for testing.
// It mimics the store contract: validation before any effect, sequential
// ids, insertion-order history.
type MockMessageRepository struct {
	mu sync.Mutex

	// Function overrides - set these to customize behavior
	AppendFunc  func(ctx context.Context, room, sender, body string) (*domain.Message, error)
	HistoryFunc func(ctx context.Context, room string) ([]*domain.Message, error)

	// ValidRooms is the fixed room set the mock accepts.
	ValidRooms []string
	// Messages holds appended messages in insertion order.
	Messages []*domain.Message

	nextID int64
}

// NewMockMessageRepository creates a mock accepting the given rooms.
func NewMockMessageRepository(rooms ...string) *MockMessageRepository {
	return &MockMessageRepository{ValidRooms: rooms}
}

func (m *MockMessageRepository) validRoom(room string) bool {
	for _, r := range m.ValidRooms {
		if r == room {
			return true
		}
	}
	return false
}

func (m *MockMessageRepository) Append(ctx context.Context, room, sender, body string) (*domain.Message, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, room, sender, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validRoom(room) {
		return nil, domain.ErrInvalidRoom
	}
	if sender == "" {
		return nil, domain.ErrInvalidSender
	}
	if len(body) == 0 || len(body) > domain.MaxBodyBytes {
		return nil, domain.ErrInvalidBody
	}

	m.nextID++
	msg := &domain.Message{
		ID:        m.nextID,
		Room:      room,
		Sender:    sender,
		Body:      body,
		CreatedAt: time.Now(),
	}
	m.Messages = append(m.Messages, msg)
	return msg, nil
}

func (m *MockMessageRepository) History(ctx context.Context, room string) ([]*domain.Message, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, room)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validRoom(room) {
		return nil, domain.ErrInvalidRoom
	}

	result := make([]*domain.Message, 0)
	for _, msg := range m.Messages {
		if msg.Room == room {
			result = append(result, msg)
		}
	}
	return result, nil
}

// Count returns the number of stored messages for a room.
func (m *MockMessageRepository) Count(room string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, msg := range m.Messages {
		if msg.Room == room {
			n++
		}
	}
	return n
}

// MockUserRepository implements domain.UserRepository for testing
type MockUserRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc        func(ctx context.Context, user *domain.User) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*domain.User, error)

	// In-memory storage for simple tests
	Users map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository with initialized maps
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.Users {
		if u.Username == user.Username {
			return domain.ErrUsernameExists
		}
	}

	if user.ID == "" {
		user.ID = "user-" + user.Username
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if user, ok := m.Users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.Users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc        func(ctx context.Context, session *domain.Session) error
	GetByTokenFunc    func(ctx context.Context, token string) (*domain.Session, error)
	DeleteFunc        func(ctx context.Context, token string) error
	DeleteExpiredFunc func(ctx context.Context) (int64, error)

	// In-memory storage
	Sessions map[string]*domain.Session
}

// NewMockSessionRepository creates a new MockSessionRepository with initialized maps
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*domain.Session),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.ID == "" {
		session.ID = "session-" + session.Token
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	m.Sessions[session.Token] = session
	return nil
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.Sessions[token]; ok {
		if session.ExpiresAt.Before(time.Now()) {
			return nil, domain.ErrSessionExpired
		}
		return session, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Sessions, token)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	now := time.Now()
	for token, session := range m.Sessions {
		if session.ExpiresAt.Before(now) {
			delete(m.Sessions, token)
			count++
		}
	}
	return count, nil
}
