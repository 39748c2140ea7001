package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Session is one conversation owned by a host. The Matcher never sees it.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one turn of a conversation
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore keeps conversation history per session.
type SessionStore interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Append(ctx context.Context, id string, msg Message) error
	// Messages returns the history in the order it was appended.
	Messages(ctx context.Context, id string) ([]Message, error)
	Close() error
}

// Converse records one exchange: the user's text, then the matcher's reply.
func Converse(ctx context.Context, store SessionStore, m *Matcher, sessionID, text string) (string, Result, error) {
	if err := store.Append(ctx, sessionID, Message{Role: RoleUser, Content: text, CreatedAt: time.Now()}); err != nil {
		return "", Result{}, fmt.Errorf("record user message: %w", err)
	}

	reply, res := m.Answer(text)

	if err := store.Append(ctx, sessionID, Message{Role: RoleBot, Content: reply, CreatedAt: time.Now()}); err != nil {
		return "", Result{}, fmt.Errorf("record bot message: %w", err)
	}
	return reply, res, nil
}

func newSessionID() string {
	return uuid.NewString()
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	sync.RWMutex
	sessions map[string]*Session
	messages map[string][]Message
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		messages: make(map[string][]Message),
	}
}

func (s *MemorySessionStore) Create(ctx context.Context) (*Session, error) {
	session := &Session{ID: newSessionID(), CreatedAt: time.Now()}

	s.Lock()
	s.sessions[session.ID] = session
	s.Unlock()

	copied := *session
	return &copied, nil
}

func (s *MemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.RLock()
	defer s.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *MemorySessionStore) Append(ctx context.Context, id string, msg Message) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return ErrSessionNotFound
	}
	s.messages[id] = append(s.messages[id], msg)
	return nil
}

func (s *MemorySessionStore) Messages(ctx context.Context, id string) ([]Message, error) {
	s.RLock()
	defer s.RUnlock()

	if _, exists := s.sessions[id]; !exists {
		return nil, ErrSessionNotFound
	}
	out := make([]Message, len(s.messages[id]))
	copy(out, s.messages[id])
	return out, nil
}

func (s *MemorySessionStore) Close() error {
	return nil
}
