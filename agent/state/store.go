package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrSessionNotFound = errors.New("conversation state not found")

// SessionStore keeps ConversationState between turns. The core never
// assumes in-process durability: any keyed store can back this.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*ConversationState, error)
	Put(ctx context.Context, st *ConversationState) error
	Delete(ctx context.Context, sessionID string) error
}

// MemorySessionStore is the simplest viable SessionStore: a process-local
// map. State is lost on restart, which is acceptable for this design.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (*ConversationState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	s.mu.RLock()
	raw, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var st ConversationState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return &st, nil
}

func (s *MemorySessionStore) Put(_ context.Context, st *ConversationState) error {
	if st == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(st.SessionID) == "" {
		return ErrInvalidSession
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	s.mu.Lock()
	s.sessions[st.SessionID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}
