// Package store provides ConversationRepository implementations: an
// in-memory reference store and a SQLite-backed durable store.
package store

import (
	"context"
	"sync"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

// MemoryStore is the in-memory reference implementation. Aggregates are
// cloned on the way in and out so callers can never mutate stored state
// except through Save.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*core.Conversation)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	return conv.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, conv *core.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[conv.ID] = conv.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, id)
	return nil
}

// Len reports the number of stored conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
