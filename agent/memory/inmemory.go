package memory

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps turns in process. It is the development default.
type InMemoryStore struct {
	mu       sync.RWMutex
	turns    map[string][]Turn
	maxTurns int
}

func NewInMemoryStore(maxTurns int) *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]Turn), maxTurns: maxTurns}
}

func (s *InMemoryStore) AppendTurn(_ context.Context, turn Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	key := turnKey("", turn.UserID, turn.SessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.turns[key], turn)
	if s.maxTurns > 0 && len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.turns[key] = turns
	return nil
}

func (s *InMemoryStore) ListTurns(_ context.Context, userID, sessionID string, limit int) ([]Turn, error) {
	if err := validateScope(userID, sessionID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[turnKey("", userID, sessionID)]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}
