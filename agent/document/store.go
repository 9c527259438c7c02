package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps chunked documents and which document each conversation is
// currently talking about. scope identifies one (user, session) pair.
type Store interface {
	SaveChunks(ctx context.Context, docKey string, chunks []string) error
	Chunks(ctx context.Context, docKey string) ([]string, error)
	SetActive(ctx context.Context, scope, docKey string) error
	Active(ctx context.Context, scope string) (string, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]string
	active map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks: make(map[string][]string),
		active: make(map[string]string),
	}
}

func (s *MemoryStore) SaveChunks(_ context.Context, docKey string, chunks []string) error {
	cp := make([]string, len(chunks))
	copy(cp, chunks)
	s.mu.Lock()
	s.chunks[docKey] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Chunks(_ context.Context, docKey string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.chunks[docKey]
	if !ok {
		return nil, ErrNoDocument
	}
	cp := make([]string, len(chunks))
	copy(cp, chunks)
	return cp, nil
}

func (s *MemoryStore) SetActive(_ context.Context, scope, docKey string) error {
	s.mu.Lock()
	s.active[scope] = docKey
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Active(_ context.Context, scope string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.active[scope]
	if !ok {
		return "", ErrNoDocument
	}
	return key, nil
}

const (
	DefaultRedisPrefix = "finance:doc"
	DefaultRedisTTL    = 24 * time.Hour
)

// RedisStore keeps chunks as one list per document and the active pointer
// as a plain key per conversation scope. Both expire after the TTL.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) chunksKey(docKey string) string {
	return fmt.Sprintf("%s:chunks:%s", s.prefix, docKey)
}

func (s *RedisStore) activeKey(scope string) string {
	return fmt.Sprintf("%s:active:%s", s.prefix, scope)
}

func (s *RedisStore) SaveChunks(ctx context.Context, docKey string, chunks []string) error {
	if len(chunks) == 0 {
		return ErrEmptyDocument
	}
	key := s.chunksKey(docKey)
	values := make([]any, len(chunks))
	for i, c := range chunks {
		values[i] = c
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save chunks: %w", err)
	}
	return nil
}

func (s *RedisStore) Chunks(ctx context.Context, docKey string) ([]string, error) {
	chunks, err := s.client.LRange(ctx, s.chunksKey(docKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoDocument
	}
	return chunks, nil
}

func (s *RedisStore) SetActive(ctx context.Context, scope, docKey string) error {
	if err := s.client.Set(ctx, s.activeKey(scope), docKey, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set active document: %w", err)
	}
	return nil
}

func (s *RedisStore) Active(ctx context.Context, scope string) (string, error) {
	key, err := s.client.Get(ctx, s.activeKey(scope)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoDocument
	}
	if err != nil {
		return "", fmt.Errorf("redis get active document: %w", err)
	}
	return key, nil
}
