package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore appends JSON turns to one list per (user, session), trims it
// to maxTurns and refreshes the TTL on every write.
type RedisStore struct {
	client   redis.Cmdable
	prefix   string
	ttl      time.Duration
	maxTurns int
}

func NewRedisStore(client redis.Cmdable, cfg Config) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "finance:memory:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL, maxTurns: cfg.MaxTurns}
}

func (s *RedisStore) AppendTurn(ctx context.Context, turn Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := turnKey(s.prefix, turn.UserID, turn.SessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		if s.maxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append turn: %w", err)
	}
	return nil
}

func (s *RedisStore) ListTurns(ctx context.Context, userID, sessionID string, limit int) ([]Turn, error) {
	if err := validateScope(userID, sessionID); err != nil {
		return nil, err
	}
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, turnKey(s.prefix, userID, sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list turns: %w", err)
	}
	return decodeTurns(raw)
}

func decodeTurns(raw []string) ([]Turn, error) {
	turns := make([]Turn, 0, len(raw))
	for i, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode turn %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
