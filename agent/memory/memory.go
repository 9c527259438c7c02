package memory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrInvalidUser    = errors.New("user id is empty")
	ErrUnknownBackend = errors.New("unknown memory backend")
)

// Turn is one persisted exchange, stored append-only.
type Turn struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the backend contract. ListTurns returns the most recent turns,
// oldest first; limit <= 0 means all of them.
type Store interface {
	AppendTurn(ctx context.Context, turn Turn) error
	ListTurns(ctx context.Context, userID, sessionID string, limit int) ([]Turn, error)
}

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendUpstash  Backend = "upstash"
	BackendPostgres Backend = "postgres"
)

func ParseBackend(raw string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(raw))); b {
	case "":
		return BackendMemory, nil
	case BackendMemory, BackendRedis, BackendUpstash, BackendPostgres:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, raw)
	}
}

type Config struct {
	Backend   string        `default:"memory"`
	KeyPrefix string        `split_words:"true" default:"finance:memory:"`
	MaxTurns  int           `split_words:"true" default:"50"`
	TTL       time.Duration `default:"168h"`
}

func validateScope(userID, sessionID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return nil
}

func validateTurn(turn Turn) error {
	return validateScope(turn.UserID, turn.SessionID)
}

// turnKey escapes both ids so a ":" inside one can never shift the
// user/session boundary.
func turnKey(prefix, userID, sessionID string) string {
	return prefix + url.QueryEscape(userID) + ":" + url.QueryEscape(sessionID)
}
