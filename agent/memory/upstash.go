package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

var _ Store = (*UpstashStore)(nil)

// UpstashOption customizes UpstashStore.
type UpstashOption func(*UpstashStore)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(s *UpstashStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) UpstashOption {
	return func(s *UpstashStore) {
		s.ttl = ttl
	}
}

func WithMaxTurns(n int) UpstashOption {
	return func(s *UpstashStore) {
		s.maxTurns = n
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashStore keeps the same list layout as RedisStore over the Upstash
// REST API, one command per request.
type UpstashStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
	maxTurns   int
}

type restResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashConfig struct {
	URL     string        `envconfig:"URL" required:"true"`
	Token   string        `envconfig:"TOKEN" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

func NewUpstashStore(cfg UpstashConfig, opts ...UpstashOption) (*UpstashStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  "finance:memory:",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

func (s *UpstashStore) AppendTurn(ctx context.Context, turn Turn) error {
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

	key := turnKey(s.keyPrefix, turn.UserID, turn.SessionID)
	if _, err := s.exec(ctx, []any{"RPUSH", key, string(payload)}); err != nil {
		return err
	}
	if s.maxTurns > 0 {
		if _, err := s.exec(ctx, []any{"LTRIM", key, -s.maxTurns, -1}); err != nil {
			return err
		}
	}
	if s.ttl > 0 {
		if _, err := s.exec(ctx, []any{"EXPIRE", key, ttlSeconds(s.ttl)}); err != nil {
			return err
		}
	}
	return nil
}

func (s *UpstashStore) ListTurns(ctx context.Context, userID, sessionID string, limit int) ([]Turn, error) {
	if err := validateScope(userID, sessionID); err != nil {
		return nil, err
	}
	start := 0
	if limit > 0 {
		start = -limit
	}
	resp, err := s.exec(ctx, []any{"LRANGE", turnKey(s.keyPrefix, userID, sessionID), start, -1})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("decode turn list: %w", err)
	}
	return decodeTurns(raw)
}

func (s *UpstashStore) exec(ctx context.Context, command []any) (*restResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed restResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
