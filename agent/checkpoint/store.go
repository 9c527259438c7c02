package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("checkpoint not found")

var _ contractx.CheckpointStore = (*SQLiteStore)(nil)

type Config struct {
	Path    string `default:"data/checkpoints.db"`
	Enabled bool   `default:"true"`
}

// SessionInfo summarises one session's checkpoints.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Turns     int       `json:"turns"`
	LastQuery string    `json:"last_query"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SQLiteStore keeps one snapshot row per finished turn.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates parent directories and opens the database with WAL and a
// busy timeout.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	return open(ctx, dsn)
}

// OpenMemory opens a named in-memory database shared by the pool's
// connections.
func OpenMemory(ctx context.Context, name string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(name))
	return open(ctx, dsn)
}

func open(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init checkpoint schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS checkpoints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	query TEXT NOT NULL,
	turn_at TIMESTAMP NOT NULL,
	snapshot TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id, id);
`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, snap statex.Snapshot) error {
	if snap.SessionID == "" {
		return fmt.Errorf("%w: snapshot has no session id", contractx.ErrValidation)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	turnAt := snap.CreatedAt
	if turnAt.IsZero() {
		turnAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, user_id, query, turn_at, snapshot) VALUES (?, ?, ?, ?, ?)`,
		snap.SessionID, snap.UserID, snap.OriginalQuery, turnAt.UTC(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("%w: insert checkpoint: %v", contractx.ErrPersistence, err)
	}
	return nil
}

// Latest returns the most recent snapshot of a session.
func (s *SQLiteStore) Latest(ctx context.Context, sessionID string) (statex.Snapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM checkpoints WHERE session_id = ? ORDER BY id DESC LIMIT 1`, sessionID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return statex.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return statex.Snapshot{}, fmt.Errorf("select checkpoint: %w", err)
	}

	var snap statex.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return statex.Snapshot{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return snap, nil
}

// ListSessions returns sessions ordered by their latest turn, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT c.session_id, c.user_id, agg.turns, c.query, c.turn_at
FROM checkpoints c
JOIN (
	SELECT session_id, MAX(id) AS last_id, COUNT(*) AS turns
	FROM checkpoints
	GROUP BY session_id
) agg ON agg.last_id = c.id
ORDER BY c.id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.SessionID, &info.UserID, &info.Turns, &info.LastQuery, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
