package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var _ Store = (*PostgresStore)(nil)

type PostgresConfig struct {
	DSN string `envconfig:"DSN"`
}

type turnRow struct {
	bun.BaseModel `bun:"table:conversation_turns,alias:ct"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	SessionID string    `bun:"session_id,notnull"`
	Query     string    `bun:"query,notnull"`
	Answer    string    `bun:"answer,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PostgresStore keeps every turn as a row of conversation_turns.
type PostgresStore struct {
	db *bun.DB
}

// OpenPostgres connects through pgdriver and creates the schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	store := NewPostgresStore(bun.NewDB(sqldb, pgdialect.New()))
	if err := store.db.PingContext(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*turnRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create conversation_turns: %w", err)
	}
	_, err := s.db.NewCreateIndex().
		Model((*turnRow)(nil)).
		Index("conversation_turns_scope_idx").
		Column("user_id", "session_id", "id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create conversation_turns index: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, turn Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	row := &turnRow{
		UserID:    turn.UserID,
		SessionID: turn.SessionID,
		Query:     turn.Query,
		Answer:    turn.Answer,
		CreatedAt: turn.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTurns(ctx context.Context, userID, sessionID string, limit int) ([]Turn, error) {
	if err := validateScope(userID, sessionID); err != nil {
		return nil, err
	}

	var rows []turnRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("session_id = ?", sessionID).
		OrderExpr("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select turns: %w", err)
	}

	turns := make([]Turn, len(rows))
	for i, r := range rows {
		// rows come newest first
		turns[len(rows)-1-i] = Turn{
			UserID:    r.UserID,
			SessionID: r.SessionID,
			Query:     r.Query,
			Answer:    r.Answer,
			CreatedAt: r.CreatedAt,
		}
	}
	return turns, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
