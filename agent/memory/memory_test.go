package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

func storeSuite(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		turn := Turn{UserID: "u1", SessionID: "s1", Query: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
		if err := store.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}
	if err := store.AppendTurn(ctx, Turn{UserID: "u1", SessionID: "s2", Query: "other", Answer: "x"}); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	all, err := store.ListTurns(ctx, "u1", "s1", 0)
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if len(all) != 3 || all[0].Query != "q1" || all[2].Answer != "a3" {
		t.Fatalf("ListTurns(all) = %#v", all)
	}
	if all[0].CreatedAt.IsZero() {
		t.Fatal("created_at must be set")
	}

	recent, err := store.ListTurns(ctx, "u1", "s1", 2)
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if len(recent) != 2 || recent[0].Query != "q2" || recent[1].Query != "q3" {
		t.Fatalf("ListTurns(2) = %#v", recent)
	}

	none, err := store.ListTurns(ctx, "u2", "s1", 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("turns leaked across users: %#v %v", none, err)
	}

	if err := store.AppendTurn(ctx, Turn{UserID: "alice:x", SessionID: "s1", Query: "my portfolio"}); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	shifted, err := store.ListTurns(ctx, "alice", "x:s1", 0)
	if err != nil || len(shifted) != 0 {
		t.Fatalf("turns leaked across a shifted user/session boundary: %#v %v", shifted, err)
	}

	if err := store.AppendTurn(ctx, Turn{SessionID: "s1"}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("AppendTurn(no user) error = %v", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	t.Parallel()
	storeSuite(t, NewInMemoryStore(0))
}

func TestInMemoryStoreTrims(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(2)
	for i := 0; i < 5; i++ {
		_ = store.AppendTurn(context.Background(), Turn{UserID: "u", SessionID: "s", Query: fmt.Sprint(i)})
	}
	turns, _ := store.ListTurns(context.Background(), "u", "s", 0)
	if len(turns) != 2 || turns[0].Query != "3" {
		t.Fatalf("turns = %#v", turns)
	}
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, Config{KeyPrefix: "test:mem:", MaxTurns: 10, TTL: time.Hour})
	storeSuite(t, store)

	if ttl := srv.TTL("test:mem:u1:s1"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}
}

func TestTurnKeyEscapesSeparator(t *testing.T) {
	t.Parallel()

	if got := turnKey("m:", "u1", "s1"); got != "m:u1:s1" {
		t.Fatalf("turnKey(plain) = %q", got)
	}
	a := turnKey("m:", "alice:x", "s1")
	b := turnKey("m:", "alice", "x:s1")
	if a == b {
		t.Fatalf("turnKey collision: %q", a)
	}
}

func TestRedisStoreTrimsToMaxTurns(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, Config{KeyPrefix: "m:", MaxTurns: 2})
	for i := 0; i < 4; i++ {
		if err := store.AppendTurn(context.Background(), Turn{UserID: "u", SessionID: "s", Query: fmt.Sprint(i)}); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}
	items, err := srv.List("m:u:s")
	if err != nil || len(items) != 2 {
		t.Fatalf("list = %v, %v", items, err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	store := NewPostgresStore(db)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	if _, err := db.NewTruncateTable().Model((*turnRow)(nil)).Exec(ctx); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	storeSuite(t, store)
}

type failingStore struct{ err error }

func (f failingStore) AppendTurn(context.Context, Turn) error { return f.err }
func (f failingStore) ListTurns(context.Context, string, string, int) ([]Turn, error) {
	return nil, f.err
}

func TestManagerLoadContextNeverFails(t *testing.T) {
	t.Parallel()

	m := NewManager(failingStore{err: errors.New("connection refused")}, statex.Window{}, 10)
	got := m.LoadContext(context.Background(), "u", "s")
	if !got.Fresh || got.Render() != statex.FreshConversation {
		t.Fatalf("LoadContext() = %#v", got)
	}
	// must only log
	m.SaveTurn(context.Background(), "u", "s", "q", "a")
}

func TestManagerFreshWhenNoTurns(t *testing.T) {
	t.Parallel()

	m := NewManager(NewInMemoryStore(0), statex.Window{}, 10)
	if got := m.LoadContext(context.Background(), "u", "s"); !got.Fresh {
		t.Fatalf("LoadContext() = %#v, want fresh", got)
	}
}

func TestManagerSplitsHistoryAndSummary(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(0)
	m := NewManager(store, statex.Window{MaxMessages: 2}, 0)
	ctx := context.Background()
	m.SaveTurn(ctx, "u", "s", "What is an ETF?", "An exchange traded fund.")
	m.SaveTurn(ctx, "u", "s", "And a mutual fund?", "A pooled investment.")
	m.SaveTurn(ctx, "u", "s", "Which is cheaper?", "ETFs usually.")

	got := m.LoadContext(ctx, "u", "s")
	if got.Fresh {
		t.Fatal("context must not be fresh")
	}
	if len(got.History) != 2 || got.History[0].Content != "Which is cheaper?" || got.History[1].Role != statex.RoleAssistant {
		t.Fatalf("history = %#v", got.History)
	}
	wantSummary := "Earlier: What is an ETF? -> An exchange traded fund.\nEarlier: And a mutual fund? -> A pooled investment."
	if got.Summary != wantSummary {
		t.Fatalf("summary = %q", got.Summary)
	}
	if !strings.Contains(got.Render(), "Recent conversation:\nHuman: Which is cheaper?") {
		t.Fatalf("render = %q", got.Render())
	}
}

func TestParseBackend(t *testing.T) {
	t.Parallel()

	if b, err := ParseBackend(" Redis "); err != nil || b != BackendRedis {
		t.Fatalf("ParseBackend(Redis) = %s, %v", b, err)
	}
	if b, _ := ParseBackend(""); b != BackendMemory {
		t.Fatalf("ParseBackend(\"\") = %s", b)
	}
	if _, err := ParseBackend("mongo"); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("ParseBackend(mongo) error = %v", err)
	}
}
