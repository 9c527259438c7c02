package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeUpstash records every command and answers LRANGE from what RPUSH
// stored.
type fakeUpstash struct {
	mu       sync.Mutex
	commands [][]any
	lists    map[string][]string
	auth     string
}

func (f *fakeUpstash) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var cmd []any
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = r.Header.Get("Authorization")
	f.commands = append(f.commands, cmd)

	key, _ := cmd[1].(string)
	switch cmd[0] {
	case "RPUSH":
		f.lists[key] = append(f.lists[key], cmd[2].(string))
		fmt.Fprintf(w, `{"result":%d}`, len(f.lists[key]))
	case "LRANGE":
		raw, _ := json.Marshal(f.lists[key])
		fmt.Fprintf(w, `{"result":%s}`, raw)
	default:
		fmt.Fprint(w, `{"result":"OK"}`)
	}
}

func newFakeUpstash(t *testing.T, opts ...UpstashOption) (*UpstashStore, *fakeUpstash) {
	t.Helper()
	fake := &fakeUpstash{lists: map[string][]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	opts = append([]UpstashOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashStore(UpstashConfig{URL: server.URL, Token: "token"}, opts...)
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}
	return store, fake
}

func TestUpstashStoreAppendIssuesListCommands(t *testing.T) {
	t.Parallel()

	store, fake := newFakeUpstash(t, WithKeyPrefix("conv:"), WithTTL(90*time.Minute), WithMaxTurns(20))
	err := store.AppendTurn(context.Background(), Turn{UserID: "u1", SessionID: "s1", Query: "q", Answer: "a"})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.auth != "Bearer token" {
		t.Fatalf("Authorization = %q", fake.auth)
	}
	if len(fake.commands) != 3 {
		t.Fatalf("commands = %#v", fake.commands)
	}
	want := []string{"RPUSH", "LTRIM", "EXPIRE"}
	for i, name := range want {
		if fake.commands[i][0] != name || fake.commands[i][1] != "conv:u1:s1" {
			t.Fatalf("command[%d] = %#v", i, fake.commands[i])
		}
	}
	if got := fake.commands[1][2]; got != float64(-20) {
		t.Fatalf("LTRIM start = %v", got)
	}
	if got := fake.commands[2][2]; got != float64(5400) {
		t.Fatalf("EXPIRE seconds = %v", got)
	}
}

func TestUpstashStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, fake := newFakeUpstash(t)
	ctx := context.Background()
	for _, q := range []string{"one", "two", "three"} {
		if err := store.AppendTurn(ctx, Turn{UserID: "u", SessionID: "s", Query: q, Answer: q + "!"}); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	turns, err := store.ListTurns(ctx, "u", "s", 2)
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	// the fake ignores the range; the command must still carry it
	fake.mu.Lock()
	defer fake.mu.Unlock()
	last := fake.commands[len(fake.commands)-1]
	if last[0] != "LRANGE" || last[2] != float64(-2) || last[3] != float64(-1) {
		t.Fatalf("LRANGE command = %#v", last)
	}
	if len(turns) != 3 || turns[0].Query != "one" || turns[2].Answer != "three!" {
		t.Fatalf("turns = %#v", turns)
	}
}

func TestUpstashStoreEmptyList(t *testing.T) {
	t.Parallel()

	store, _ := newFakeUpstash(t)
	turns, err := store.ListTurns(context.Background(), "u", "none", 0)
	if err != nil || len(turns) != 0 {
		t.Fatalf("ListTurns() = %#v, %v", turns, err)
	}
}

func TestUpstashStoreSurfacesErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGTYPE Operation against a key holding the wrong kind of value"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashStore(UpstashConfig{URL: server.URL, Token: "token"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewUpstashStore() error = %v", err)
	}
	if _, err := store.ListTurns(context.Background(), "u", "s", 0); err == nil {
		t.Fatal("ListTurns() must surface the REST error")
	}
}

func TestUpstashStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashStore(UpstashConfig{URL: "", Token: "t"}); err == nil {
		t.Fatal("empty url must fail")
	}
	if _, err := NewUpstashStore(UpstashConfig{URL: "https://x.upstash.io", Token: " "}); err == nil {
		t.Fatal("empty token must fail")
	}
	store, _ := NewUpstashStore(UpstashConfig{URL: "https://x.upstash.io", Token: "t"})
	if err := store.AppendTurn(context.Background(), Turn{UserID: "u"}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("AppendTurn() error = %v, want ErrInvalidSession", err)
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	if got := ttlSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("ttlSeconds(1.5s) = %d", got)
	}
	if got := ttlSeconds(time.Millisecond); got != 1 {
		t.Fatalf("ttlSeconds(1ms) = %d", got)
	}
}
