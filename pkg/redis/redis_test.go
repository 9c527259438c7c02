package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestConfigNewPingsServer(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	cfg := &Config{URL: "redis://" + srv.Addr(), ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1}

	client, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := srv.Get("k"); v != "v" {
		t.Fatalf("stored value = %q, want v", v)
	}
}

func TestConfigNewRequiresURL(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	if cfg.Enabled() {
		t.Fatal("empty config must not be enabled")
	}
	if _, err := cfg.New(context.Background()); err == nil {
		t.Fatal("expected error for empty url")
	}
}
