package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestWrapRedisNil(t *testing.T) {
	t.Parallel()

	err := WrapRedis(redis.Nil)
	status, msg := Status(err)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if msg != RedisNotFoundMessage {
		t.Fatalf("message = %q", msg)
	}
	if !errors.Is(err, redis.Nil) {
		t.Fatal("wrapped error must unwrap to redis.Nil")
	}
}

func TestStatusForWrappedAppError(t *testing.T) {
	t.Parallel()

	base := BadRequest(errors.New("message is empty"), "message is required")
	err := fmt.Errorf("handle chat: %w", base)

	status, msg := Status(err)
	if status != http.StatusBadRequest || msg != "message is required" {
		t.Fatalf("Status() = %d %q", status, msg)
	}
}

func TestStatusForPlainError(t *testing.T) {
	t.Parallel()

	status, msg := Status(errors.New("boom"))
	if status != http.StatusInternalServerError || msg != SystemErrorMessage {
		t.Fatalf("Status() = %d %q", status, msg)
	}
	if WrapRedis(nil) != nil {
		t.Fatal("WrapRedis(nil) must be nil")
	}
}
