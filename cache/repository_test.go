package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRepositoryTest(t *testing.T, prefix string) (*Repository, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRepository(rdb, prefix), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestGetMissingKeyIsAbsentNotError(t *testing.T) {
	repo, _, done := newRepositoryTest(t, "")
	defer done()

	value, ok, err := repo.Get(context.Background(), "otp", "+94700000000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || value != "" {
		t.Fatalf("expected absent value, got %q ok=%v", value, ok)
	}
}

func TestSetWithExpiryUsesNamespacedKey(t *testing.T) {
	repo, mr, done := newRepositoryTest(t, "")
	defer done()
	ctx := context.Background()

	if err := repo.SetWithExpiry(ctx, "otp", "+94700000000", "123456", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, err := mr.Get("otp:+94700000000")
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if raw != "123456" {
		t.Fatalf("unexpected raw value %q", raw)
	}
	if ttl := mr.TTL("otp:+94700000000"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if _, ok, _ := repo.Get(ctx, "otp", "+94700000000"); ok {
		t.Fatal("expected key to expire")
	}
}

func TestPrefixIsPrepended(t *testing.T) {
	repo, mr, done := newRepositoryTest(t, "svc")
	defer done()

	if got := repo.Key("otp", "1"); got != "svc:otp:1" {
		t.Fatalf("unexpected key %q", got)
	}
	if err := repo.SetWithExpiry(context.Background(), "otp", "1", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("svc:otp:1") {
		t.Fatal("expected prefixed key to exist")
	}
}

func TestIncrAndExpire(t *testing.T) {
	repo, mr, done := newRepositoryTest(t, "")
	defer done()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Incr(ctx, "otp:requests", "p")
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	if err := repo.Expire(ctx, "otp:requests", "p", 10*time.Second); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if ttl := mr.TTL("otp:requests:p"); ttl != 10*time.Second {
		t.Fatalf("expected 10s ttl, got %v", ttl)
	}
	if err := repo.Expire(ctx, "otp:requests", "missing", time.Second); err != nil {
		t.Fatalf("expire missing key: %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo, _, done := newRepositoryTest(t, "")
	defer done()
	ctx := context.Background()

	if err := repo.SetWithExpiry(ctx, "otp", "p", "1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.Delete(ctx, "otp", "p"); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	if _, ok, _ := repo.Get(ctx, "otp", "p"); ok {
		t.Fatal("expected key to be gone")
	}
}

func TestBatchCommitsAllQueuedCommands(t *testing.T) {
	repo, mr, done := newRepositoryTest(t, "")
	defer done()
	ctx := context.Background()

	if err := repo.SetWithExpiry(ctx, "refresh-token", "u1:old", "u1", time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	batch := repo.Batch()
	batch.Delete(ctx, "refresh-token", "u1:old")
	batch.SetWithExpiry(ctx, "refresh-token", "u1:new", "u1", time.Hour)
	batch.SetWithExpiry(ctx, "current-refresh-token", "u1", "new", time.Hour)
	if batch.Len() != 3 {
		t.Fatalf("expected 3 queued commands, got %d", batch.Len())
	}

	if mr.Exists("refresh-token:u1:new") {
		t.Fatal("queued set must not be visible before Exec")
	}
	if err := batch.Exec(ctx); err != nil {
		t.Fatalf("exec: %v", err)
	}

	if mr.Exists("refresh-token:u1:old") {
		t.Fatal("expected old record deleted")
	}
	if v, _ := mr.Get("current-refresh-token:u1"); v != "new" {
		t.Fatalf("unexpected pointer %q", v)
	}
}

func TestEmptyBatchExecIsNoop(t *testing.T) {
	repo, _, done := newRepositoryTest(t, "")
	defer done()

	if err := repo.Batch().Exec(context.Background()); err != nil {
		t.Fatalf("empty exec: %v", err)
	}
}

func TestStoreFailureWrapsRedisUnavailable(t *testing.T) {
	repo, mr, done := newRepositoryTest(t, "")
	defer done()
	mr.Close()
	ctx := context.Background()

	if _, _, err := repo.Get(ctx, "otp", "p"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from Get, got %v", err)
	}
	if _, err := repo.Incr(ctx, "otp:requests", "p"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from Incr, got %v", err)
	}
	if _, err := repo.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from Ping, got %v", err)
	}
}
