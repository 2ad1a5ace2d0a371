package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/otpauth/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(cache.NewRepository(rdb, ""))
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestSaveWritesRecordAndPointer(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "u-1", "jti-1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	if v, _ := mr.Get("refresh-token:u-1:jti-1"); v != "u-1" {
		t.Fatalf("expected record value u-1, got %q", v)
	}
	if v, _ := mr.Get("current-refresh-token:u-1"); v != "jti-1" {
		t.Fatalf("expected pointer jti-1, got %q", v)
	}
	if ttl := mr.TTL("refresh-token:u-1:jti-1"); ttl != time.Hour {
		t.Fatalf("expected record ttl 1h, got %v", ttl)
	}
	if ttl := mr.TTL("current-refresh-token:u-1"); ttl != time.Hour {
		t.Fatalf("expected pointer ttl 1h, got %v", ttl)
	}
}

func TestSaveSupersedesPreviousSession(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "u-1", "jti-1", time.Hour); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(ctx, "u-1", "jti-2", time.Hour); err != nil {
		t.Fatalf("second save: %v", err)
	}

	ok, err := store.Exists(ctx, "u-1", "jti-1")
	if err != nil {
		t.Fatalf("exists first: %v", err)
	}
	if ok {
		t.Fatal("expected first session to be unresolvable")
	}
	ok, err = store.Exists(ctx, "u-1", "jti-2")
	if err != nil {
		t.Fatalf("exists second: %v", err)
	}
	if !ok {
		t.Fatal("expected second session to be resolvable")
	}

	keys := mr.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected exactly record + pointer, got %v", keys)
	}
}

func TestSaveDoesNotTouchOtherUsers(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "u-1", "a", time.Hour); err != nil {
		t.Fatalf("save u-1: %v", err)
	}
	if err := store.Save(ctx, "u-2", "b", time.Hour); err != nil {
		t.Fatalf("save u-2: %v", err)
	}

	if ok, _ := store.Exists(ctx, "u-1", "a"); !ok {
		t.Fatal("expected u-1 session to survive u-2 save")
	}
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	cases := []struct {
		user, token string
		ttl         time.Duration
	}{
		{"", "jti", time.Hour},
		{"u", "", time.Hour},
		{"u", "jti", 0},
	}
	for _, tc := range cases {
		if err := store.Save(ctx, tc.user, tc.token, tc.ttl); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("Save(%q, %q, %v): expected ErrInvalidSession, got %v", tc.user, tc.token, tc.ttl, err)
		}
	}
}

func TestRemoveIsIdempotentAndKeepsPointer(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "u-1", "jti-1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Remove(ctx, "u-1", "jti-1"); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := store.Remove(ctx, "u-1", "jti-1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}

	if mr.Exists("refresh-token:u-1:jti-1") {
		t.Fatal("expected record removed")
	}
	current, ok, err := store.Current(ctx, "u-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !ok || current != "jti-1" {
		t.Fatalf("expected pointer to remain jti-1, got %q ok=%v", current, ok)
	}

	if err := store.Save(ctx, "u-1", "jti-2", time.Hour); err != nil {
		t.Fatalf("save after logout: %v", err)
	}
	if ok, _ := store.Exists(ctx, "u-1", "jti-2"); !ok {
		t.Fatal("expected new session after logout")
	}
}

func TestSessionExpiresWithTTL(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, "u-1", "jti-1", time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if ok, _ := store.Exists(ctx, "u-1", "jti-1"); ok {
		t.Fatal("expected record to expire")
	}
	if _, ok, _ := store.Current(ctx, "u-1"); ok {
		t.Fatal("expected pointer to expire")
	}
}

func TestConcurrentSavesLeaveCurrentPointerResolvable(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			errs <- store.Save(ctx, "u-1", fmt.Sprintf("jti-%d", i), time.Hour)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
	}

	current, ok, err := store.Current(ctx, "u-1")
	if err != nil || !ok {
		t.Fatalf("current: ok=%v err=%v", ok, err)
	}
	if ok, _ := store.Exists(ctx, "u-1", current); !ok {
		t.Fatalf("expected pointer target %q to be resolvable", current)
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	mr.Close()

	err := store.Save(context.Background(), "u-1", "jti-1", time.Hour)
	if !errors.Is(err, cache.ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
