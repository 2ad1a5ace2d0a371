package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/otpauth/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newOTPLimiterTest(t *testing.T, max int) (*OTPLimiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewOTPLimiter(cache.NewRepository(rdb, ""), OTPLimiterConfig{MaxAttempts: max, Window: time.Minute})
	return l, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestOTPLimiterBlocksAfterMaxFailures(t *testing.T) {
	l, mr, done := newOTPLimiterTest(t, 3)
	defer done()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.RecordFailure(ctx, "+1"); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
		if err := l.Check(ctx, "+1"); err != nil {
			t.Fatalf("check after %d failures: %v", i+1, err)
		}
	}
	if err := l.RecordFailure(ctx, "+1"); !errors.Is(err, ErrOTPAttemptsExceeded) {
		t.Fatalf("expected exceeded on third failure, got %v", err)
	}
	if err := l.Check(ctx, "+1"); !errors.Is(err, ErrOTPAttemptsExceeded) {
		t.Fatalf("expected check to block, got %v", err)
	}
	if ttl := mr.TTL("otp:attempts:+1"); ttl != time.Minute {
		t.Fatalf("expected fixed 1m window, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Check(ctx, "+1"); err != nil {
		t.Fatalf("expected window to reopen, got %v", err)
	}
}

func TestOTPLimiterReset(t *testing.T) {
	l, mr, done := newOTPLimiterTest(t, 2)
	defer done()
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "+1")
	if err := l.Reset(ctx, "+1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mr.Exists("otp:attempts:+1") {
		t.Fatal("expected counter to be cleared")
	}
}

func TestNilOTPLimiterIsDisabled(t *testing.T) {
	l, _, done := newOTPLimiterTest(t, 0)
	defer done()
	if l != nil {
		t.Fatal("expected nil limiter for zero attempts")
	}
	ctx := context.Background()
	if err := l.Check(ctx, "+1"); err != nil {
		t.Fatalf("nil check: %v", err)
	}
	if err := l.RecordFailure(ctx, "+1"); err != nil {
		t.Fatalf("nil record: %v", err)
	}
	if err := l.Reset(ctx, "+1"); err != nil {
		t.Fatalf("nil reset: %v", err)
	}
}
