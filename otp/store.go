package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/otpauth/cache"
)

const (
	// CodeNamespace holds the live code per phone number.
	CodeNamespace = "otp"
	// RequestNamespace holds the sliding issuance counter per phone number.
	RequestNamespace = "otp:requests"
)

// Store issues, counts, and verifies OTP codes.
type Store struct {
	repo *cache.Repository
}

// NewStore creates an OTP [Store].
func NewStore(repo *cache.Repository) *Store {
	return &Store{repo: repo}
}

// Issue stores code for phone, replacing any unconsumed code, then bumps the
// request counter and pushes its expiry rateLimitTTL into the future.
//
// The three commands are not transactional; each one is atomic on its own.
func (s *Store) Issue(ctx context.Context, phone, code string, codeTTL, rateLimitTTL time.Duration) error {
	if err := s.repo.SetWithExpiry(ctx, CodeNamespace, phone, code, codeTTL); err != nil {
		return err
	}
	if _, err := s.repo.Incr(ctx, RequestNamespace, phone); err != nil {
		return err
	}
	return s.repo.Expire(ctx, RequestNamespace, phone, rateLimitTTL)
}

// RequestCount returns the number of codes issued to phone in the current
// window. ok is false when no window is open.
func (s *Store) RequestCount(ctx context.Context, phone string) (int64, bool, error) {
	raw, ok, err := s.repo.Get(ctx, RequestNamespace, phone)
	if err != nil || !ok {
		return 0, false, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("otp request counter for %s: %w", phone, err)
	}
	return count, true, nil
}

// Verify reports whether candidate equals the live code of phone. A match
// consumes the code; a mismatch or missing code leaves the store untouched.
func (s *Store) Verify(ctx context.Context, phone, candidate string) (bool, error) {
	stored, ok, err := s.repo.Get(ctx, CodeNamespace, phone)
	if err != nil {
		return false, err
	}
	if !ok || candidate == "" {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) != 1 {
		return false, nil
	}
	if err := s.repo.Delete(ctx, CodeNamespace, phone); err != nil {
		return false, err
	}
	return true, nil
}
