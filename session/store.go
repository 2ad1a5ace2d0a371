package session

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/otpauth/cache"
)

const (
	// RecordNamespace holds one record per issued refresh token.
	RecordNamespace = "refresh-token"
	// PointerNamespace holds the token ID of the user's current session.
	PointerNamespace = "current-refresh-token"
)

// ErrInvalidSession is returned when a session is saved without a user or
// token identifier, or with a non-positive TTL.
var ErrInvalidSession = errors.New("invalid refresh session")

// Store persists refresh sessions through a [cache.Repository].
type Store struct {
	repo *cache.Repository
}

// NewStore creates a refresh-session [Store].
func NewStore(repo *cache.Repository) *Store {
	return &Store{repo: repo}
}

func recordKey(userID, tokenID string) string {
	return userID + ":" + tokenID
}

// Save makes tokenID the only resolvable refresh session of userID.
//
//	Performance: 1 GET + 1 MULTI/EXEC (2-3 commands).
func (s *Store) Save(ctx context.Context, userID, tokenID string, ttl time.Duration) error {
	if userID == "" || tokenID == "" || ttl <= 0 {
		return ErrInvalidSession
	}

	previous, ok, err := s.repo.Get(ctx, PointerNamespace, userID)
	if err != nil {
		return err
	}

	batch := s.repo.Batch()
	if ok && previous != "" && previous != tokenID {
		batch.Delete(ctx, RecordNamespace, recordKey(userID, previous))
	}
	batch.SetWithExpiry(ctx, RecordNamespace, recordKey(userID, tokenID), userID, ttl)
	batch.SetWithExpiry(ctx, PointerNamespace, userID, tokenID, ttl)

	return batch.Exec(ctx)
}

// Remove deletes the record of tokenID. It is idempotent and leaves the
// pointer in place.
func (s *Store) Remove(ctx context.Context, userID, tokenID string) error {
	return s.repo.Delete(ctx, RecordNamespace, recordKey(userID, tokenID))
}

// Exists reports whether tokenID is still a live session of userID.
func (s *Store) Exists(ctx context.Context, userID, tokenID string) (bool, error) {
	owner, ok, err := s.repo.Get(ctx, RecordNamespace, recordKey(userID, tokenID))
	if err != nil {
		return false, err
	}
	return ok && owner == userID, nil
}

// Current returns the token ID the pointer of userID refers to.
func (s *Store) Current(ctx context.Context, userID string) (string, bool, error) {
	return s.repo.Get(ctx, PointerNamespace, userID)
}
