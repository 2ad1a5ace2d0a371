package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/otpauth"
	"github.com/google/uuid"
)

// Memory is an in-process user store. The zero value is not usable; call
// [NewMemory].
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]*otpauth.User
	byEmail    map[string]string
	byUsername map[string]string
	now        func() time.Time
}

var (
	_ otpauth.UserProvider        = (*Memory)(nil)
	_ otpauth.PasswordHashUpdater = (*Memory)(nil)
)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[string]*otpauth.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*otpauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(m.byEmail, email)
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*otpauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(m.byUsername, username)
}

func (m *Memory) GetUserByID(_ context.Context, id string) (*otpauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, otpauth.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *Memory) lookup(index map[string]string, key string) (*otpauth.User, error) {
	id, ok := index[key]
	if !ok {
		return nil, otpauth.ErrUserNotFound
	}
	out := *m.byID[id]
	return &out, nil
}

// CreateUser stores a Student with Verified status.
func (m *Memory) CreateUser(ctx context.Context, in otpauth.CreateUserInput) (*otpauth.User, error) {
	return m.InsertUser(ctx, otpauth.User{
		Username:      in.Username,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		School:        in.School,
		District:      in.District,
		Address:       in.Address,
		DOB:           in.DOB,
		Role:          otpauth.RoleStudent,
		AccountStatus: otpauth.AccountStatusVerified,
	})
}

// InsertUser stores u as given, assigning an ID and timestamps when unset.
func (m *Memory) InsertUser(_ context.Context, u otpauth.User) (*otpauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byUsername[u.Username]; taken {
		return nil, otpauth.ErrUserExists
	}
	if u.Email != "" {
		if _, taken := m.byEmail[u.Email]; taken {
			return nil, otpauth.ErrUserExists
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := m.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	stored := u
	m.byID[u.ID] = &stored
	m.byUsername[u.Username] = u.ID
	if u.Email != "" {
		m.byEmail[u.Email] = u.ID
	}
	return &u, nil
}

// UpdatePasswordHash replaces the stored hash of userID.
func (m *Memory) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return otpauth.ErrUserNotFound
	}
	u.PasswordHash = newHash
	u.UpdatedAt = m.now().UTC()
	return nil
}

// Len reports the number of stored users.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
