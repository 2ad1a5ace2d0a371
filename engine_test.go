package otpauth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "secret123"

type mockUserProvider struct {
	mu         sync.Mutex
	users      map[string]User
	byEmail    map[string]string
	byUsername map[string]string
	nextID     int
	err        error
}

func newMockUserProvider() *mockUserProvider {
	up := &mockUserProvider{
		users:      map[string]User{},
		byEmail:    map[string]string{},
		byUsername: map[string]string{},
	}
	up.add(User{
		ID:            "u1",
		Email:         "a@x.com",
		Username:      "+94700000000",
		PasswordHash:  "plain:" + testPassword,
		FirstName:     "Ada",
		LastName:      "Perera",
		Role:          RoleStudent,
		AccountStatus: AccountStatusVerified,
	})
	return up
}

func (m *mockUserProvider) add(u User) {
	m.users[u.ID] = u
	if u.Email != "" {
		m.byEmail[u.Email] = u.ID
	}
	m.byUsername[u.Username] = u.ID
}

func (m *mockUserProvider) get(index map[string]string, key string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	id, ok := index[key]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *mockUserProvider) GetUserByEmail(_ context.Context, email string) (*User, error) {
	return m.get(m.byEmail, email)
}

func (m *mockUserProvider) GetUserByUsername(_ context.Context, username string) (*User, error) {
	return m.get(m.byUsername, username)
}

func (m *mockUserProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	m.users[userID] = u
	return nil
}

func (m *mockUserProvider) GetUserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, in CreateUserInput) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUsername[in.Username]; ok {
		return nil, ErrUserExists
	}
	m.nextID++
	now := time.Now().UTC()
	u := User{
		ID:            "new-" + strconv.Itoa(m.nextID),
		Username:      in.Username,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		School:        in.School,
		District:      in.District,
		Address:       in.Address,
		DOB:           in.DOB,
		Role:          RoleStudent,
		AccountStatus: AccountStatusVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.add(u)
	return &u, nil
}

type plainMatcher struct{}

func (plainMatcher) Match(storedHash, candidate string) (bool, error) {
	if !strings.HasPrefix(storedHash, "plain:") {
		return false, errors.New("unknown hash")
	}
	return strings.TrimPrefix(storedHash, "plain:") == candidate, nil
}

type sentText struct {
	recipient string
	message   string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentText
	nack bool
	err  error
}

func (f *fakeMessenger) SendText(_ context.Context, recipient, message string) (Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Delivery{}, f.err
	}
	f.sent = append(f.sent, sentText{recipient: recipient, message: message})
	return Delivery{Acknowledged: !f.nack}, nil
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMessenger) last() sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentText{}
	}
	return f.sent[len(f.sent)-1]
}

func engineTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests-0123456789")
	cfg.Metrics.Enabled = true
	return cfg
}

type engineTest struct {
	engine    *Engine
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	users     *mockUserProvider
	messenger *fakeMessenger
}

func newEngineTest(t *testing.T, cfg Config) (*engineTest, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	et := &engineTest{
		mr:        mr,
		rdb:       rdb,
		users:     newMockUserProvider(),
		messenger: &fakeMessenger{},
	}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(et.users).
		WithPasswordMatcher(plainMatcher{}).
		WithMessenger(et.messenger).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	et.engine = engine

	return et, func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	}
}

// refreshSession returns the user and token id carried by a refresh token.
func (et *engineTest) refreshSession(t *testing.T, token string) (string, string) {
	t.Helper()
	claims, err := et.engine.jwt.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	return claims.ID, claims.RegisteredClaims.ID
}

func requireErrorCode(t *testing.T, err error, kind Kind, code string) *Error {
	t.Helper()
	e, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if e.Kind != kind || e.Code != code {
		t.Fatalf("expected %s/%s, got %s/%s", kind, code, e.Kind, e.Code)
	}
	return e
}

func TestGenerateTokensPersistsSession(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()

	pair, err := et.engine.GenerateTokens(context.Background(), "u1", RoleStudent)
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	userID, tokenID := et.refreshSession(t, pair.RefreshToken)
	if userID != "u1" {
		t.Fatalf("expected subject u1, got %q", userID)
	}
	record := "refresh-token:u1:" + tokenID
	if v, _ := et.mr.Get(record); v != "u1" {
		t.Fatalf("expected session record value u1, got %q", v)
	}
	if ttl := et.mr.TTL(record); ttl != 30*24*time.Hour {
		t.Fatalf("expected record ttl 30d, got %v", ttl)
	}
	if v, _ := et.mr.Get("current-refresh-token:u1"); v != tokenID {
		t.Fatalf("expected pointer %q, got %q", tokenID, v)
	}
}

func TestGenerateTokensSupersedesPreviousSession(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()
	ctx := context.Background()

	first, err := et.engine.GenerateTokens(ctx, "u1", RoleStudent)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := et.engine.GenerateTokens(ctx, "u1", RoleStudent)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	_, firstID := et.refreshSession(t, first.RefreshToken)
	_, secondID := et.refreshSession(t, second.RefreshToken)
	if firstID == secondID {
		t.Fatal("expected distinct token ids")
	}
	if et.mr.Exists("refresh-token:u1:" + firstID) {
		t.Fatal("expected superseded session record to be deleted")
	}
	if !et.mr.Exists("refresh-token:u1:" + secondID) {
		t.Fatal("expected current session record")
	}
	if v, _ := et.mr.Get("current-refresh-token:u1"); v != secondID {
		t.Fatalf("expected pointer %q, got %q", secondID, v)
	}
}

func TestGenerateTokensRedisFailure(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()

	et.mr.Close()

	_, err := et.engine.GenerateTokens(context.Background(), "u1", RoleStudent)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestVerifyAccessToken(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()
	ctx := context.Background()

	pair, err := et.engine.GenerateTokens(ctx, "u1", RoleStudent)
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	claims, err := et.engine.VerifyAccessToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.ID != "u1" || claims.Role != RoleStudent {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, err = et.engine.VerifyAccessToken(ctx, pair.RefreshToken)
	requireErrorCode(t, err, KindInvalidToken, CodeTokenInvalid)
	if got := et.engine.MetricsSnapshot().Counters[MetricAccessTokenRejected]; got != 1 {
		t.Fatalf("expected one rejected access token, got %d", got)
	}
}

func TestUserByID(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()
	ctx := context.Background()

	user, err := et.engine.UserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("user by id: %v", err)
	}
	if user.Email != "a@x.com" {
		t.Fatalf("unexpected user %+v", user)
	}

	_, err = et.engine.UserByID(ctx, "missing")
	requireErrorCode(t, err, KindNotFound, CodeUserNotFound)

	et.users.err = errors.New("connection refused")
	_, err = et.engine.UserByID(ctx, "u1")
	requireErrorCode(t, err, KindUnavailable, CodeServiceUnavailable)
}

func TestPing(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()

	if err := et.engine.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	et.mr.Close()
	if err := et.engine.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "a@x.com", testPassword); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
}
