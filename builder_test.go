package otpauth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newBuilderRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return rdb, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	rdb, done := newBuilderRedis(t)
	defer done()

	cases := []struct {
		name    string
		builder *Builder
	}{
		{"no redis", New().WithConfig(engineTestConfig()).WithUserProvider(newMockUserProvider()).WithMessenger(&fakeMessenger{})},
		{"no users", New().WithConfig(engineTestConfig()).WithRedis(rdb).WithMessenger(&fakeMessenger{})},
		{"no messenger", New().WithConfig(engineTestConfig()).WithRedis(rdb).WithUserProvider(newMockUserProvider())},
		{"no secrets", New().WithRedis(rdb).WithUserProvider(newMockUserProvider()).WithMessenger(&fakeMessenger{})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.builder.Build(); err == nil {
				t.Fatal("expected build error")
			}
		})
	}
}

func TestBuilderSingleUse(t *testing.T) {
	rdb, done := newBuilderRedis(t)
	defer done()

	b := New().
		WithConfig(engineTestConfig()).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider()).
		WithMessenger(&fakeMessenger{})
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}

func TestBuilderConfigImmutableAfterBuild(t *testing.T) {
	rdb, done := newBuilderRedis(t)
	defer done()

	cfg := engineTestConfig()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider()).
		WithMessenger(&fakeMessenger{}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	pair, err := engine.GenerateTokens(context.Background(), "u1", RoleStudent)
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	for i := range cfg.JWT.AccessSecret {
		cfg.JWT.AccessSecret[i] = 'x'
	}
	if _, err := engine.VerifyAccessToken(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("expected engine to keep its own secret copy: %v", err)
	}
}

func TestBuilderDefaultMatcherVerifiesArgon2(t *testing.T) {
	rdb, done := newBuilderRedis(t)
	defer done()

	cfg := engineTestConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	users := newMockUserProvider()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithMessenger(&fakeMessenger{}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	hasher, ok := engine.passwords.(interface{ Hash(string) (string, error) })
	if !ok {
		t.Fatalf("expected default matcher to hash, got %T", engine.passwords)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users.add(User{ID: "u9", Email: "argon@x.com", Username: "+94700000009", PasswordHash: hash, Role: RoleStudent})

	if _, err := engine.Login(context.Background(), "argon@x.com", testPassword); err != nil {
		t.Fatalf("login with argon2 hash: %v", err)
	}
}

func TestBuilderLatencyHistograms(t *testing.T) {
	rdb, done := newBuilderRedis(t)
	defer done()

	_, err := New().
		WithConfig(engineTestConfig()).
		WithMetricsEnabled(false).
		WithLatencyHistograms(true).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider()).
		WithMessenger(&fakeMessenger{}).
		Build()
	if err == nil {
		t.Fatal("expected histograms without metrics to fail validation")
	}

	engine, err := New().
		WithConfig(engineTestConfig()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider()).
		WithMessenger(&fakeMessenger{}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.GenerateTokens(context.Background(), "u1", RoleStudent); err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	snap := engine.MetricsSnapshot()
	var observed uint64
	for _, n := range snap.Histograms[MetricSessionSaveLatency] {
		observed += n
	}
	if observed != 1 {
		t.Fatalf("expected one session save observation, got %d", observed)
	}
	if snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("expected session created counter 1, got %d", snap.Counters[MetricSessionCreated])
	}
}
