package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/otpauth"
	"github.com/MrEthical07/otpauth/userstore"
)

type account struct {
	id      string
	phone   string
	mu      sync.Mutex
	access  string
	refresh string
}

// codeMessenger acknowledges every message and remembers the last code per
// recipient. The engine is configured to send the bare code.
type codeMessenger struct {
	codes sync.Map
}

func (m *codeMessenger) SendText(_ context.Context, recipient, message string) (otpauth.Delivery, error) {
	m.codes.Store(recipient, message)
	return otpauth.Delivery{Acknowledged: true}, nil
}

func (m *codeMessenger) code(recipient string) string {
	v, _ := m.codes.Load(recipient)
	s, _ := v.(string)
	return s
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "redis key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := otpauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret-0123456789")
	cfg.Cache.KeyPrefix = *prefix
	cfg.OTP.MaxRequests = *ops
	cfg.OTP.MessageTemplate = "{otp}"

	store := userstore.NewMemory()
	messenger := &codeMessenger{}
	engine, err := otpauth.New().
		WithConfig(cfg).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		WithRedis(client).
		WithUserProvider(store).
		WithMessenger(messenger).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	accounts, err := seed(ctx, engine, store, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	verify := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		a := accounts[r.Intn(len(accounts))]
		a.mu.Lock()
		token := a.access
		a.mu.Unlock()
		_, err := engine.VerifyAccessToken(ctx, token)
		return err
	})

	refresh := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		a := accounts[r.Intn(len(accounts))]
		a.mu.Lock()
		defer a.mu.Unlock()
		pair, err := engine.Refresh(ctx, a.refresh)
		if err != nil {
			return err
		}
		a.access, a.refresh = pair.AccessToken, pair.RefreshToken
		return nil
	})

	otpLogin := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		a := accounts[r.Intn(len(accounts))]
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, err := engine.RequestOTP(ctx, otpauth.OTPRequest{PhoneNumber: a.phone}); err != nil {
			return err
		}
		result, err := engine.LoginWithOTP(ctx, a.phone, messenger.code(a.phone))
		if err != nil {
			return err
		}
		a.access, a.refresh = result.AccessToken, result.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("verify", verify)
	printStats("refresh", refresh)
	printStats("otp-login", otpLogin)

	snap := engine.MetricsSnapshot()
	fmt.Printf("otp deliveries=%d refresh successes=%d\n",
		snap.Counters[otpauth.MetricOTPDelivered],
		snap.Counters[otpauth.MetricRefreshSuccess],
	)
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seed(ctx context.Context, engine *otpauth.Engine, store *userstore.Memory, n int) ([]*account, error) {
	fmt.Printf("seeding %d users...\n", n)
	start := time.Now()

	accounts := make([]*account, n)
	for i := range accounts {
		phone := fmt.Sprintf("+9470%07d", i)
		u, err := store.CreateUser(ctx, otpauth.CreateUserInput{
			Username:  phone,
			FirstName: "Load",
			LastName:  fmt.Sprintf("User%d", i),
		})
		if err != nil {
			return nil, err
		}
		pair, err := engine.GenerateTokens(ctx, u.ID, u.Role)
		if err != nil {
			return nil, err
		}
		accounts[i] = &account{id: u.ID, phone: phone, access: pair.AccessToken, refresh: pair.RefreshToken}
	}

	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return accounts, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

// runPhase calls op ops times across concurrency workers.
func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, ops)
	)

	start := time.Now()
	for w := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for cursor.Add(1) <= int64(ops) {
				t0 := time.Now()
				if err := op(r); err != nil {
					failures.Add(1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return summarize(time.Since(start), latencies, failures.Load())
}

func summarize(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	slices.Sort(samples)
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

// percentile expects sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-10s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
