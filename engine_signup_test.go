package otpauth

import (
	"context"
	"testing"
	"time"
)

func TestSignupCreatesUserAndSession(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()
	ctx := context.Background()

	if _, err := et.engine.RequestOTP(ctx, OTPRequest{
		PhoneNumber: "+94712345678",
		Register:    true,
		FirstName:   "Kamal",
		LastName:    "Silva",
	}); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code, _ := et.mr.Get("otp:+94712345678")

	dob := time.Date(2008, 3, 14, 0, 0, 0, 0, time.UTC)
	result, err := et.engine.Signup(ctx, SignupInput{
		Username:  "+94712345678",
		FirstName: "  Kamal ",
		LastName:  " Silva",
		School:    " Royal College ",
		District:  "Colombo",
		Address:   " 12 Galle Road ",
		DOB:       dob,
		OTP:       code,
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	u := result.User
	if u.FirstName != "Kamal" || u.LastName != "Silva" || u.School != "Royal College" || u.Address != "12 Galle Road" {
		t.Fatalf("expected trimmed fields, got %+v", u)
	}
	if u.Role != RoleStudent || u.AccountStatus != AccountStatusVerified {
		t.Fatalf("unexpected role/status %q/%q", u.Role, u.AccountStatus)
	}
	if !u.DOB.Equal(dob) {
		t.Fatalf("expected dob %v, got %v", dob, u.DOB)
	}

	userID, tokenID := et.refreshSession(t, result.RefreshToken)
	if userID != u.ID {
		t.Fatalf("expected subject %q, got %q", u.ID, userID)
	}
	if !et.mr.Exists("refresh-token:" + u.ID + ":" + tokenID) {
		t.Fatal("expected session for new user")
	}
	if et.mr.Exists("otp:+94712345678") {
		t.Fatal("expected signup to consume the code")
	}
}

func TestSignupWrongOTP(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()

	et.mr.Set("otp:+94712345678", "111111")

	_, err := et.engine.Signup(context.Background(), SignupInput{Username: "+94712345678", OTP: "222222"})
	requireErrorCode(t, err, KindNotFound, CodeOTPIncorrect)
	if _, err := et.users.GetUserByUsername(context.Background(), "+94712345678"); err == nil {
		t.Fatal("expected no user to be created")
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	et, done := newEngineTest(t, engineTestConfig())
	defer done()

	et.mr.Set("otp:+94700000000", "111111")

	_, err := et.engine.Signup(context.Background(), SignupInput{
		Username:  "+94700000000",
		FirstName: "Someone",
		OTP:       "111111",
	})
	requireErrorCode(t, err, KindConflict, CodeUserExists)
	if got := et.engine.MetricsSnapshot().Counters[MetricSignupConflict]; got != 1 {
		t.Fatalf("expected one signup conflict, got %d", got)
	}
}

type racingProvider struct {
	*mockUserProvider
}

// GetUserByUsername never sees the user, so the conflict surfaces from
// CreateUser as it would under a concurrent signup.
func (racingProvider) GetUserByUsername(context.Context, string) (*User, error) {
	return nil, ErrUserNotFound
}

func TestSignupCreateConflict(t *testing.T) {
	cfg := engineTestConfig()
	et, done := newEngineTest(t, cfg)
	defer done()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(et.rdb).
		WithUserProvider(racingProvider{et.users}).
		WithMessenger(et.messenger).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	et.mr.Set("otp:+94700000000", "111111")
	_, err = engine.Signup(context.Background(), SignupInput{Username: "+94700000000", OTP: "111111"})
	requireErrorCode(t, err, KindConflict, CodeUserExists)
}
