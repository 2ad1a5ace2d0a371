package otpauth

import (
	"errors"
)

// Kind classifies every failure the Engine reports.
type Kind uint8

const (
	// KindUnknown is reported for errors not produced by the Engine.
	KindUnknown Kind = iota
	// KindNotFound covers unknown identities, wrong passwords, and wrong OTPs.
	KindNotFound
	// KindConflict covers duplicate registration identities.
	KindConflict
	// KindInvalidToken covers signature, expiry, and revocation failures.
	KindInvalidToken
	// KindRateLimited covers exhausted OTP quotas.
	KindRateLimited
	// KindUnavailable covers unreachable cache, store, or messaging backends.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidToken:
		return "invalid_token"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error codes are stable, user-displayable identifiers.
const (
	CodeUserNotFound       = "user.userNotFound"
	CodeInvalidPassword    = "user.invalidPassword"
	CodeUserExists         = "user.userExistsByUserName"
	CodeOTPIncorrect       = "auth.otp.incorrect"
	CodeOTPLimit           = "auth.otp.limit"
	CodeOTPSendFailed      = "auth.otp.sendFailed"
	CodeOTPAttempts        = "auth.otp.attempts"
	CodeTokenInvalid       = "auth.token.invalid"
	CodeTokenExpired       = "auth.token.expired"
	CodeRefreshRevoked     = "auth.refreshToken.revoked"
	CodeServiceUnavailable = "common.serviceUnavailable"
)

var (
	// ErrNotFound matches every KindNotFound error via errors.Is.
	ErrNotFound = errors.New("not found")
	// ErrConflict matches every KindConflict error.
	ErrConflict = errors.New("conflict")
	// ErrInvalidToken matches every KindInvalidToken error.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRateLimited matches every KindRateLimited error.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable matches every KindUnavailable error.
	ErrUnavailable = errors.New("dependency unavailable")

	// ErrUserNotFound is returned by a UserProvider when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned by a UserProvider when CreateUser hits a
	// uniqueness constraint.
	ErrUserExists = errors.New("user already exists")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Error is the tagged failure returned by Engine operations.
//
// Redirect is a presentation hint: the caller should send the user back to
// the OTP request screen.
type Error struct {
	Kind     Kind
	Code     string
	Redirect bool
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the per-kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrInvalidToken:
		return e.Kind == KindInvalidToken
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func newError(kind Kind, code string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Err: cause}
}

func unavailable(cause error) *Error {
	return &Error{Kind: KindUnavailable, Code: CodeServiceUnavailable, Err: cause}
}
