package otpauth

import (
	"context"
	"time"
)

// Defaults assigned to users created through signup.
const (
	RoleStudent           = "Student"
	AccountStatusVerified = "Verified"
)

// User is the record returned by a [UserProvider]. PasswordHash is never
// serialized.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Role          string    `json:"role"`
	AccountStatus string    `json:"accountStatus"`
	School        string    `json:"school,omitempty"`
	District      string    `json:"district,omitempty"`
	Address       string    `json:"address,omitempty"`
	DOB           time.Time `json:"dob,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateUserInput carries the fields persisted for a new user. The provider
// assigns ID, role, account status, and timestamps.
type CreateUserInput struct {
	Username  string
	FirstName string
	LastName  string
	School    string
	District  string
	Address   string
	DOB       time.Time
}

// UserProvider is the relational user store. Lookups of absent users return
// [ErrUserNotFound]; CreateUser returns [ErrUserExists] on a uniqueness
// violation. Any other error is treated as a dependency failure.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*User, error)
}

// PasswordMatcher compares a candidate password with a stored hash.
// A mismatch is (false, nil).
type PasswordMatcher interface {
	Match(storedHash, candidate string) (bool, error)
}

// PasswordRehasher is implemented by matchers that can detect outdated
// hashes. The default matcher implements it.
type PasswordRehasher interface {
	NeedsRehash(storedHash string) (bool, error)
	Hash(password string) (string, error)
}

// PasswordHashUpdater is implemented by user providers that can store an
// upgraded hash.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// Delivery is the downstream acknowledgment of a text message.
type Delivery struct {
	Acknowledged bool `json:"acknowledged"`
}

// Messenger delivers OTP text messages. SendText blocks until the delivery
// service answers or ctx ends.
type Messenger interface {
	SendText(ctx context.Context, recipient, message string) (Delivery, error)
}

// SignupInput is the signup request. Username is the phone number the OTP
// was sent to.
type SignupInput struct {
	Username  string
	FirstName string
	LastName  string
	School    string
	District  string
	Address   string
	DOB       time.Time
	OTP       string
}

// OTPRequest asks for a code to be sent to PhoneNumber. When Register is
// false the names are taken from the existing user record.
type OTPRequest struct {
	PhoneNumber string
	Register    bool
	FirstName   string
	LastName    string
}

// OTPResult acknowledges a delivered OTP.
type OTPResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TokenPair is a freshly minted access/refresh pair whose refresh session is
// already persisted.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by login and signup flows.
type AuthResult struct {
	TokenPair
	User *User `json:"user"`
}

// OTP delivery outcome strings.
const (
	StatusOK            = "ok"
	MessageOTPDelivered = "auth.otp.sentSuccessful"
)
