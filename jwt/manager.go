package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	// TypeAccess marks short-lived bearer tokens.
	TypeAccess TokenType = "AccessToken"
	// TypeRefresh marks refresh tokens bound to a server-side session.
	TypeRefresh TokenType = "RefreshToken"
)

const minSecretLen = 16

var (
	// ErrTokenInvalid is returned for any signature, algorithm, claim, or
	// type failure.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Config holds signing secrets, lifetimes, and optional claim checks.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
}

// Claims is the payload of both token types.
type Claims struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

// Pair is an access token together with its refresh token and the refresh
// token's jti.
type Pair struct {
	AccessToken  string
	RefreshToken string
	TokenID      string
}

// Manager signs and verifies tokens. It is immutable after construction and
// safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessSecret) < minSecretLen || len(cfg.RefreshSecret) < minSecretLen {
		return nil, fmt.Errorf("signing secrets must be at least %d bytes", minSecretLen)
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// IssueAccess signs an access token for userID. Access tokens carry no jti and
// cannot be revoked individually.
func (m *Manager) IssueAccess(userID, role string) (string, error) {
	return m.sign(m.claims(userID, role, TypeAccess, m.config.AccessTTL, ""), m.config.AccessSecret)
}

// IssueRefresh signs a refresh token with a fresh random jti and returns both.
func (m *Manager) IssueRefresh(userID, role string) (string, string, error) {
	tokenID := uuid.NewString()
	token, err := m.sign(m.claims(userID, role, TypeRefresh, m.config.RefreshTTL, tokenID), m.config.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	return token, tokenID, nil
}

// IssuePair signs an access and a refresh token for the same identity.
func (m *Manager) IssuePair(userID, role string) (Pair, error) {
	access, err := m.IssueAccess(userID, role)
	if err != nil {
		return Pair{}, err
	}
	refresh, tokenID, err := m.IssueRefresh(userID, role)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh, TokenID: tokenID}, nil
}

// VerifyAccess checks signature, expiry, and type of an access token.
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, m.config.AccessSecret, TypeAccess)
}

// VerifyRefresh checks signature, expiry, and type of a refresh token and
// requires a jti.
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	claims, err := m.verify(token, m.config.RefreshSecret, TypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.RegisteredClaims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrTokenInvalid)
	}
	return claims, nil
}

func (m *Manager) claims(userID, role string, typ TokenType, ttl time.Duration, tokenID string) Claims {
	now := m.now()
	claims := Claims{
		ID:        userID,
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        tokenID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	return claims
}

func (m *Manager) sign(claims Claims, secret []byte) (string, error) {
	if claims.ID == "" {
		return "", errors.New("token subject is required")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) verify(tokenStr string, secret []byte, want TokenType) (*Claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: token type %q", ErrTokenInvalid, claims.TokenType)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrTokenInvalid)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrTokenInvalid)
	}
	return claims, nil
}
