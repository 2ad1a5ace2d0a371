package password

import (
	"errors"
	"strings"
)

// ErrUnknownHashFormat is returned when a stored hash has neither an Argon2id
// nor a bcrypt prefix.
var ErrUnknownHashFormat = errors.New("unknown password hash format")

// Matcher hashes with Argon2id and matches both Argon2id and bcrypt hashes.
//
// Matcher is safe for concurrent use.
type Matcher struct {
	argon2 *Argon2
	bcrypt *Bcrypt
}

// NewMatcher builds a [Matcher] with the given Argon2id parameters.
func NewMatcher(cfg Argon2Config) (*Matcher, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	b, err := NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	return &Matcher{argon2: a, bcrypt: b}, nil
}

// Hash produces an Argon2id PHC string.
func (m *Matcher) Hash(password string) (string, error) {
	return m.argon2.Hash(password)
}

// Match reports whether candidate matches the stored hash. A malformed hash
// is an error, a wrong password is (false, nil).
func (m *Matcher) Match(storedHash, candidate string) (bool, error) {
	switch {
	case strings.HasPrefix(storedHash, argon2Prefix):
		return m.argon2.Match(storedHash, candidate)
	case isBcrypt(storedHash):
		return m.bcrypt.Match(storedHash, candidate)
	default:
		return false, ErrUnknownHashFormat
	}
}

// NeedsRehash reports whether storedHash should be replaced by a fresh
// Argon2id hash: always for bcrypt, and for Argon2id when the parameters are
// weaker than the current config.
func (m *Matcher) NeedsRehash(storedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(storedHash, argon2Prefix):
		return m.argon2.NeedsUpgrade(storedHash)
	case isBcrypt(storedHash):
		return true, nil
	default:
		return false, ErrUnknownHashFormat
	}
}
