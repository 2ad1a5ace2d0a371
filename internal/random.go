package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
)

// NewOTP returns a uniformly random code of exactly digits decimal digits
// without a leading zero, so the numeric and string forms round-trip.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Add(n, low).Int64(), 10), nil
}
