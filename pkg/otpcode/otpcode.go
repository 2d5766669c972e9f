// Package otpcode generates and verifies one-time verification codes.
// Codes are stored only as bcrypt hashes.
package otpcode

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	dErrors "otpgate/pkg/domain-errors"
)

// Length is the number of digits in a generated code.
const Length = 6

// Generate creates a cryptographically secure numeric code, left-padded
// with zeros to Length digits.
func Generate() (string, error) {
	max := big.NewInt(1)
	for range Length {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate verification code")
	}

	digits := n.String()
	for len(digits) < Length {
		digits = "0" + digits
	}
	return digits, nil
}

// Hash creates a bcrypt hash of the code for storage.
func Hash(code string) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash verification code")
	}
	return string(hashed), nil
}

// Verify reports whether a submitted code matches a stored hash.
func Verify(code, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, dErrors.Wrap(err, dErrors.CodeInternal, "could not verify code")
}
