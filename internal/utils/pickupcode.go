// Package utils provides helpers for generating and verifying pickup codes.
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// GeneratePickupCode returns a 6-digit numeric code from a cryptographically
// secure source. Leading zeros are preserved.
func GeneratePickupCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashPickupCode returns the bcrypt hash stored in place of the plain code.
// The plain code is shown to the passenger exactly once, at booking
// creation; the database only ever holds the hash.
func HashPickupCode(code string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPickupCode safely compares a stored hash against the code the
// driver submits at pickup.
func VerifyPickupCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
