// Package password implements the credential manager: a salted scrypt hash
// in hex(salt):hex(key) form plus the owner password strength rules.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN   = 16384
	scryptR   = 8
	scryptP   = 1
	saltLen   = 16
	keyLen    = 64
	minLength = 8
)

const symbolSet = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

var errInvalidHash = errors.New("invalid password hash")

// Hash derives a salted scrypt key and encodes it as hex(salt):hex(key).
func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// Verify recomputes the scrypt key with the stored salt and compares in
// constant time.
func Verify(password, stored string) (bool, error) {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return false, errInvalidHash
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false, errInvalidHash
	}
	expected, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, errInvalidHash
	}
	actual, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(expected))
	if err != nil {
		return false, fmt.Errorf("derive key: %w", err)
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

// StrengthResult reports every violated strength rule.
type StrengthResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateStrength checks the owner password rules: length, upper, lower,
// digit, and symbol. Each violated rule appends its own message.
func ValidateStrength(password string) StrengthResult {
	var errs []string
	if len(password) < minLength {
		errs = append(errs, "Password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, func(ch rune) bool { return ch >= 'A' && ch <= 'Z' }) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, func(ch rune) bool { return ch >= 'a' && ch <= 'z' }) {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, func(ch rune) bool { return ch >= '0' && ch <= '9' }) {
		errs = append(errs, "Password must contain at least one number")
	}
	if !strings.ContainsAny(password, symbolSet) {
		errs = append(errs, "Password must contain at least one special character")
	}
	return StrengthResult{IsValid: len(errs) == 0, Errors: errs}
}
