package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

// Parameters of hashes written by the previous Node backend.
const (
	legacyN      = 16384
	legacyR      = 8
	legacyP      = 1
	legacyKeyLen = 64
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches stored, which is either a
// bcrypt hash or a legacy "hexhash.hexsalt" scrypt hash.
func VerifyPassword(stored, plain string) bool {
	if IsLegacyHash(stored) {
		return verifyLegacy(stored, plain)
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
}

// IsLegacyHash reports whether stored should be rehashed with bcrypt.
func IsLegacyHash(stored string) bool {
	if strings.HasPrefix(stored, "$2") {
		return false
	}
	hash, salt, ok := strings.Cut(stored, ".")
	return ok && hash != "" && salt != ""
}

// legacy salts are used as their hex text, not the decoded bytes
func verifyLegacy(stored, plain string) bool {
	hashHex, salt, _ := strings.Cut(stored, ".")

	want, err := hex.DecodeString(hashHex)
	if err != nil || len(want) != legacyKeyLen {
		return false
	}

	got, err := scrypt.Key([]byte(plain), []byte(salt), legacyN, legacyR, legacyP, legacyKeyLen)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// LegacyHash produces a hash in the old scrypt format. Only fixtures use it.
func LegacyHash(plain, salt string) (string, error) {
	key, err := scrypt.Key([]byte(plain), []byte(salt), legacyN, legacyR, legacyP, legacyKeyLen)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key) + "." + salt, nil
}
