// Package cryptox holds the small amount of cryptography the client needs:
// one-time verification codes and their salted argon2id digests.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/miroir/internal/common"
	"golang.org/x/crypto/argon2"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// SaltSize is the salt length used by HashCode.
const SaltSize = 16

var codeSpace = big.NewInt(900000)

// GenerateCode returns a uniformly random six digit code in [100000, 999999].
// Collisions between users are possible and accepted.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// IsCode reports whether s has the shape of a verification code.
func IsCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DeriveKey stretches secret with argon2id.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns the SHA-256 digest stored in place of a derived key.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// HashCode derives a verifier for code under a fresh random salt.
func HashCode(code string) (verifier []byte, salt []byte) {
	salt = common.GenerateRandByteArray(SaltSize)
	return MakeVerifier(DeriveKey([]byte(code), salt)), salt
}

// CheckCode reports whether code matches verifier under salt, in constant time.
func CheckCode(code string, salt, verifier []byte) bool {
	candidate := MakeVerifier(DeriveKey([]byte(code), salt))
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}
