// Package crypto generates the random tokens handed out to invited members.
package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// TokenBytes is the entropy of an invite code.
const TokenBytes = 16

// NewToken returns a base58 encoded random token. Uniqueness is left to the
// randomness and the primary key the token is stored under.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base58.Encode(b), nil
}

// ValidToken reports whether s could have been produced by NewToken.
func ValidToken(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == TokenBytes
}
