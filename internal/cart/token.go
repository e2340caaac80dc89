package cart

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const tokenPrefix = "ct_"

// NewToken issues a fresh anonymous cart token.
func NewToken() Token {
	return Token(tokenPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// HashToken derives the lookup key stored in place of the raw token.
func HashToken(t Token) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(string(t))))
	return hex.EncodeToString(sum[:])
}

// wellFormed rejects values that could never have been issued by NewToken.
func wellFormed(t Token) bool {
	s := string(t)
	return strings.HasPrefix(s, tokenPrefix) && len(s) == len(tokenPrefix)+32
}
