package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure: malformed input, bad
// signature and expiry. Callers must not be able to tell these apart.
var ErrInvalidToken = errors.New("invalid token")

func NewJTI() string { return uuid.NewString() }

// Sha256Hex is the storage form of a refresh token. The raw token never
// touches the database.
func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
