package credential

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	id "gatekeeper/pkg/domain"
)

// nonceBytes gives 128 bits of entropy, enough that nonce collisions and
// guessing are both off the table for any realistic event size.
const nonceBytes = 16

// NewNonce generates a fresh unguessable nonce from the platform CSPRNG.
// Encoded with unpadded base64url so it travels safely inside JWTs and URLs.
func NewNonce() (id.Nonce, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return id.Nonce(base64.RawURLEncoding.EncodeToString(buf)), nil
}
