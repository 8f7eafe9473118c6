package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// InviteTokenSize is the number of random bytes in an invitation token (256 bits).
const InviteTokenSize = 32

// GenerateInviteToken returns a URL-safe random token and its fingerprint.
// Only the fingerprint is persisted; the token goes to the invitee once.
func GenerateInviteToken() (token, fingerprint string, err error) {
	buf := make([]byte, InviteTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate invite token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, FingerprintInviteToken(token), nil
}

// FingerprintInviteToken returns the deterministic SHA-256 fingerprint used
// to look a token up without storing it.
func FingerprintInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
