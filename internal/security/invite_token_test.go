package security

import (
	"encoding/base64"
	"testing"
)

func TestGenerateInviteToken(t *testing.T) {
	token, fp, err := GenerateInviteToken()
	if err != nil {
		t.Fatalf("GenerateInviteToken: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != InviteTokenSize {
		t.Errorf("token carries %d bytes, want %d", len(raw), InviteTokenSize)
	}
	if fp != FingerprintInviteToken(token) {
		t.Error("fingerprint must be deterministic")
	}
	if fp == token {
		t.Error("fingerprint must differ from the token")
	}
}

func TestGenerateInviteToken_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, _, err := GenerateInviteToken()
		if err != nil {
			t.Fatalf("GenerateInviteToken: %v", err)
		}
		if seen[token] {
			t.Fatal("duplicate token")
		}
		seen[token] = true
	}
}

func TestFingerprintInviteToken_Distinct(t *testing.T) {
	if FingerprintInviteToken("a") == FingerprintInviteToken("b") {
		t.Error("different tokens must fingerprint differently")
	}
}
