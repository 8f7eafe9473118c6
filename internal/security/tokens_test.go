package security

import (
	"testing"
	"time"
)

func TestTokenProvider_AccessRoundTrip(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, exp, err := p.IssueAccess("u1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" || exp.Before(time.Now()) {
		t.Fatalf("IssueAccess returned token=%q exp=%v", access, exp)
	}
	uid, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if uid != "u1" {
		t.Errorf("userID = %q, want u1", uid)
	}
}

func TestTokenProvider_RefreshRoundTrip(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	refresh, jti, _, err := p.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	uid, gotJTI, err := p.ValidateRefresh(refresh)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if uid != "u1" || gotJTI != jti {
		t.Errorf("ValidateRefresh = %q, %q", uid, gotJTI)
	}
}

func TestTokenProvider_UseIsEnforced(t *testing.T) {
	p, _ := NewTestTokenProvider()
	access, _, _ := p.IssueAccess("u1")
	refresh, _, _, _ := p.IssueRefresh("u1")
	if _, _, err := p.ValidateRefresh(access); err != ErrInvalidToken {
		t.Errorf("access token accepted as refresh: %v", err)
	}
	if _, err := p.ValidateAccess(refresh); err != ErrInvalidToken {
		t.Errorf("refresh token accepted as access: %v", err)
	}
}

func TestTokenProvider_Expired(t *testing.T) {
	p, _ := NewTestTokenProvider()
	p.now = func() time.Time { return time.Now().Add(-time.Hour) }
	access, _, err := p.IssueAccess("u1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	p.now = time.Now
	if _, err := p.ValidateAccess(access); err != ErrInvalidToken {
		t.Errorf("expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_WrongAudience(t *testing.T) {
	p, _ := NewTestTokenProvider()
	access, _, _ := p.IssueAccess("u1")
	other := NewTokenProvider(p.privateKey, p.publicKey, p.issuer, "someone-else", time.Minute, time.Hour)
	if _, err := other.ValidateAccess(access); err != ErrInvalidToken {
		t.Errorf("wrong audience: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_Garbage(t *testing.T) {
	p, _ := NewTestTokenProvider()
	for _, tok := range []string{"", "invalid-token", "a.b.c"} {
		if _, err := p.ValidateAccess(tok); err != ErrInvalidToken {
			t.Errorf("ValidateAccess(%q): want ErrInvalidToken, got %v", tok, err)
		}
	}
}
