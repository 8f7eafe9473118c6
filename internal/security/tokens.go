package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// Claims identifies the user only. Tenant is never carried in the token; it
// is chosen per request and checked against the membership ledger.
type Claims struct {
	jwt.RegisteredClaims
	Use string `json:"use"`
}

// TokenProvider issues and validates JWT access and refresh tokens using RS256 or ES256 (private/public key).
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on claims and validated on parse.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueAccess issues a short-lived access JWT for userID.
func (p *TokenProvider) IssueAccess(userID string) (token string, expiresAt time.Time, err error) {
	token, _, expiresAt, err = p.issue(userID, tokenUseAccess, p.accessTTL)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT and returns its jti too.
func (p *TokenProvider) IssueRefresh(userID string) (token, jti string, expiresAt time.Time, err error) {
	return p.issue(userID, tokenUseRefresh, p.refreshTTL)
}

// ValidateAccess parses and validates an access token (signature, exp, iss, aud, use).
func (p *TokenProvider) ValidateAccess(tokenString string) (userID string, err error) {
	c, err := p.parse(tokenString, tokenUseAccess)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// ValidateRefresh parses and validates a refresh token. Returns the user and jti.
func (p *TokenProvider) ValidateRefresh(tokenString string) (userID, jti string, err error) {
	c, err := p.parse(tokenString, tokenUseRefresh)
	if err != nil {
		return "", "", err
	}
	return c.Subject, c.ID, nil
}

func (p *TokenProvider) issue(userID, use string, ttl time.Duration) (string, string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := p.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Use: use,
	}
	token, err := p.sign(claims)
	return token, jti, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	method := signingMethod(p.privateKey.Public())
	if method == nil {
		return "", ErrInvalidKey
	}
	return jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
}

func (p *TokenProvider) parse(tokenString, use string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return p.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Use != use || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
