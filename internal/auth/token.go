package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the fixed claim set carried by access and refresh tokens.
type Claims struct {
	Subject   string
	Type      TokenType
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"type"`
}

// TokenCodec signs and verifies HS256 tokens with a server-held secret.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// Issue signs claims valid for ttl from now. IssuedAt and ExpiresAt are
// always set by the codec; an empty ID gets a fresh uuid. The issue time is
// taken in whole seconds, so the token is valid exactly while
// now < iat+ttl.
func (c *TokenCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if claims.Subject == "" || claims.Type == "" {
		return "", errors.New("token subject and type are required")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	now := c.now().Truncate(time.Second)
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        claims.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: claims.Type,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm and expiry. Every failure is reported
// as ErrInvalidToken. The type claim is returned as is.
func (c *TokenCodec) Parse(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tc.Subject == "" || tc.Type == "" || tc.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		Subject:   tc.Subject,
		Type:      tc.Type,
		ID:        tc.ID,
		ExpiresAt: tc.ExpiresAt.Time,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	return claims, nil
}
