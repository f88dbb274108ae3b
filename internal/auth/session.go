package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserFinder resolves a token subject (the user's email) to a user.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// SessionIssuer mints and verifies access/refresh pairs. There is no server
// side session record; a token is trusted until it expires.
type SessionIssuer struct {
	codec      *TokenCodec
	users      UserFinder
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewSessionIssuer(codec *TokenCodec, users UserFinder, accessTTL, refreshTTL time.Duration) *SessionIssuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &SessionIssuer{codec: codec, users: users, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (s *SessionIssuer) AccessTTL() time.Duration  { return s.accessTTL }
func (s *SessionIssuer) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *SessionIssuer) IssuePair(subject string) (TokenPair, error) {
	access, err := s.codec.Issue(Claims{Subject: subject, Type: TokenAccess}, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(Claims{Subject: subject, Type: TokenRefresh}, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Rotate exchanges a refresh token for a brand-new pair.
func (s *SessionIssuer) Rotate(ctx context.Context, refreshToken string) (TokenPair, *User, error) {
	user, err := s.resolve(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := s.IssuePair(user.Email)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// Authenticate resolves an access token to its active user.
func (s *SessionIssuer) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	return s.resolve(ctx, accessToken, TokenAccess)
}

// resolve returns ErrInvalidToken, ErrWrongTokenType or ErrUnknownSubject for
// rejected credentials. Any other error comes from the user store.
func (s *SessionIssuer) resolve(ctx context.Context, token string, want TokenType) (*User, error) {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	if user == nil || !user.Active {
		return nil, ErrUnknownSubject
	}
	return user, nil
}

// IsRejected reports whether err means the presented token was not accepted,
// as opposed to a storage failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrWrongTokenType) || errors.Is(err, ErrUnknownSubject)
}
