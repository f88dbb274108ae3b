package auth

import (
	"context"
	"time"
)

// UserStore persists users. Lookups return (nil, nil) when nothing matches.
// Create reports ErrDuplicateEmail or ErrDuplicateUsername on uniqueness
// violations.
type UserStore interface {
	Create(ctx context.Context, u NewUser) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// EmailTokenStore persists email tokens.
//
// Replace marks every redeemable token of the same user and type as used at
// tok.CreatedAt and inserts tok, as one step for a given user.
//
// Consume sets used_at on tok if it is still unset and applies the token's
// effect to its owner in the same step: a confirmation token confirms the
// owner's email. It reports false when tok was already used, and a nil user
// when the owner no longer exists. On error nothing is changed.
type EmailTokenStore interface {
	Replace(ctx context.Context, tok EmailToken) error
	FindByHash(ctx context.Context, hash string) (*EmailToken, error)
	Consume(ctx context.Context, tok EmailToken, at time.Time) (*User, bool, error)
}
