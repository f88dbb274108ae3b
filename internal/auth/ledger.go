package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultEmailTokenTTL = 24 * time.Hour

type RedeemReason string

const (
	RedeemNotFound    RedeemReason = "not_found"
	RedeemExpired     RedeemReason = "expired"
	RedeemAlreadyUsed RedeemReason = "already_used"
)

type RedeemError struct {
	Reason RedeemReason
}

func (e *RedeemError) Error() string {
	return "email token " + string(e.Reason)
}

// Ledger issues and redeems single-use email tokens.
type Ledger struct {
	store EmailTokenStore
	now   func() time.Time
}

func NewLedger(store EmailTokenStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// WithClock returns a copy of the ledger that reads time from now.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	cp := *l
	cp.now = now
	return &cp
}

// Issue supersedes any outstanding token of the same type for userID and
// returns a fresh raw token valid for ttl.
func (l *Ledger) Issue(ctx context.Context, userID string, typ EmailTokenType, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultEmailTokenTTL
	}
	raw, err := NewEmailToken()
	if err != nil {
		return "", fmt.Errorf("generate email token: %w", err)
	}

	now := l.now()
	tok := EmailToken{
		ID:        uuid.NewString(),
		TokenHash: HashString(raw),
		UserID:    userID,
		Type:      typ,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := l.store.Replace(ctx, tok); err != nil {
		return "", fmt.Errorf("store email token: %w", err)
	}
	return raw, nil
}

// Redeem consumes raw and returns its owner with the token's effect
// applied. Rejections are *RedeemError; a token of another type is reported
// as not found. ErrUserNotFound means the token outlived its owner.
func (l *Ledger) Redeem(ctx context.Context, raw string, want EmailTokenType) (*User, error) {
	if raw == "" {
		return nil, &RedeemError{Reason: RedeemNotFound}
	}

	tok, err := l.store.FindByHash(ctx, HashString(raw))
	if err != nil {
		return nil, fmt.Errorf("find email token: %w", err)
	}
	if tok == nil || tok.Type != want {
		return nil, &RedeemError{Reason: RedeemNotFound}
	}
	if tok.UsedAt != nil {
		return nil, &RedeemError{Reason: RedeemAlreadyUsed}
	}

	now := l.now()
	if !now.Before(tok.ExpiresAt) {
		return nil, &RedeemError{Reason: RedeemExpired}
	}

	user, ok, err := l.store.Consume(ctx, *tok, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("consume email token: %w", err)
	}
	if !ok {
		return nil, &RedeemError{Reason: RedeemAlreadyUsed}
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
