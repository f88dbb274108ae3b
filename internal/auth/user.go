package auth

import "time"

type User struct {
	ID               string
	Email            string
	Username         string
	PasswordHash     string
	Active           bool
	EmailConfirmed   bool
	EmailConfirmedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUser is the input to UserStore.Create. Users always start active and
// unconfirmed.
type NewUser struct {
	Email        string
	Username     string
	PasswordHash string
}

type EmailTokenType string

const (
	EmailTokenConfirmation EmailTokenType = "confirmation"
	EmailTokenInvitation   EmailTokenType = "invitation"
)

// EmailToken is a stored single-use grant. Only the SHA-256 digest of the
// token delivered by email is kept.
type EmailToken struct {
	ID        string
	TokenHash string
	UserID    string
	Type      EmailTokenType
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Redeemable reports whether the token can still be exchanged at now.
func (t EmailToken) Redeemable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
