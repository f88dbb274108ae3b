package auth

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users and email tokens in process memory. It implements
// UserStore and EmailTokenStore and is used for STORAGE=memory and in tests.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[string]*User
	byEmail    map[string]string
	byUsername map[string]string
	tokens     map[string]*EmailToken
	byHash     map[string]string
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		tokens:     make(map[string]*EmailToken),
		byHash:     make(map[string]string),
		now:        time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, nu NewUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(nu.Email)
	if _, ok := m.byEmail[email]; ok {
		return nil, ErrDuplicateEmail
	}
	if _, ok := m.byUsername[nu.Username]; ok {
		return nil, ErrDuplicateUsername
	}

	now := m.now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.ID] = u
	m.byEmail[email] = u.ID
	m.byUsername[u.Username] = u.ID
	return copyUser(u), nil
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.users[m.byEmail[strings.ToLower(email)]]), nil
}

func (m *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.users[m.byUsername[username]]), nil
}

// SetActive toggles the active flag. There is no HTTP surface for it.
func (m *MemoryStore) SetActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Active = active
	}
}

func (m *MemoryStore) Replace(_ context.Context, tok EmailToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[tok.UserID]; !ok {
		return ErrUserNotFound
	}
	for _, existing := range m.tokens {
		if existing.UserID == tok.UserID && existing.Type == tok.Type && existing.Redeemable(tok.CreatedAt) {
			usedAt := tok.CreatedAt
			existing.UsedAt = &usedAt
		}
	}
	stored := tok
	m.tokens[tok.ID] = &stored
	m.byHash[tok.TokenHash] = tok.ID
	return nil
}

func (m *MemoryStore) FindByHash(_ context.Context, hash string) (*EmailToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[m.byHash[hash]]
	if !ok {
		return nil, nil
	}
	cp := *tok
	if tok.UsedAt != nil {
		usedAt := *tok.UsedAt
		cp.UsedAt = &usedAt
	}
	return &cp, nil
}

func (m *MemoryStore) Consume(_ context.Context, tok EmailToken, at time.Time) (*User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tokens[tok.ID]
	if !ok || stored.UsedAt != nil {
		return nil, false, nil
	}
	usedAt := at
	stored.UsedAt = &usedAt

	u, ok := m.users[stored.UserID]
	if !ok {
		return nil, true, nil
	}
	if stored.Type == EmailTokenConfirmation {
		if !u.EmailConfirmed {
			confirmedAt := at.UTC()
			u.EmailConfirmed = true
			u.EmailConfirmedAt = &confirmedAt
		}
		u.UpdatedAt = at.UTC()
	}
	return copyUser(u), true, nil
}

// TokensFor lists the stored tokens of a user, oldest first.
func (m *MemoryStore) TokensFor(userID string) []EmailToken {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []EmailToken
	for _, tok := range m.tokens {
		if tok.UserID == userID {
			out = append(out, *tok)
		}
	}
	slices.SortFunc(out, func(a, b EmailToken) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.EmailConfirmedAt != nil {
		at := *u.EmailConfirmedAt
		cp.EmailConfirmedAt = &at
	}
	return &cp
}
