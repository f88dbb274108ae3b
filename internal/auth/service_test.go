package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc      *Service
	store    *MemoryStore
	notifier *recordingNotifier
	auditor  *recordingAuditor
	clock    *testClock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		store:    NewMemoryStore(),
		notifier: &recordingNotifier{},
		auditor:  &recordingAuditor{},
		clock:    newTestClock(),
	}
	f.svc = NewService(ServiceConfig{
		Users:       f.store,
		Tokens:      f.store,
		Hasher:      fastHasher(),
		Codec:       NewTokenCodec("test-secret"),
		Notifier:    f.notifier,
		Auditor:     f.auditor,
		FrontendURL: "https://sixtylens.test/",
		Now:         f.clock.Now,
	})
	return f
}

// lastToken extracts the token from the most recent confirmation email.
func (f *serviceFixture) lastToken(t *testing.T) string {
	t.Helper()
	require.Positive(t, f.notifier.count())
	text := f.notifier.last().Text
	start := strings.Index(text, "https://sixtylens.test/confirm-email?")
	require.GreaterOrEqual(t, start, 0, text)
	link, _, _ := strings.Cut(text[start:], "\n")
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func (f *serviceFixture) signup(t *testing.T, email, username string) *User {
	t.Helper()
	user, err := f.svc.Signup(context.Background(), SignupInput{Email: email, Username: username, Password: "secret123"})
	require.NoError(t, err)
	return user
}

func TestSignupCreatesUnconfirmedUserAndSendsLink(t *testing.T) {
	f := newServiceFixture(t)

	user := f.signup(t, "  Alice@Example.com ", "alice")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.EmailConfirmed)
	assert.Nil(t, user.EmailConfirmedAt)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	require.Equal(t, 1, f.notifier.count())
	mail := f.notifier.last()
	assert.Equal(t, "alice@example.com", mail.To)
	assert.Equal(t, "Confirm your email - Sixty Lens", mail.Subject)
	assert.Len(t, f.lastToken(t), 64)
	assert.Contains(t, f.auditor.types(), AuditSignup)
}

func TestSignupConflicts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.signup(t, "alice@example.com", "alice")

	_, err := f.svc.Signup(ctx, SignupInput{Email: "ALICE@example.com", Username: "alice", Password: "secret123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = f.svc.Signup(ctx, SignupInput{Email: "bob@example.com", Username: "alice", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSignupSurvivesDeliveryFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.fail = true

	user := f.signup(t, "alice@example.com", "alice")
	assert.NotEmpty(t, user.ID)
	assert.Len(t, f.store.TokensFor(user.ID), 1)
}

func TestConfirmationLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.signup(t, "alice@example.com", "alice")

	_, _, err := f.svc.Login(ctx, "alice@example.com", "secret123")
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)
	assert.Equal(t, KindForbidden, KindOf(err))

	token := f.lastToken(t)
	confirmed, err := f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, confirmed.EmailConfirmed)
	require.NotNil(t, confirmed.EmailConfirmedAt)
	assert.True(t, confirmed.EmailConfirmedAt.Equal(f.clock.Now()))

	_, err = f.svc.ConfirmEmail(ctx, token)
	assert.ErrorIs(t, err, ErrConfirmationUsed)

	user, pair, err := f.svc.Login(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, confirmed.ID, user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	me, err := f.svc.WhoAmI(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
}

func TestConfirmEmailRetryAfterStorageFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.svc = NewService(ServiceConfig{
		Users:       f.store,
		Tokens:      &flakyTokenStore{MemoryStore: f.store, failures: 1},
		Hasher:      fastHasher(),
		Codec:       NewTokenCodec("test-secret"),
		Notifier:    f.notifier,
		FrontendURL: "https://sixtylens.test/",
		Now:         f.clock.Now,
	})
	f.signup(t, "alice@example.com", "alice")
	token := f.lastToken(t)

	_, err := f.svc.ConfirmEmail(ctx, token)
	require.Error(t, err)
	assert.Zero(t, KindOf(err))

	stored, err := f.store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, stored.EmailConfirmed)

	confirmed, err := f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, confirmed.EmailConfirmed)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.signup(t, "alice@example.com", "alice")

	_, _, err := f.svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestConfirmEmailFailures(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.signup(t, "alice@example.com", "alice")
	token := f.lastToken(t)

	_, err := f.svc.ConfirmEmail(ctx, "bogus")
	assert.ErrorIs(t, err, ErrConfirmationInvalid)

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.ConfirmEmail(ctx, token)
	assert.ErrorIs(t, err, ErrConfirmationExpired)
	assert.Equal(t, "expired", err.(*Error).Reason)
}

func TestResendIsIndistinguishable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.signup(t, "pending@example.com", "pending")
	f.signup(t, "done@example.com", "done")
	_, err := f.svc.ConfirmEmail(ctx, f.lastToken(t))
	require.NoError(t, err)
	sentBefore := f.notifier.count()

	unknown, err := f.svc.ResendConfirmation(ctx, "ghost@example.com", "en")
	require.NoError(t, err)
	confirmed, err := f.svc.ResendConfirmation(ctx, "done@example.com", "en")
	require.NoError(t, err)
	assert.Equal(t, unknown, confirmed)
	assert.Equal(t, sentBefore, f.notifier.count())

	pending, err := f.svc.ResendConfirmation(ctx, "Pending@Example.com", "de")
	require.NoError(t, err)
	assert.Equal(t, unknown, pending)
	assert.Equal(t, sentBefore+1, f.notifier.count())
	assert.Equal(t, "pending@example.com", f.notifier.last().To)
}

func TestResendSupersedesPreviousLink(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.signup(t, "alice@example.com", "alice")
	first := f.lastToken(t)

	f.clock.Advance(time.Minute)
	_, err := f.svc.ResendConfirmation(ctx, "alice@example.com", "en")
	require.NoError(t, err)
	second := f.lastToken(t)
	require.NotEqual(t, first, second)

	_, err = f.svc.ConfirmEmail(ctx, first)
	assert.ErrorIs(t, err, ErrConfirmationUsed)

	_, err = f.svc.ConfirmEmail(ctx, second)
	assert.NoError(t, err)
}

func TestRefreshFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.signup(t, "alice@example.com", "alice")
	_, err := f.svc.ConfirmEmail(ctx, f.lastToken(t))
	require.NoError(t, err)

	_, pair, err := f.svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = f.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrRefreshMissing)

	_, _, err = f.svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrRefreshWrongType)

	_, _, err = f.svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	f.clock.Advance(time.Second)
	user, rotated, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	f.store.SetActive(user.ID, false)
	_, _, err = f.svc.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshUser)

	assert.Contains(t, f.auditor.types(), AuditTokenRefresh)
	assert.Contains(t, f.auditor.types(), AuditTokenRefreshFailure)
}

func TestWhoAmIAndStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.signup(t, "alice@example.com", "alice")
	_, err := f.svc.ConfirmEmail(ctx, f.lastToken(t))
	require.NoError(t, err)
	_, pair, err := f.svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = f.svc.WhoAmI(ctx, "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = f.svc.WhoAmI(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	user, err := f.svc.Status(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = f.svc.Status(ctx, "garbage")
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = f.svc.Status(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	f.clock.Advance(15 * time.Minute)
	_, err = f.svc.WhoAmI(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestConfirmationLinkEscapesToken(t *testing.T) {
	f := newServiceFixture(t)
	assert.Equal(t, "https://sixtylens.test/confirm-email?token=a%2Bb", f.svc.ConfirmationLink("a+b"))
}
