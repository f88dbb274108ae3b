package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"sixtylens/internal/i18n"
)

// Notifier delivers outbound email.
type Notifier interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// ResendResult is the only value ResendConfirmation returns on success, so
// callers cannot tell which branch produced it.
type ResendResult struct {
	Message string
}

var resendAccepted = ResendResult{
	Message: "If your email exists in our system and is not yet confirmed, you will receive a confirmation email shortly.",
}

type ServiceConfig struct {
	Users         UserStore
	Tokens        EmailTokenStore
	Hasher        PasswordHasher
	Codec         *TokenCodec
	Notifier      Notifier
	Auditor       Auditor
	Logger        *slog.Logger
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	EmailTokenTTL time.Duration
	FrontendURL   string
	Now           func() time.Time
}

type Service struct {
	users       UserStore
	ledger      *Ledger
	sessions    *SessionIssuer
	hasher      PasswordHasher
	notifier    Notifier
	auditor     Auditor
	logger      *slog.Logger
	emailTTL    time.Duration
	frontendURL string
	now         func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = NewBcryptHasher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emailTTL := cfg.EmailTokenTTL
	if emailTTL <= 0 {
		emailTTL = DefaultEmailTokenTTL
	}

	return &Service{
		users:       cfg.Users,
		ledger:      NewLedger(cfg.Tokens).WithClock(now),
		sessions:    NewSessionIssuer(cfg.Codec.WithClock(now), cfg.Users, cfg.AccessTTL, cfg.RefreshTTL),
		hasher:      hasher,
		notifier:    cfg.Notifier,
		auditor:     cfg.Auditor,
		logger:      logger,
		emailTTL:    emailTTL,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		now:         now,
	}
}

// Sessions exposes the issuer so the transport can size cookies.
func (s *Service) Sessions() *SessionIssuer {
	return s.sessions
}

type SignupInput struct {
	Email    string
	Username string
	Password string
	Locale   string
}

// Signup creates an unconfirmed account and emails a confirmation link. A
// failed delivery is logged; the account can request another link.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	existing, err = s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, NewUser{Email: email, Username: username, PasswordHash: hash})
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return nil, ErrEmailTaken
	case errors.Is(err, ErrDuplicateUsername):
		return nil, ErrUsernameTaken
	case err != nil:
		return nil, err
	}

	if err := s.sendConfirmation(ctx, user, in.Locale); err != nil {
		return nil, err
	}
	s.audit(ctx, AuditSignup, user.ID, nil)
	return user, nil
}

// Login checks the password and mints a token pair for a confirmed user.
func (s *Service) Login(ctx context.Context, email, password string) (*User, TokenPair, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if user == nil || !s.hasher.Compare(user.PasswordHash, password) {
		userID := ""
		if user != nil {
			userID = user.ID
		}
		s.audit(ctx, AuditLoginFailure, userID, map[string]any{"reason": "invalid_credentials"})
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		s.audit(ctx, AuditLoginFailure, user.ID, map[string]any{"reason": "email_not_confirmed"})
		return nil, TokenPair{}, ErrEmailNotConfirmed
	}

	pair, err := s.sessions.IssuePair(user.Email)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.audit(ctx, AuditLoginSuccess, user.ID, nil)
	return user, pair, nil
}

// Logout only records the event. Issued tokens remain valid until expiry.
func (s *Service) Logout(ctx context.Context, accessToken string) {
	userID := ""
	if user, err := s.sessions.Authenticate(ctx, accessToken); err == nil {
		userID = user.ID
	}
	s.audit(ctx, AuditLogout, userID, nil)
}

// Refresh rotates a refresh token into a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*User, TokenPair, error) {
	if refreshToken == "" {
		return nil, TokenPair{}, ErrRefreshMissing
	}

	pair, user, err := s.sessions.Rotate(ctx, refreshToken)
	if err != nil {
		var out *Error
		switch {
		case errors.Is(err, ErrInvalidToken):
			out = ErrRefreshInvalid
		case errors.Is(err, ErrWrongTokenType):
			out = ErrRefreshWrongType
		case errors.Is(err, ErrUnknownSubject):
			out = ErrRefreshUser
		default:
			return nil, TokenPair{}, err
		}
		s.audit(ctx, AuditTokenRefreshFailure, "", map[string]any{"reason": out.Reason})
		return nil, TokenPair{}, out
	}

	s.audit(ctx, AuditTokenRefresh, user.ID, nil)
	return user, pair, nil
}

// WhoAmI returns the active user behind an access token.
func (s *Service) WhoAmI(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrNotAuthenticated
	}
	user, err := s.sessions.Authenticate(ctx, accessToken)
	if IsRejected(err) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Status is WhoAmI without the failure: a rejected or missing token yields a
// nil user. Storage errors are still returned.
func (s *Service) Status(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, nil
	}
	user, err := s.sessions.Authenticate(ctx, accessToken)
	if IsRejected(err) {
		return nil, nil
	}
	return user, err
}

// ConfirmEmail redeems a confirmation token. Marking the token used and
// confirming its owner happen in one store step.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*User, error) {
	user, err := s.ledger.Redeem(ctx, token, EmailTokenConfirmation)
	var rerr *RedeemError
	switch {
	case errors.As(err, &rerr):
		switch rerr.Reason {
		case RedeemExpired:
			return nil, ErrConfirmationExpired
		case RedeemAlreadyUsed:
			return nil, ErrConfirmationUsed
		default:
			return nil, ErrConfirmationInvalid
		}
	case errors.Is(err, ErrUserNotFound):
		return nil, ErrConfirmationOrphan
	case err != nil:
		return nil, err
	}

	s.audit(ctx, AuditEmailConfirmed, user.ID, nil)
	return user, nil
}

// ResendConfirmation sends a fresh link to an existing unconfirmed account.
// Unknown and already confirmed emails get the same result as a real send.
func (s *Service) ResendConfirmation(ctx context.Context, email, locale string) (ResendResult, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return ResendResult{}, err
	}
	if user == nil || user.EmailConfirmed {
		return resendAccepted, nil
	}

	if err := s.sendConfirmation(ctx, user, locale); err != nil {
		s.logger.ErrorContext(ctx, "resend confirmation failed", "user_id", user.ID, "err", err)
		return resendAccepted, nil
	}
	s.audit(ctx, AuditConfirmationResent, user.ID, nil)
	return resendAccepted, nil
}

// sendConfirmation issues a new token and mails it. Only issuing can fail;
// delivery errors are logged.
func (s *Service) sendConfirmation(ctx context.Context, user *User, locale string) error {
	token, err := s.ledger.Issue(ctx, user.ID, EmailTokenConfirmation, s.emailTTL)
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return nil
	}

	hours := max(int(s.emailTTL/time.Hour), 1)
	content := i18n.ConfirmationEmail(locale, user.Username, s.ConfirmationLink(token), hours)
	if err := s.notifier.Send(ctx, user.Email, content.Subject, content.Text, content.HTML); err != nil {
		s.logger.WarnContext(ctx, "confirmation email not delivered", "user_id", user.ID, "err", err)
	}
	return nil
}

func (s *Service) ConfirmationLink(token string) string {
	return s.frontendURL + "/confirm-email?token=" + url.QueryEscape(token)
}

func (s *Service) audit(ctx context.Context, typ AuditEventType, userID string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Log(ctx, AuditEvent{EventType: typ, UserID: userID, Timestamp: s.now().UTC(), Meta: meta}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", "event", typ, "err", err)
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
