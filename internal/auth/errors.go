package auth

import "errors"

type ErrorKind int

const (
	KindBadRequest ErrorKind = iota + 1
	KindUnauthorized
	KindForbidden
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a client-facing failure. Message is safe to return verbatim.
type Error struct {
	Kind    ErrorKind
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrEmailTaken         = &Error{Kind: KindConflict, Reason: "email_taken", Message: "Email already registered"}
	ErrUsernameTaken      = &Error{Kind: KindConflict, Reason: "username_taken", Message: "Username already taken"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Reason: "invalid_credentials", Message: "Incorrect email or password"}
	ErrEmailNotConfirmed  = &Error{Kind: KindForbidden, Reason: "email_not_confirmed", Message: "Please confirm your email before logging in"}
	ErrNotAuthenticated   = &Error{Kind: KindUnauthorized, Reason: "not_authenticated", Message: "Could not validate credentials"}

	ErrRefreshMissing   = &Error{Kind: KindUnauthorized, Reason: "refresh_missing", Message: "Refresh token not found"}
	ErrRefreshInvalid   = &Error{Kind: KindUnauthorized, Reason: "refresh_invalid", Message: "Invalid or expired refresh token"}
	ErrRefreshWrongType = &Error{Kind: KindUnauthorized, Reason: "wrong_token_type", Message: "Invalid token type"}
	ErrRefreshUser      = &Error{Kind: KindUnauthorized, Reason: "user_inactive", Message: "User not found or inactive"}

	ErrConfirmationInvalid = &Error{Kind: KindBadRequest, Reason: "invalid", Message: "Invalid confirmation token"}
	ErrConfirmationExpired = &Error{Kind: KindBadRequest, Reason: "expired", Message: "Confirmation token has expired. Please request a new one."}
	ErrConfirmationUsed    = &Error{Kind: KindBadRequest, Reason: "already_used", Message: "This confirmation link has already been used"}
	ErrConfirmationOrphan  = &Error{Kind: KindBadRequest, Reason: "invalid", Message: "User not found"}
)

// Storage and session level errors. These never reach clients directly.
var (
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrUserNotFound      = errors.New("user not found")

	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrUnknownSubject = errors.New("token subject not found or inactive")
)

// KindOf returns the client-facing kind of err, or 0 for internal errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
