package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	usersEmailKey    = "users_email_key"
	usersUsernameKey = "users_username_key"
)

// DB is the subset of *pgxpool.Pool used by the repositories.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const userColumns = `id, email, username, hashed_password, is_active, email_confirmed, email_confirmed_at, created_at, updated_at`

type UserRepository struct {
	DB DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, nu NewUser) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO users (id, email, username, hashed_password)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		uuid.NewString(), strings.ToLower(nu.Email), nu.Username, nu.PasswordHash)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case usersEmailKey:
				return nil, ErrDuplicateEmail
			case usersUsernameKey:
				return nil, ErrDuplicateUsername
			}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	user, err := scanUser(r.DB.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Active,
		&u.EmailConfirmed,
		&u.EmailConfirmedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

type EmailTokenRepository struct {
	DB DB
}

func NewEmailTokenRepository(db DB) *EmailTokenRepository {
	return &EmailTokenRepository{DB: db}
}

// Replace locks the owning user row so concurrent issues for one user run one
// after another.
func (r *EmailTokenRepository) Replace(ctx context.Context, tok EmailToken) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID string
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, tok.UserID).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE email_tokens
		SET used_at = $3
		WHERE user_id = $1 AND token_type = $2 AND used_at IS NULL AND expires_at > $3
	`, tok.UserID, string(tok.Type), tok.CreatedAt); err != nil {
		return fmt.Errorf("supersede email tokens: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO email_tokens (id, token_hash, user_id, token_type, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tok.ID, tok.TokenHash, tok.UserID, string(tok.Type), tok.ExpiresAt, tok.CreatedAt); err != nil {
		return fmt.Errorf("insert email token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *EmailTokenRepository) FindByHash(ctx context.Context, hash string) (*EmailToken, error) {
	var (
		tok EmailToken
		typ string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, token_hash, user_id, token_type, expires_at, used_at, created_at
		FROM email_tokens
		WHERE token_hash = $1
	`, hash).Scan(&tok.ID, &tok.TokenHash, &tok.UserID, &typ, &tok.ExpiresAt, &tok.UsedAt, &tok.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query email token: %w", err)
	}
	tok.Type = EmailTokenType(typ)
	return &tok, nil
}

// Consume runs the used_at update and the owner update in one transaction.
// A confirmation keeps the first confirmation timestamp if the user was
// already confirmed.
func (r *EmailTokenRepository) Consume(ctx context.Context, tok EmailToken, at time.Time) (*User, bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE email_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, tok.ID, at)
	if err != nil {
		return nil, false, fmt.Errorf("mark email token used: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, false, nil
	}

	var row pgx.Row
	if tok.Type == EmailTokenConfirmation {
		row = tx.QueryRow(ctx, `
			UPDATE users
			SET email_confirmed = TRUE,
			    email_confirmed_at = COALESCE(email_confirmed_at, $2),
			    updated_at = $2
			WHERE id = $1
			RETURNING `+userColumns, tok.UserID, at)
	} else {
		row = tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, tok.UserID)
	}
	user, err := scanUser(row)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("update token owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return user, true, nil
}
