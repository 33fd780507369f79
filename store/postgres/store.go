package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgInvalidTextEncoding = "22P02"
)

// Store is the PostgreSQL identity.Store.
type Store struct {
	db    DBTX
	newID func() string
}

// New returns a Store over db.
func New(db DBTX) *Store {
	return &Store{db: db, newID: uuid.NewString}
}

var _ identity.Store = (*Store)(nil)

const selectUser = `SELECT user_id::text, username, email, password_hash, status, created_at FROM users`

func (s *Store) FindUserByUsername(ctx context.Context, username string) (identity.User, error) {
	return s.findUser(ctx, selectUser+` WHERE username = $1`, username)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (identity.User, error) {
	return s.findUser(ctx, selectUser+` WHERE lower(email) = lower($1)`, email)
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (identity.User, error) {
	return s.findUser(ctx, selectUser+` WHERE user_id = $1`, userID)
}

func (s *Store) findUser(ctx context.Context, query string, arg string) (identity.User, error) {
	var (
		u      identity.User
		status string
	)
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.UserID, &u.Username, &u.Email, &u.PasswordHash, &status, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || hasCode(err, pgInvalidTextEncoding) {
			return identity.User{}, identity.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("db error: %w", err)
	}

	u.Status, err = identity.ParseStatus(status)
	if err != nil {
		return identity.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *Store) InsertUser(ctx context.Context, in identity.CreateUserInput) (identity.User, error) {
	query :=
		`INSERT INTO users (user_id, username, email, password_hash, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`

	u := identity.User{
		UserID:       s.newID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Status:       in.Status,
	}
	err := s.db.QueryRowContext(ctx, query,
		u.UserID, u.Username, u.Email, u.PasswordHash, u.Status.String()).Scan(&u.CreatedAt)
	if err != nil {
		if hasCode(err, pgUniqueViolation) {
			return identity.User{}, identity.ErrDuplicate
		}
		return identity.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	return s.updateOne(ctx, `UPDATE users SET password_hash = $2 WHERE user_id = $1`, userID, passwordHash)
}

func (s *Store) UpdateStatus(ctx context.Context, userID string, status identity.Status) error {
	return s.updateOne(ctx, `UPDATE users SET status = $2 WHERE user_id = $1`, userID, status.String())
}

func (s *Store) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if hasCode(err, pgInvalidTextEncoding) {
			return identity.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

// UpsertLiveToken overwrites the (purpose, user) row, superseding any
// earlier digest.
func (s *Store) UpsertLiveToken(ctx context.Context, purpose identity.Purpose, userID string, digest [32]byte, issuedAt time.Time) error {
	query :=
		`INSERT INTO account_tokens (purpose, user_id, token_digest, issued_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (purpose, user_id)
		 DO UPDATE SET token_digest = EXCLUDED.token_digest, issued_at = EXCLUDED.issued_at`

	if _, err := s.db.ExecContext(ctx, query, purpose.String(), userID, digest[:], issuedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ConsumeToken deletes and returns the row holding digest for purpose.
func (s *Store) ConsumeToken(ctx context.Context, digest [32]byte, purpose identity.Purpose) (string, time.Time, error) {
	query :=
		`DELETE FROM account_tokens
		 WHERE token_digest = $1 AND purpose = $2
		 RETURNING user_id::text, issued_at`

	var (
		userID   string
		issuedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query, digest[:], purpose.String()).Scan(&userID, &issuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, identity.ErrNotFound
		}
		return "", time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return userID, issuedAt, nil
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
