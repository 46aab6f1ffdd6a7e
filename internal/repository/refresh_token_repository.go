package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/online-cinema/internal/model"
)

// RefreshTokenRepo is the ledger of currently valid refresh tokens. The
// stored value is the signed token itself; refresh is a two-factor check
// (signature AND ledger membership) so revocation works despite the token
// being self-contained. Multiple rows may coexist per user (multi-device).
type RefreshTokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db, now: time.Now}
}

// WithClock replaces the time source used for expiry checks in tests.
func (r *RefreshTokenRepo) WithClock(now func() time.Time) *RefreshTokenRepo {
	r.now = now
	return r
}

// Store inserts a refresh token row with its explicit expiry.
func (r *RefreshTokenRepo) Store(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, token, expiresAt.UTC())
	return err
}

// Find returns the ledger record for a token value. Expired rows are deleted
// on lookup and reported as ErrTokenNotFound.
func (r *RefreshTokenRepo) Find(ctx context.Context, token string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, token, expires_at, created_at FROM refresh_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.ExpiresAt.Before(r.now().UTC()) {
		_, _ = r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id=?", t.ID)
		return nil, ErrTokenNotFound
	}
	return &t, nil
}

// RevokeOne deletes the presented token only when it belongs to the given
// user. A token owned by someone else is indistinguishable from a missing
// one: both return ErrTokenNotFound and revoke nothing.
func (r *RefreshTokenRepo) RevokeOne(ctx context.Context, token string, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token=? AND user_id=?", token, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// RevokeAllForUser deletes every refresh token of a user.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
