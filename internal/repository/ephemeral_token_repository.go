package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/online-cinema/internal/database"
	"github.com/iliyamo/online-cinema/internal/model"
)

// Ephemeral token tables. Activation and password-reset tokens share one
// lifecycle (none -> issued -> consumed | expired | superseded), so one repo
// serves both tables.
const (
	activationTable = "activation_tokens"
	resetTable      = "password_reset_tokens"
)

// EphemeralTokenRepo persists single-use activation and password-reset
// tokens. A user holds at most one live token per kind: issuing deletes any
// previous row inside the same transaction, and UNIQUE(user_id) backstops
// the invariant against concurrent issuance.
type EphemeralTokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewEphemeralTokenRepo(db *sql.DB) *EphemeralTokenRepo {
	return &EphemeralTokenRepo{db: db, now: time.Now}
}

// WithClock replaces the time source used for expiry checks in tests.
func (r *EphemeralTokenRepo) WithClock(now func() time.Time) *EphemeralTokenRepo {
	r.now = now
	return r
}

// IssueActivation replaces the user's activation token with a fresh one.
func (r *EphemeralTokenRepo) IssueActivation(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	return r.issue(ctx, activationTable, userID, token, expiresAt)
}

// IssueReset replaces the user's password-reset token with a fresh one.
func (r *EphemeralTokenRepo) IssueReset(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	return r.issue(ctx, resetTable, userID, token, expiresAt)
}

func (r *EphemeralTokenRepo) issue(ctx context.Context, table string, userID uint64, token string, expiresAt time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE user_id=?", userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (user_id, token, expires_at) VALUES (?,?,?)",
			userID, token, expiresAt.UTC())
		return err
	})
}

// FindActivation resolves an (email, token) pair to a live activation token.
func (r *EphemeralTokenRepo) FindActivation(ctx context.Context, email, token string) (*model.EphemeralToken, error) {
	return r.find(ctx, activationTable, email, token)
}

// FindReset resolves an (email, token) pair to a live password-reset token.
func (r *EphemeralTokenRepo) FindReset(ctx context.Context, email, token string) (*model.EphemeralToken, error) {
	return r.find(ctx, resetTable, email, token)
}

// find looks the token up by value joined on the owning user's email. A row
// that is absent, owned by another email, or expired yields ErrTokenNotFound;
// expired rows are deleted eagerly on lookup to bound table growth.
func (r *EphemeralTokenRepo) find(ctx context.Context, table, email, token string) (*model.EphemeralToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var t model.EphemeralToken
	err := r.db.QueryRowContext(ctx,
		"SELECT t.id, t.user_id, t.token, t.expires_at FROM "+table+" t "+
			"JOIN users u ON u.id=t.user_id WHERE t.token=? AND u.email=? LIMIT 1",
		token, email).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.ExpiresAt.Before(r.now().UTC()) {
		_, _ = r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id=?", t.ID)
		return nil, ErrTokenNotFound
	}
	return &t, nil
}

// ConsumeReset deletes a reset token without completing the flow. Used when
// a presented token fails validation so a guessed value cannot be retried.
func (r *EphemeralTokenRepo) ConsumeReset(ctx context.Context, tokenID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+resetTable+" WHERE id=?", tokenID)
	return err
}

// DeleteExpired removes every activation and reset token past its expiry.
// Called by the background sweeper; safe to run concurrently with request
// traffic since it only touches rows no lookup would accept anyway.
func (r *EphemeralTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	now := r.now().UTC()
	var total int64
	for _, table := range []string{activationTable, resetTable} {
		res, err := r.db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE expires_at < ?", now)
		if err != nil {
			return total, err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
