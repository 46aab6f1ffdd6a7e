package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	exp := time.Now().Add(7 * 24 * time.Hour)
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(uint64(1), "signed.jwt.value", exp.UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewRefreshTokenRepo(db)
	err = repo.Store(context.Background(), 1, "signed.jwt.value", exp)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}).
		AddRow(3, 1, "signed.jwt.value", now.Add(time.Hour), now)
	mock.ExpectQuery("SELECT id, user_id, token, expires_at, created_at FROM refresh_tokens").
		WithArgs("signed.jwt.value").
		WillReturnRows(rows)

	repo := NewRefreshTokenRepo(db)
	tok, err := repo.Find(context.Background(), "signed.jwt.value")

	require.NoError(t, err)
	assert.Equal(t, uint64(1), tok.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenFindExpiredDeletesRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}).
		AddRow(3, 1, "stale.jwt.value", now.Add(-time.Minute), now.Add(-time.Hour))
	mock.ExpectQuery("SELECT id, user_id, token, expires_at, created_at FROM refresh_tokens").
		WithArgs("stale.jwt.value").
		WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE id=").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRefreshTokenRepo(db).WithClock(func() time.Time { return now })
	_, err = repo.Find(context.Background(), "stale.jwt.value")

	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenFindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, token, expires_at, created_at FROM refresh_tokens").
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}))

	repo := NewRefreshTokenRepo(db)
	_, err = repo.Find(context.Background(), "unknown")

	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRevokeOneWrongOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The token exists but belongs to user 1; user 2 presenting it matches
	// zero rows and gets the same error as a missing token.
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token=").
		WithArgs("signed.jwt.value", uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRefreshTokenRepo(db)
	err = repo.RevokeOne(context.Background(), "signed.jwt.value", 2)

	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRevokeAllForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM refresh_tokens WHERE user_id=").
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	repo := NewRefreshTokenRepo(db)
	err = repo.RevokeAllForUser(context.Background(), 1)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
