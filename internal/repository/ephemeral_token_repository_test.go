package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueActivationReplacesPreviousToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	exp := time.Now().Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM activation_tokens WHERE user_id=").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activation_tokens").
		WithArgs(uint64(5), "fresh-token", exp.UTC()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	repo := NewEphemeralTokenRepo(db)
	err = repo.IssueActivation(context.Background(), 5, "fresh-token", exp)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindResetExpiredDeletesRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at"}).
		AddRow(9, 5, "stale-token", now.Add(-time.Second))
	mock.ExpectQuery("SELECT t.id, t.user_id, t.token, t.expires_at FROM password_reset_tokens").
		WithArgs("stale-token", "user@example.com").
		WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM password_reset_tokens WHERE id=").
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewEphemeralTokenRepo(db).WithClock(func() time.Time { return now })
	_, err = repo.FindReset(context.Background(), "User@Example.com ", "stale-token")

	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActivationWrongEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Token exists but is joined on another user's email: no row, one error.
	mock.ExpectQuery("SELECT t.id, t.user_id, t.token, t.expires_at FROM activation_tokens").
		WithArgs("real-token", "other@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at"}))

	repo := NewEphemeralTokenRepo(db)
	_, err = repo.FindActivation(context.Background(), "other@example.com", "real-token")

	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredSweepsBothTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("DELETE FROM activation_tokens WHERE expires_at <").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM password_reset_tokens WHERE expires_at <").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewEphemeralTokenRepo(db).WithClock(func() time.Time { return now })
	n, err := repo.DeleteExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
