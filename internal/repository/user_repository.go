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

// UserRepo encapsulates all queries touching users, profiles and the token
// rows that change together with them. Flows that write more than one row
// run inside a single transaction so no request can observe a user without
// its activation token or a password change without its session revocation.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `u.id, u.email, u.password_hash, u.is_active, u.role_id, r.name,
	u.created_at, u.updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.RoleID, &u.Role,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email with the role joined.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id=u.role_id WHERE u.email=? LIMIT 1",
		email))
}

// GetByID fetches a user by id with the role joined.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id=u.role_id WHERE u.id=? LIMIT 1",
		id))
}

// Register creates an inactive user with an empty profile and its activation
// token in one transaction. A user row is never committed without its token.
func (r *UserRepo) Register(ctx context.Context, email, passwordHash, token string, expiresAt time.Time) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var userID uint64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var roleID uint8
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM roles WHERE name=?", model.RoleUser).Scan(&roleID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (email, password_hash, is_active, role_id) VALUES (?,?,FALSE,?)",
			email, passwordHash, roleID)
		if err != nil {
			if isDuplicate(err) {
				return ErrEmailExists
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		userID = uint64(id)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO profiles (user_id) VALUES (?)", userID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO activation_tokens (user_id, token, expires_at) VALUES (?,?,?)",
			userID, token, expiresAt)
		return err
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// Activate flips the user to active and consumes the activation token in one
// transaction. The token row is gone once the account is active.
func (r *UserRepo) Activate(ctx context.Context, userID, tokenID uint64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET is_active=TRUE WHERE id=?", userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM activation_tokens WHERE id=?", tokenID)
		return err
	})
}

// UpdatePasswordRevokeSessions stores a new password hash and deletes every
// refresh token of the user, forcing re-login on all devices.
func (r *UserRepo) UpdatePasswordRevokeSessions(ctx context.Context, userID uint64, passwordHash string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET password_hash=? WHERE id=?", passwordHash, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM refresh_tokens WHERE user_id=?", userID)
		return err
	})
}

// ResetPassword is UpdatePasswordRevokeSessions plus consumption of the
// password-reset token, all in the same transaction.
func (r *UserRepo) ResetPassword(ctx context.Context, userID, tokenID uint64, passwordHash string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET password_hash=? WHERE id=?", passwordHash, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM password_reset_tokens WHERE id=?", tokenID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM refresh_tokens WHERE user_id=?", userID)
		return err
	})
}

// SetRole moves the user into the named role.
func (r *UserRepo) SetRole(ctx context.Context, userID uint64, roleName string) error {
	var roleID uint8
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM roles WHERE name=?", roleName).Scan(&roleID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoleNotFound
	}
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE users SET role_id=? WHERE id=?", roleID, userID)
	return err
}

// SetActiveStatus toggles the active flag. Deactivation also revokes every
// refresh token in the same transaction so the user is logged out everywhere.
func (r *UserRepo) SetActiveStatus(ctx context.Context, userID uint64, active bool) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET is_active=? WHERE id=?", active, userID); err != nil {
			return err
		}
		if active {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM refresh_tokens WHERE user_id=?", userID)
		return err
	})
}

// GetProfile loads the profile row for a user.
func (r *UserRepo) GetProfile(ctx context.Context, userID uint64) (*model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, first_name, last_name, avatar, gender, date_of_birth, info
		 FROM profiles WHERE user_id=? LIMIT 1`, userID).
		Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Avatar, &p.Gender, &p.DateOfBirth, &p.Info)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile overwrites the mutable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, p *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET first_name=?, last_name=?, avatar=?, gender=?,
		 date_of_birth=?, info=? WHERE user_id=?`,
		p.FirstName, p.LastName, p.Avatar, p.Gender, p.DateOfBirth, p.Info, p.UserID)
	return err
}

// EnsureAdmin creates an active admin account at startup when none exists
// with the given email. Idempotent across restarts.
func (r *UserRepo) EnsureAdmin(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var roleID uint8
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM roles WHERE name=?", model.RoleAdmin).Scan(&roleID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO users (email, password_hash, is_active, role_id) VALUES (?,?,TRUE,?)",
			email, passwordHash, roleID)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil || id == 0 {
			return err // already present
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO profiles (user_id) VALUES (?)", id)
		return err
	})
}
