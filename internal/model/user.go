package model

import "time"

// Role names as seeded in the roles table. Roles form a closed set; the
// capability checks test membership, never ordering.
const (
	RoleUser      = "USER"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
)

// Role maps a small integer ID to a role name.
type Role struct {
	ID   uint8  // roles.id
	Name string // roles.name
}

// User mirrors the `users` table. Accounts are created inactive and become
// active only by consuming an activation token. Role is eagerly joined from
// the roles table wherever the repository loads a user.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email, stored lower-cased
	PasswordHash string    // users.password_hash (bcrypt)
	IsActive     bool      // users.is_active
	RoleID       uint8     // users.role_id
	Role         string    // roles.name, joined
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Profile mirrors the `profiles` table; one row per user, created together
// with the user and cascaded on deletion.
type Profile struct {
	UserID      uint64     // profiles.user_id
	FirstName   *string    // profiles.first_name
	LastName    *string    // profiles.last_name
	Avatar      *string    // profiles.avatar
	Gender      *string    // profiles.gender
	DateOfBirth *time.Time // profiles.date_of_birth
	Info        *string    // profiles.info
}

// EphemeralToken models a row of either the activation_tokens or the
// password_reset_tokens table. Both tables share the same shape: an opaque
// random value owned by exactly one user, expiring at a fixed TTL, deleted
// on use. UNIQUE(user_id) enforces at most one live token per user and kind.
type EphemeralToken struct {
	ID        uint64    // id
	UserID    uint64    // user_id
	Token     string    // token, random hex
	ExpiresAt time.Time // expires_at
}

// RefreshToken models an entry in the `refresh_tokens` table. The stored
// value is the signed refresh JWT itself; a refresh attempt must both decode
// under the refresh secret and exist here, which is what makes server-side
// revocation possible. Several rows may coexist per user (multi-device).
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	Token     string    // refresh_tokens.token
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
