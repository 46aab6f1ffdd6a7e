// Package repository contains data access logic separated from HTTP handlers
// and services. This file defines the sentinel errors reused across the
// repositories so higher layers can distinguish failure scenarios without
// parsing driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrEmailExists is returned when inserting a user whose email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrRoleNotFound is returned when a role name is not in the seeded set.
var ErrRoleNotFound = errors.New("role not found")

// ErrTokenNotFound is returned when a token lookup matches no live row:
// absent, expired or owned by a different user all collapse here.
var ErrTokenNotFound = errors.New("token not found")

// ErrMovieNotFound is returned when a movie lookup matches no row.
var ErrMovieNotFound = errors.New("movie not found")

// ErrMovieExists is returned when (name, year, time) collides.
var ErrMovieExists = errors.New("movie already exists")

// ErrEntityNotFound is returned for missing genres/stars/directors/certifications.
var ErrEntityNotFound = errors.New("entity not found")

// ErrEntityExists is returned when an entity name is taken.
var ErrEntityExists = errors.New("entity already exists")

// ErrReviewExists is returned when a user reviews the same movie twice.
var ErrReviewExists = errors.New("review already exists")

// ErrReviewNotFound is returned when a user has no review on the movie.
var ErrReviewNotFound = errors.New("review not found")

// ErrOrderNotFound is returned when an order lookup matches no row.
var ErrOrderNotFound = errors.New("order not found")

// isDuplicate reports whether err is a MySQL duplicate-key violation (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
