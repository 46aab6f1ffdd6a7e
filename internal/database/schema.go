package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema contains the DDL for every table the service owns. Statements are
// idempotent so Migrate can run on every startup. Token tables carry a
// UNIQUE(user_id) constraint as a backstop for the at-most-one-live-token
// invariant, and all user-owned rows cascade on user deletion.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS roles (
		id TINYINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(32) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		role_id TINYINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		FOREIGN KEY (role_id) REFERENCES roles(id)
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id BIGINT UNSIGNED PRIMARY KEY,
		first_name VARCHAR(100) NULL,
		last_name VARCHAR(100) NULL,
		avatar VARCHAR(255) NULL,
		gender VARCHAR(16) NULL,
		date_of_birth DATE NULL,
		info TEXT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS activation_tokens (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL UNIQUE,
		token VARCHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS password_reset_tokens (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL UNIQUE,
		token VARCHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		token VARCHAR(512) NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_token (token),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS certifications (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(100) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS movies (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		uuid CHAR(36) NOT NULL UNIQUE,
		name VARCHAR(250) NOT NULL,
		year INT NOT NULL,
		time INT NOT NULL,
		imdb FLOAT NOT NULL,
		votes INT NOT NULL,
		meta_score FLOAT NULL,
		gross FLOAT NULL,
		description TEXT NOT NULL,
		price DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		certification_id BIGINT UNSIGNED NOT NULL,
		UNIQUE KEY uq_movie (name, year, time),
		FOREIGN KEY (certification_id) REFERENCES certifications(id)
	)`,
	`CREATE TABLE IF NOT EXISTS genres (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(100) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS stars (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(100) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS directors (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(100) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS movies_genres (
		movie_id BIGINT UNSIGNED NOT NULL,
		genre_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (movie_id, genre_id),
		FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE,
		FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS movies_stars (
		movie_id BIGINT UNSIGNED NOT NULL,
		star_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (movie_id, star_id),
		FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE,
		FOREIGN KEY (star_id) REFERENCES stars(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS movies_directors (
		movie_id BIGINT UNSIGNED NOT NULL,
		director_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (movie_id, director_id),
		FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE,
		FOREIGN KEY (director_id) REFERENCES directors(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS movie_user_favorites (
		user_id BIGINT UNSIGNED NOT NULL,
		movie_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (user_id, movie_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		movie_id BIGINT UNSIGNED NOT NULL,
		rating INT NOT NULL,
		comment TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_user_movie_review (user_id, movie_id),
		CONSTRAINT rating_1_10 CHECK (rating >= 1 AND rating <= 10),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		status ENUM('pending','paid','canceled') NOT NULL DEFAULT 'pending',
		total_amount DECIMAL(10,2) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		order_id BIGINT UNSIGNED NOT NULL,
		movie_id BIGINT UNSIGNED NOT NULL,
		price_at_order DECIMAL(10,2) NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		FOREIGN KEY (movie_id) REFERENCES movies(id)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		order_id BIGINT UNSIGNED NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		status ENUM('successful','canceled','refunded') NOT NULL DEFAULT 'successful',
		external_payment_id VARCHAR(255) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	)`,
}

// Migrate creates all tables when missing and seeds the role rows. Roles are
// referenced by registration and never created by end users, so they have to
// exist before the first request.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	for _, role := range []string{"USER", "MODERATOR", "ADMIN"} {
		if _, err := db.ExecContext(ctx,
			"INSERT IGNORE INTO roles (name) VALUES (?)", role); err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
	}
	return nil
}
