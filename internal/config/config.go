// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. The struct is built once in main and passed by value;
// nothing mutates it after startup.
type Config struct {
	Env     string // application environment (e.g. "dev", "prod")
	Port    string // HTTP port to listen on
	BaseURL string // public base URL embedded in activation/reset links

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessSecret  string // secret used to sign access tokens
	RefreshSecret string // secret used to sign refresh tokens, independent of AccessSecret
	AccessTTLMin  int    // access token time-to-live in minutes
	LoginTimeDays int    // refresh token time-to-live in days
	BcryptCost    int    // bcrypt cost for password hashing
	AdminEmail    string // seeded admin account email (optional)
	AdminPassword string // seeded admin account password (optional)

	EmailHost     string // SMTP host
	EmailPort     int    // SMTP port
	EmailUser     string // SMTP username (optional)
	EmailPassword string // SMTP password (optional)
	EmailUseTLS   bool   // dial SMTP over TLS
	EmailFrom     string // From address on outgoing mail

	StripeSecretKey     string // Stripe API key (payments disabled when empty)
	StripeWebhookSecret string // Stripe webhook signing secret
}

// Load reads configuration from the environment. Required variables are
// enforced by must(); missing values abort startup with a fatal log message.
func Load() Config {
	return Config{
		Env:     must("APP_ENV"),
		Port:    must("APP_PORT"),
		BaseURL: getenv("BASE_URL", "http://127.0.0.1:8000"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AccessSecret:  must("SECRET_KEY_ACCESS"),
		RefreshSecret: must("SECRET_KEY_REFRESH"),
		AccessTTLMin:  mustInt("ACCESS_TOKEN_TTL_MIN"),
		LoginTimeDays: mustInt("LOGIN_TIME_DAYS"),
		BcryptCost:    mustInt("BCRYPT_COST"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		EmailHost:     getenv("EMAIL_HOST", "localhost"),
		EmailPort:     atoi(getenv("EMAIL_PORT", "25")),
		EmailUser:     os.Getenv("EMAIL_HOST_USER"),
		EmailPassword: os.Getenv("EMAIL_HOST_PASSWORD"),
		EmailUseTLS:   getenv("EMAIL_USE_TLS", "false") == "true",
		EmailFrom:     getenv("EMAIL_FROM", "no-reply@online-cinema.local"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}
