package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "kind" claim. A token signed for one kind never
// decodes as the other: the secrets differ and the claim is checked.
const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// ErrInvalidToken is the single error returned for every decode failure:
// bad signature, malformed structure, wrong kind or expired. Collapsing the
// cases denies callers an oracle for probing tokens.
var ErrInvalidToken = errors.New("token is invalid or expired")

// Claims is the payload carried by both token kinds.
type Claims struct {
	UserID uint64 `json:"user_id"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access and refresh tokens. Access
// and refresh tokens use independent signing secrets so a leaked access
// secret cannot forge refresh tokens and vice versa. The manager is
// stateless and safe for concurrent use; now is injectable for expiry tests.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager builds a TokenManager with an access TTL in minutes and a
// refresh TTL in days.
func NewTokenManager(accessSecret, refreshSecret string, accessTTLMin, refreshTTLDays int) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     time.Duration(accessTTLMin) * time.Minute,
		refreshTTL:    time.Duration(refreshTTLDays) * 24 * time.Hour,
		now:           time.Now,
	}
}

// WithClock replaces the time source. Used by tests to step past expiries.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// RefreshTTL exposes the refresh token lifetime so the ledger can stamp the
// same expiry on the persisted row.
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// CreateAccessToken signs a short-lived access token for the user.
func (m *TokenManager) CreateAccessToken(userID uint64) (string, error) {
	return m.create(userID, kindAccess, m.accessSecret, m.accessTTL)
}

// CreateRefreshToken signs a refresh token for the user. The caller persists
// the value in the refresh token ledger.
func (m *TokenManager) CreateRefreshToken(userID uint64) (string, error) {
	return m.create(userID, kindRefresh, m.refreshSecret, m.refreshTTL)
}

// DecodeAccessToken verifies signature, kind and expiry of an access token
// and returns its claims. Any failure is ErrInvalidToken.
func (m *TokenManager) DecodeAccessToken(token string) (*Claims, error) {
	return m.decode(token, kindAccess, m.accessSecret)
}

// DecodeRefreshToken is DecodeAccessToken for the refresh secret and kind.
func (m *TokenManager) DecodeRefreshToken(token string) (*Claims, error) {
	return m.decode(token, kindRefresh, m.refreshSecret)
}

func (m *TokenManager) create(userID uint64, kind string, secret []byte, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func (m *TokenManager) decode(token, kind string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !tok.Valid || claims.Kind != kind || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewEphemeralToken returns a cryptographically random 32-byte value encoded
// as 64 hex characters. Activation and password-reset tokens use it as the
// opaque value mailed to the user.
func NewEphemeralToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
