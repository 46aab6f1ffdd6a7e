// Package service holds the business logic between handlers and
// repositories. Services depend on small interfaces so tests can swap in
// in-memory fakes without a database.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/online-cinema/internal/apperr"
	"github.com/iliyamo/online-cinema/internal/auth"
	"github.com/iliyamo/online-cinema/internal/model"
	"github.com/iliyamo/online-cinema/internal/queue"
	"github.com/iliyamo/online-cinema/internal/repository"
)

// Ephemeral token lifetimes. Activation links live a day; reset links are
// deliberately short because they bypass the password check.
const (
	ActivationTokenTTL    = 24 * time.Hour
	PasswordResetTokenTTL = time.Hour
)

// UserStore is the slice of the user repository the account service needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	Register(ctx context.Context, email, passwordHash, token string, expiresAt time.Time) (uint64, error)
	Activate(ctx context.Context, userID, tokenID uint64) error
	UpdatePasswordRevokeSessions(ctx context.Context, userID uint64, passwordHash string) error
	ResetPassword(ctx context.Context, userID, tokenID uint64, passwordHash string) error
	SetRole(ctx context.Context, userID uint64, roleName string) error
	SetActiveStatus(ctx context.Context, userID uint64, active bool) error
	GetProfile(ctx context.Context, userID uint64) (*model.Profile, error)
	UpdateProfile(ctx context.Context, p *model.Profile) error
}

// EphemeralTokenStore covers activation and password-reset token persistence.
type EphemeralTokenStore interface {
	IssueActivation(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	IssueReset(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	FindActivation(ctx context.Context, email, token string) (*model.EphemeralToken, error)
	FindReset(ctx context.Context, email, token string) (*model.EphemeralToken, error)
	ConsumeReset(ctx context.Context, tokenID uint64) error
}

// RefreshTokenStore is the refresh token ledger.
type RefreshTokenStore interface {
	Store(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	Find(ctx context.Context, token string) (*model.RefreshToken, error)
	RevokeOne(ctx context.Context, token string, userID uint64) error
}

// Tokens abstracts JWT creation and decoding.
type Tokens interface {
	CreateAccessToken(userID uint64) (string, error)
	CreateRefreshToken(userID uint64) (string, error)
	DecodeRefreshToken(token string) (*auth.Claims, error)
	RefreshTTL() time.Duration
}

// Publisher dispatches notification events after the owning transaction has
// committed. Delivery failures are logged, never surfaced to the caller.
type Publisher interface {
	Publish(ctx context.Context, event queue.EmailEvent) error
}

// AccountService orchestrates the account state machine:
// registered(inactive) -> active -> [active|inactive].
type AccountService struct {
	users     UserStore
	ephemeral EphemeralTokenStore
	refresh   RefreshTokenStore
	tokens    Tokens
	publisher Publisher

	baseURL    string
	bcryptCost int
	now        func() time.Time
}

func NewAccountService(users UserStore, ephemeral EphemeralTokenStore, refresh RefreshTokenStore,
	tokens Tokens, publisher Publisher, baseURL string, bcryptCost int) *AccountService {
	return &AccountService{
		users:      users,
		ephemeral:  ephemeral,
		refresh:    refresh,
		tokens:     tokens,
		publisher:  publisher,
		baseURL:    baseURL,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// WithClock replaces the time source for deterministic expiry tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// notify publishes an email event. Called only after the flow's writes have
// committed; a broken broker must not fail an already committed request.
func (s *AccountService) notify(ctx context.Context, kind, to, link string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, queue.EmailEvent{Kind: kind, To: to, Link: link}); err != nil {
		log.Printf("account: publish %s notification for %s: %v", kind, to, err)
	}
}

// Register creates an inactive account with its activation token and
// dispatches the activation link.
func (s *AccountService) Register(ctx context.Context, email, password string) (*model.User, error) {
	if _, err := auth.ValidateStrength(password); err != nil {
		return nil, apperr.Wrap(apperr.ErrBadRequest, err.Error())
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, "An error occurred during user creation.")
	}
	token, err := auth.NewEphemeralToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, "An error occurred during user creation.")
	}

	userID, err := s.users.Register(ctx, email, hash, token, s.now().UTC().Add(ActivationTokenTTL))
	if errors.Is(err, repository.ErrEmailExists) {
		return nil, apperr.Wrap(apperr.ErrConflict,
			fmt.Sprintf("A user with this email %s already exists.", email))
	}
	if err != nil {
		log.Printf("account: register %s: %v", email, err)
		return nil, apperr.Wrap(apperr.ErrInternal, "An error occurred during user creation.")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("account: load registered user %d: %v", userID, err)
		return nil, apperr.Wrap(apperr.ErrInternal, "An error occurred during user creation.")
	}

	s.notify(ctx, queue.EmailActivation, user.Email, s.activationLink(token, user.Email))
	return user, nil
}

// Activate consumes an activation token and flips the account to active.
// An already active account is rejected distinctly from a bad token.
func (s *AccountService) Activate(ctx context.Context, email, token string) error {
	record, err := s.ephemeral.FindActivation(ctx, email, token)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return apperr.Wrap(apperr.ErrBadRequest, "Invalid or expired activation token.")
	}
	if err != nil {
		log.Printf("account: activate lookup for %s: %v", email, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		log.Printf("account: activate load user %d: %v", record.UserID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	if user.IsActive {
		return apperr.Wrap(apperr.ErrBadRequest, "User account is already active.")
	}

	if err := s.users.Activate(ctx, user.ID, record.ID); err != nil {
		log.Printf("account: activate user %d: %v", user.ID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}

	s.notify(ctx, queue.EmailActivationComplete, user.Email, s.baseURL+"/accounts/login/")
	return nil
}

// ResendActivation re-issues the activation token. The response never
// reveals whether the account exists or is already active; skipped cases are
// only logged.
func (s *AccountService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && user.IsActive) {
		log.Printf("account: resend activation skipped for %s", email)
		return nil
	}
	if err != nil {
		log.Printf("account: resend activation lookup %s: %v", email, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}

	token, err := auth.NewEphemeralToken()
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	if err := s.ephemeral.IssueActivation(ctx, user.ID, token, s.now().UTC().Add(ActivationTokenTTL)); err != nil {
		log.Printf("account: resend activation issue for %d: %v", user.ID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}

	s.notify(ctx, queue.EmailActivation, user.Email, s.activationLink(token, user.Email))
	return nil
}

// TokenPair is the login response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login verifies credentials and issues a token pair. Wrong email and wrong
// password share one 401 message; an inactive account gets a distinct 403.
func (s *AccountService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, "Invalid email or password.")
	}
	if err != nil {
		log.Printf("account: login lookup %s: %v", email, err)
		return nil, apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, "Invalid email or password.")
	}
	if !user.IsActive {
		return nil, apperr.Wrap(apperr.ErrForbidden, "User account is not activated.")
	}

	refreshToken, err := s.tokens.CreateRefreshToken(user.ID)
	if err != nil {
		log.Printf("account: create refresh token for %d: %v", user.ID, err)
		return nil, apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	if err := s.refresh.Store(ctx, user.ID, refreshToken, s.now().UTC().Add(s.tokens.RefreshTTL())); err != nil {
		log.Printf("account: store refresh token for %d: %v", user.ID, err)
		return nil, apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	accessToken, err := s.tokens.CreateAccessToken(user.ID)
	if err != nil {
		log.Printf("account: create access token for %d: %v", user.ID, err)
		return nil, apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// refresh token itself does not rotate. Three checks run in order: signature
// (400), ledger membership (401), user existence (404).
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.DecodeRefreshToken(refreshToken)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrBadRequest, "Token has expired.")
	}

	if _, err := s.refresh.Find(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return "", apperr.Wrap(apperr.ErrUnauthorized, "Refresh token not found.")
		}
		log.Printf("account: refresh ledger lookup: %v", err)
		return "", apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}

	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", apperr.Wrap(apperr.ErrNotFound, "User not found.")
		}
		log.Printf("account: refresh user lookup %d: %v", claims.UserID, err)
		return "", apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}

	accessToken, err := s.tokens.CreateAccessToken(claims.UserID)
	if err != nil {
		log.Printf("account: refresh create access token for %d: %v", claims.UserID, err)
		return "", apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	return accessToken, nil
}

// Logout revokes exactly the presented refresh token when the caller owns
// it. A token the caller does not own is reported as missing, not forbidden.
func (s *AccountService) Logout(ctx context.Context, refreshToken string, userID uint64) error {
	err := s.refresh.RevokeOne(ctx, refreshToken, userID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, "Token not found.")
	}
	if err != nil {
		log.Printf("account: logout revoke for %d: %v", userID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	return nil
}

// ChangePassword verifies the old password, stores the new hash and revokes
// every session of the user.
func (s *AccountService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("account: password change load %d: %v", userID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while changing the password.")
	}
	if !auth.VerifyPassword(user.PasswordHash, oldPassword) {
		return apperr.Wrap(apperr.ErrBadRequest, "Current password is incorrect.")
	}
	if _, err := auth.ValidateStrength(newPassword); err != nil {
		return apperr.Wrap(apperr.ErrBadRequest, err.Error())
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while changing the password.")
	}
	if err := s.users.UpdatePasswordRevokeSessions(ctx, userID, hash); err != nil {
		log.Printf("account: password change persist %d: %v", userID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while changing the password.")
	}
	return nil
}

// RequestPasswordReset issues a reset token for active accounts. The caller
// always gets the same answer, so the flow reveals nothing about account
// existence; skipped cases are only logged.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !user.IsActive) {
		log.Printf("account: password reset skipped for %s", email)
		return nil
	}
	if err != nil {
		log.Printf("account: password reset lookup %s: %v", email, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}

	token, err := auth.NewEphemeralToken()
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	if err := s.ephemeral.IssueReset(ctx, user.ID, token, s.now().UTC().Add(PasswordResetTokenTTL)); err != nil {
		log.Printf("account: password reset issue for %d: %v", user.ID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}

	link := fmt.Sprintf("%s/accounts/password-reset/complete/?token=%s&email=%s", s.baseURL, token, user.Email)
	s.notify(ctx, queue.EmailPasswordReset, user.Email, link)
	return nil
}

// CompletePasswordReset validates (email, token, expiry) and sets the new
// password. Every failed sub-check collapses into one message so a caller
// cannot probe which part was wrong.
func (s *AccountService) CompletePasswordReset(ctx context.Context, email, token, newPassword string) error {
	invalid := apperr.Wrap(apperr.ErrBadRequest, "Invalid email or token.")

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !user.IsActive) {
		return invalid
	}
	if err != nil {
		log.Printf("account: password reset complete lookup %s: %v", email, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while resetting the password.")
	}

	record, err := s.ephemeral.FindReset(ctx, email, token)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return invalid
	}
	if err != nil {
		log.Printf("account: password reset complete token lookup %s: %v", email, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while resetting the password.")
	}

	if _, err := auth.ValidateStrength(newPassword); err != nil {
		// Burn the token so a guessed value cannot be replayed with a
		// stronger password.
		_ = s.ephemeral.ConsumeReset(ctx, record.ID)
		return apperr.Wrap(apperr.ErrBadRequest, err.Error())
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while resetting the password.")
	}
	if err := s.users.ResetPassword(ctx, user.ID, record.ID, hash); err != nil {
		log.Printf("account: password reset persist %d: %v", user.ID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while resetting the password.")
	}

	s.notify(ctx, queue.EmailPasswordResetComplete, user.Email, s.baseURL+"/accounts/login/")
	return nil
}

// SetRole moves a user into another role. Admin-only; the gate enforces the
// role, this method enforces existence.
func (s *AccountService) SetRole(ctx context.Context, userID uint64, roleName string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, "User not found.")
		}
		log.Printf("account: set role load %d: %v", userID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	err := s.users.SetRole(ctx, userID, roleName)
	if errors.Is(err, repository.ErrRoleNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, "Role not found.")
	}
	if err != nil {
		log.Printf("account: set role %d -> %s: %v", userID, roleName, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	return nil
}

// SetActiveStatus toggles another user's active flag. Deactivation revokes
// all their refresh tokens; an admin cannot deactivate their own account.
func (s *AccountService) SetActiveStatus(ctx context.Context, adminID, userID uint64, active bool) error {
	if adminID == userID {
		return apperr.Wrap(apperr.ErrBadRequest, "You cannot ban yourself, bro.")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, "User not found.")
		}
		log.Printf("account: set status load %d: %v", userID, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	if err := s.users.SetActiveStatus(ctx, userID, active); err != nil {
		log.Printf("account: set status %d -> %t: %v", userID, active, err)
		return apperr.Wrap(apperr.ErrInternal, "An error occurred while processing the request.")
	}
	return nil
}

// Profile returns the profile row of the authenticated user.
func (s *AccountService) Profile(ctx context.Context, userID uint64) (*model.Profile, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "User not found.")
	}
	if err != nil {
		log.Printf("account: load profile %d: %v", userID, err)
		return nil, apperr.Wrap(apperr.ErrInternal, "Error updating profile")
	}
	return p, nil
}

// UpdateProfile overwrites the profile of the authenticated user.
func (s *AccountService) UpdateProfile(ctx context.Context, p *model.Profile) error {
	if err := s.users.UpdateProfile(ctx, p); err != nil {
		log.Printf("account: update profile %d: %v", p.UserID, err)
		return apperr.Wrap(apperr.ErrInternal, "Error updating profile")
	}
	return nil
}

func (s *AccountService) activationLink(token, email string) string {
	return fmt.Sprintf("%s/accounts/activate/?token=%s&email=%s", s.baseURL, token, email)
}
