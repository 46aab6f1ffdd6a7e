package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-cinema/internal/apperr"
	"github.com/iliyamo/online-cinema/internal/auth"
	"github.com/iliyamo/online-cinema/internal/model"
	"github.com/iliyamo/online-cinema/internal/queue"
	"github.com/iliyamo/online-cinema/internal/repository"
)

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	byEmail map[string]*model.User
	byID    map[uint64]*model.User
	nextID  uint64

	activated       []uint64
	passwordUpdates map[uint64]string
	revokedAll      []uint64
	statusChanges   map[uint64]bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byEmail:         map[string]*model.User{},
		byID:            map[uint64]*model.User{},
		nextID:          1,
		passwordUpdates: map[uint64]string{},
		statusChanges:   map[uint64]bool{},
	}
}

func (f *fakeUsers) add(u *model.User) {
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) Register(_ context.Context, email, hash, _ string, _ time.Time) (uint64, error) {
	if _, ok := f.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	u := &model.User{ID: f.nextID, Email: email, PasswordHash: hash, Role: model.RoleUser}
	f.nextID++
	f.add(u)
	return u.ID, nil
}

func (f *fakeUsers) Activate(_ context.Context, userID, _ uint64) error {
	f.activated = append(f.activated, userID)
	f.byID[userID].IsActive = true
	return nil
}

func (f *fakeUsers) UpdatePasswordRevokeSessions(_ context.Context, userID uint64, hash string) error {
	f.passwordUpdates[userID] = hash
	f.revokedAll = append(f.revokedAll, userID)
	return nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, userID, _ uint64, hash string) error {
	f.passwordUpdates[userID] = hash
	f.revokedAll = append(f.revokedAll, userID)
	return nil
}

func (f *fakeUsers) SetRole(_ context.Context, userID uint64, roleName string) error {
	if roleName != model.RoleUser && roleName != model.RoleModerator && roleName != model.RoleAdmin {
		return repository.ErrRoleNotFound
	}
	f.byID[userID].Role = roleName
	return nil
}

func (f *fakeUsers) SetActiveStatus(_ context.Context, userID uint64, active bool) error {
	f.statusChanges[userID] = active
	f.byID[userID].IsActive = active
	if !active {
		f.revokedAll = append(f.revokedAll, userID)
	}
	return nil
}

func (f *fakeUsers) GetProfile(_ context.Context, userID uint64) (*model.Profile, error) {
	return &model.Profile{UserID: userID}, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, _ *model.Profile) error { return nil }

// fakeEphemeral is an in-memory EphemeralTokenStore keyed by (email, token).
type fakeEphemeral struct {
	activation map[string]*model.EphemeralToken
	reset      map[string]*model.EphemeralToken
	issued     []string
	consumed   []uint64
}

func newFakeEphemeral() *fakeEphemeral {
	return &fakeEphemeral{
		activation: map[string]*model.EphemeralToken{},
		reset:      map[string]*model.EphemeralToken{},
	}
}

func (f *fakeEphemeral) IssueActivation(_ context.Context, userID uint64, token string, exp time.Time) error {
	f.issued = append(f.issued, token)
	f.activation[token] = &model.EphemeralToken{ID: uint64(len(f.issued)), UserID: userID, Token: token, ExpiresAt: exp}
	return nil
}

func (f *fakeEphemeral) IssueReset(_ context.Context, userID uint64, token string, exp time.Time) error {
	f.issued = append(f.issued, token)
	f.reset[token] = &model.EphemeralToken{ID: uint64(len(f.issued)), UserID: userID, Token: token, ExpiresAt: exp}
	return nil
}

func (f *fakeEphemeral) FindActivation(_ context.Context, _, token string) (*model.EphemeralToken, error) {
	if t, ok := f.activation[token]; ok {
		return t, nil
	}
	return nil, repository.ErrTokenNotFound
}

func (f *fakeEphemeral) FindReset(_ context.Context, _, token string) (*model.EphemeralToken, error) {
	if t, ok := f.reset[token]; ok {
		return t, nil
	}
	return nil, repository.ErrTokenNotFound
}

func (f *fakeEphemeral) ConsumeReset(_ context.Context, tokenID uint64) error {
	f.consumed = append(f.consumed, tokenID)
	return nil
}

// fakeRefresh is an in-memory refresh token ledger.
type fakeRefresh struct {
	tokens map[string]*model.RefreshToken
}

func newFakeRefresh() *fakeRefresh { return &fakeRefresh{tokens: map[string]*model.RefreshToken{}} }

func (f *fakeRefresh) Store(_ context.Context, userID uint64, token string, exp time.Time) error {
	f.tokens[token] = &model.RefreshToken{UserID: userID, Token: token, ExpiresAt: exp}
	return nil
}

func (f *fakeRefresh) Find(_ context.Context, token string) (*model.RefreshToken, error) {
	if t, ok := f.tokens[token]; ok {
		return t, nil
	}
	return nil, repository.ErrTokenNotFound
}

func (f *fakeRefresh) RevokeOne(_ context.Context, token string, userID uint64) error {
	t, ok := f.tokens[token]
	if !ok || t.UserID != userID {
		return repository.ErrTokenNotFound
	}
	delete(f.tokens, token)
	return nil
}

// capturingPublisher records every published event.
type capturingPublisher struct{ events []queue.EmailEvent }

func (p *capturingPublisher) Publish(_ context.Context, event queue.EmailEvent) error {
	p.events = append(p.events, event)
	return nil
}

const strongPassword = "Sup3rSecret!"

func newService(t *testing.T) (*AccountService, *fakeUsers, *fakeEphemeral, *fakeRefresh, *capturingPublisher) {
	t.Helper()
	users := newFakeUsers()
	ephemeral := newFakeEphemeral()
	refresh := newFakeRefresh()
	publisher := &capturingPublisher{}
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", 15, 7)
	svc := NewAccountService(users, ephemeral, refresh, tokens, publisher, "http://localhost:8080", 4)
	return svc, users, ephemeral, refresh, publisher
}

func activeUser(t *testing.T, users *fakeUsers, id uint64, email, password string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	u := &model.User{ID: id, Email: email, PasswordHash: hash, IsActive: true, Role: model.RoleUser}
	users.add(u)
	return u
}

func TestRegisterConflict(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	activeUser(t, users, 1, "taken@example.com", strongPassword)

	_, err := svc.Register(context.Background(), "taken@example.com", strongPassword)

	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, apperr.Message(err), "taken@example.com")
}

func TestRegisterDispatchesActivationEmail(t *testing.T) {
	svc, _, _, _, publisher := newService(t)

	user, err := svc.Register(context.Background(), "new@example.com", strongPassword)

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, queue.EmailActivation, publisher.events[0].Kind)
	assert.Contains(t, publisher.events[0].Link, "/accounts/activate/?token=")
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _, _, _, publisher := newService(t)

	_, err := svc.Register(context.Background(), "new@example.com", "short")

	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Empty(t, publisher.events)
}

func TestActivateAlreadyActiveIsDistinct(t *testing.T) {
	svc, users, ephemeral, _, _ := newService(t)
	u := activeUser(t, users, 1, "user@example.com", strongPassword)
	require.NoError(t, ephemeral.IssueActivation(context.Background(), u.ID, "tok", time.Now().Add(time.Hour)))

	err := svc.Activate(context.Background(), u.Email, "tok")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Equal(t, "User account is already active.", apperr.Message(err))

	err = svc.Activate(context.Background(), u.Email, "unknown")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Equal(t, "Invalid or expired activation token.", apperr.Message(err))
}

func TestActivateFlipsAccount(t *testing.T) {
	svc, users, ephemeral, _, publisher := newService(t)
	user, err := svc.Register(context.Background(), "new@example.com", strongPassword)
	require.NoError(t, err)
	require.NoError(t, ephemeral.IssueActivation(context.Background(), user.ID, "tok", time.Now().Add(time.Hour)))

	require.NoError(t, svc.Activate(context.Background(), user.Email, "tok"))

	assert.True(t, users.byID[user.ID].IsActive)
	last := publisher.events[len(publisher.events)-1]
	assert.Equal(t, queue.EmailActivationComplete, last.Kind)
}

func TestResendActivationSilentForActiveAndUnknown(t *testing.T) {
	svc, users, ephemeral, _, publisher := newService(t)
	activeUser(t, users, 1, "active@example.com", strongPassword)

	assert.NoError(t, svc.ResendActivation(context.Background(), "active@example.com"))
	assert.NoError(t, svc.ResendActivation(context.Background(), "ghost@example.com"))

	assert.Empty(t, publisher.events)
	assert.Empty(t, ephemeral.issued)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	activeUser(t, users, 1, "user@example.com", strongPassword)

	_, err := svc.Login(context.Background(), "user@example.com", "Wr0ngPass!x")

	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "Invalid email or password.", apperr.Message(err))
}

func TestLoginUnknownEmailSharesMessageWithWrongPassword(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	activeUser(t, users, 1, "user@example.com", strongPassword)

	_, unknownErr := svc.Login(context.Background(), "ghost@example.com", strongPassword)
	_, wrongErr := svc.Login(context.Background(), "user@example.com", "Wr0ngPass!x")

	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	u := activeUser(t, users, 1, "user@example.com", strongPassword)
	u.IsActive = false

	_, err := svc.Login(context.Background(), "user@example.com", strongPassword)

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "User account is not activated.", apperr.Message(err))
}

func TestLoginPersistsRefreshToken(t *testing.T) {
	svc, users, _, refresh, _ := newService(t)
	activeUser(t, users, 1, "user@example.com", strongPassword)

	pair, err := svc.Login(context.Background(), "user@example.com", strongPassword)

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	_, err = refresh.Find(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRequiresLedgerMembership(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	activeUser(t, users, 1, "user@example.com", strongPassword)

	// Valid signature, never stored: a revoked or foreign token.
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", 15, 7)
	orphan, err := tokens.CreateRefreshToken(1)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), orphan)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "Refresh token not found.", apperr.Message(err))
}

func TestRefreshBadSignature(t *testing.T) {
	svc, _, _, _, _ := newService(t)

	_, err := svc.Refresh(context.Background(), "not-a-jwt")

	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	activeUser(t, users, 1, "user@example.com", strongPassword)

	pair, err := svc.Login(context.Background(), "user@example.com", strongPassword)
	require.NoError(t, err)

	access, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	tokens := auth.NewTokenManager("access-secret", "refresh-secret", 15, 7)
	claims, err := tokens.DecodeAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)
}

func TestLogoutForeignTokenNotRevoked(t *testing.T) {
	svc, users, _, refresh, _ := newService(t)
	activeUser(t, users, 1, "owner@example.com", strongPassword)
	activeUser(t, users, 2, "other@example.com", strongPassword)

	pair, err := svc.Login(context.Background(), "owner@example.com", strongPassword)
	require.NoError(t, err)

	err = svc.Logout(context.Background(), pair.RefreshToken, 2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// The owner's token survived the foreign logout attempt.
	_, err = refresh.Find(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
}

func TestChangePasswordRevokesAllSessions(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	activeUser(t, users, 1, "user@example.com", strongPassword)

	err := svc.ChangePassword(context.Background(), 1, strongPassword, "N3wSecret!pw")

	require.NoError(t, err)
	assert.Contains(t, users.revokedAll, uint64(1))
	assert.NotEmpty(t, users.passwordUpdates[1])
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	activeUser(t, users, 1, "user@example.com", strongPassword)

	err := svc.ChangePassword(context.Background(), 1, "Wr0ngPass!x", "N3wSecret!pw")

	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Equal(t, "Current password is incorrect.", apperr.Message(err))
	assert.Empty(t, users.revokedAll)
}

func TestPasswordResetRequestNeverRevealsExistence(t *testing.T) {
	svc, users, _, _, publisher := newService(t)
	activeUser(t, users, 1, "user@example.com", strongPassword)

	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, publisher.events)

	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "user@example.com"))
	require.Len(t, publisher.events, 1)
	assert.Equal(t, queue.EmailPasswordReset, publisher.events[0].Kind)
}

func TestPasswordResetCompleteUndifferentiatedFailure(t *testing.T) {
	svc, users, ephemeral, _, _ := newService(t)
	u := activeUser(t, users, 1, "user@example.com", strongPassword)
	require.NoError(t, ephemeral.IssueReset(context.Background(), u.ID, "tok", time.Now().Add(time.Hour)))

	ghostErr := svc.CompletePasswordReset(context.Background(), "ghost@example.com", "tok", "N3wSecret!pw")
	badTokenErr := svc.CompletePasswordReset(context.Background(), "user@example.com", "bad", "N3wSecret!pw")

	require.Error(t, ghostErr)
	require.Error(t, badTokenErr)
	assert.Equal(t, ghostErr.Error(), badTokenErr.Error())
	assert.Equal(t, "Invalid email or token.", apperr.Message(ghostErr))
}

func TestPasswordResetCompleteSuccess(t *testing.T) {
	svc, users, ephemeral, _, publisher := newService(t)
	u := activeUser(t, users, 1, "user@example.com", strongPassword)
	require.NoError(t, ephemeral.IssueReset(context.Background(), u.ID, "tok", time.Now().Add(time.Hour)))

	err := svc.CompletePasswordReset(context.Background(), "user@example.com", "tok", "N3wSecret!pw")

	require.NoError(t, err)
	assert.Contains(t, users.revokedAll, uint64(1))
	last := publisher.events[len(publisher.events)-1]
	assert.Equal(t, queue.EmailPasswordResetComplete, last.Kind)
}

func TestAdminCannotDeactivateSelf(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	admin := activeUser(t, users, 1, "admin@example.com", strongPassword)
	admin.Role = model.RoleAdmin

	err := svc.SetActiveStatus(context.Background(), admin.ID, admin.ID, false)

	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Empty(t, users.statusChanges)
}

func TestAdminDeactivationRevokesSessions(t *testing.T) {
	svc, users, _, _, _ := newService(t)
	admin := activeUser(t, users, 1, "admin@example.com", strongPassword)
	admin.Role = model.RoleAdmin
	activeUser(t, users, 2, "user@example.com", strongPassword)

	err := svc.SetActiveStatus(context.Background(), admin.ID, 2, false)

	require.NoError(t, err)
	assert.False(t, users.byID[2].IsActive)
	assert.Contains(t, users.revokedAll, uint64(2))
}

func TestSetRoleUnknownUser(t *testing.T) {
	svc, _, _, _, _ := newService(t)

	err := svc.SetRole(context.Background(), 99, model.RoleModerator)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "User not found.", apperr.Message(err))
}
