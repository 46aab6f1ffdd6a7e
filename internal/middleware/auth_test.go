package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-cinema/internal/auth"
	"github.com/iliyamo/online-cinema/internal/model"
	"github.com/iliyamo/online-cinema/internal/repository"
)

type fakeLoader struct{ users map[uint64]*model.User }

func (f *fakeLoader) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"id": Principal(c).ID})
}

func runAuth(t *testing.T, tokens *auth.TokenManager, loader PrincipalLoader, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Auth(tokens, loader)(okHandler)(c)
	require.NoError(t, err)
	return rec
}

func TestAuthMissingHeader(t *testing.T) {
	tokens := auth.NewTokenManager("a-secret", "r-secret", 15, 7)
	rec := runAuth(t, tokens, &fakeLoader{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthInvalidToken(t *testing.T) {
	tokens := auth.NewTokenManager("a-secret", "r-secret", 15, 7)
	rec := runAuth(t, tokens, &fakeLoader{}, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRefreshTokenRejectedAsAccess(t *testing.T) {
	tokens := auth.NewTokenManager("a-secret", "r-secret", 15, 7)
	refresh, err := tokens.CreateRefreshToken(1)
	require.NoError(t, err)

	rec := runAuth(t, tokens, &fakeLoader{}, "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthDeletedUser(t *testing.T) {
	tokens := auth.NewTokenManager("a-secret", "r-secret", 15, 7)
	access, err := tokens.CreateAccessToken(42)
	require.NoError(t, err)

	rec := runAuth(t, tokens, &fakeLoader{users: map[uint64]*model.User{}}, "Bearer "+access)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthInactiveUser(t *testing.T) {
	tokens := auth.NewTokenManager("a-secret", "r-secret", 15, 7)
	access, err := tokens.CreateAccessToken(42)
	require.NoError(t, err)
	loader := &fakeLoader{users: map[uint64]*model.User{
		42: {ID: 42, Email: "u@example.com", IsActive: false, Role: model.RoleUser},
	}}

	rec := runAuth(t, tokens, loader, "Bearer "+access)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthSetsPrincipal(t *testing.T) {
	tokens := auth.NewTokenManager("a-secret", "r-secret", 15, 7)
	access, err := tokens.CreateAccessToken(42)
	require.NoError(t, err)
	loader := &fakeLoader{users: map[uint64]*model.User{
		42: {ID: 42, Email: "u@example.com", IsActive: true, Role: model.RoleUser},
	}}

	rec := runAuth(t, tokens, loader, "Bearer "+access)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42")
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(role string, allowed ...string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(principalKey, &model.User{ID: 1, Role: role, IsActive: true})
		err := RequireRole(allowed...)(okHandler)(c)
		require.NoError(t, err)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run(model.RoleAdmin, model.RoleAdmin))
	assert.Equal(t, http.StatusOK, run(model.RoleModerator, model.RoleModerator, model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, run(model.RoleUser, model.RoleAdmin))
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequireRole(model.RoleAdmin)(okHandler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
