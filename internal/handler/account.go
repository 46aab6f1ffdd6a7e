package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-cinema/internal/middleware"
	"github.com/iliyamo/online-cinema/internal/model"
	"github.com/iliyamo/online-cinema/internal/service"
)

// AccountHandler exposes the /accounts endpoints on top of AccountService.
type AccountHandler struct {
	Accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{Accounts: accounts}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerResp struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type emailReq struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordChangeReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type passwordResetCompleteReq struct {
	Email    string `json:"email" validate:"required,email"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type setRoleReq struct {
	Role string `json:"role" validate:"required,oneof=USER MODERATOR ADMIN"`
}

type setStatusReq struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type profileReq struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Avatar      *string `json:"avatar"`
	Gender      *string `json:"gender"`
	DateOfBirth *string `json:"date_of_birth"`
	Info        *string `json:"info"`
}

type profileResp struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Avatar      *string `json:"avatar"`
	Gender      *string `json:"gender"`
	DateOfBirth *string `json:"date_of_birth"`
	Info        *string `json:"info"`
}

func toProfileResp(p *model.Profile) profileResp {
	resp := profileResp{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Avatar:    p.Avatar,
		Gender:    p.Gender,
		Info:      p.Info,
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format("2006-01-02")
		resp.DateOfBirth = &dob
	}
	return resp
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"detail": "Invalid request body."})
	}
	return c.Validate(req)
}

// Register creates an inactive account and mails the activation link.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.Accounts.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, registerResp{ID: user.ID, Email: user.Email})
}

// Activate consumes the mailed activation link. Token and email arrive as
// query parameters because the link is opened from a mail client.
func (h *AccountHandler) Activate(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	token := strings.TrimSpace(c.QueryParam("token"))
	if email == "" || token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid or expired activation token."})
	}
	if err := h.Accounts.Activate(c.Request().Context(), email, token); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "User account activated successfully.")
}

// ResendActivation re-issues the activation token with a uniform response.
func (h *AccountHandler) ResendActivation(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Accounts.ResendActivation(c.Request().Context(), req.Email); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "Resend message is successful.")
}

// Login returns an access/refresh token pair.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	pair, err := h.Accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new access token.
func (h *AccountHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	access, err := h.Accounts.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access_token": access})
}

// Logout revokes the presented refresh token for the authenticated caller.
func (h *AccountHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	user := middleware.Principal(c)
	if err := h.Accounts.Logout(c.Request().Context(), req.RefreshToken, user.ID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword replaces the password and logs out every session.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	var req passwordChangeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	user := middleware.Principal(c)
	if err := h.Accounts.ChangePassword(c.Request().Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "Password change is successful.")
}

// RequestPasswordReset always answers 200 with the same message.
func (h *AccountHandler) RequestPasswordReset(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Accounts.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "If you are registered, you will receive an email with instructions.")
}

// CompletePasswordReset validates the mailed token and sets a new password.
func (h *AccountHandler) CompletePasswordReset(c echo.Context) error {
	var req passwordResetCompleteReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Accounts.CompletePasswordReset(c.Request().Context(), req.Email, req.Token, req.Password); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "Password reset successfully.")
}

// SetRole moves a user into another role. Admin only.
func (h *AccountHandler) SetRole(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid user id."})
	}
	var req setRoleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Accounts.SetRole(c.Request().Context(), userID, req.Role); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "Group update is successful.")
}

// SetActiveStatus toggles a user's active flag. Admin only; self-deactivation
// is rejected.
func (h *AccountHandler) SetActiveStatus(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid user id."})
	}
	var req setStatusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	admin := middleware.Principal(c)
	if err := h.Accounts.SetActiveStatus(c.Request().Context(), admin.ID, userID, *req.IsActive); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "User status update is successful.")
}

// Me returns the authenticated user with their profile.
func (h *AccountHandler) Me(c echo.Context) error {
	user := middleware.Principal(c)
	profile, err := h.Accounts.Profile(c.Request().Context(), user.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        user.ID,
		"email":     user.Email,
		"is_active": user.IsActive,
		"role":      user.Role,
		"profile":   toProfileResp(profile),
	})
}

// UpdateProfile overwrites the mutable profile fields of the caller.
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	user := middleware.Principal(c)

	p := &model.Profile{
		UserID:    user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
		Gender:    req.Gender,
		Info:      req.Info,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid value for field 'date_of_birth'."})
		}
		p.DateOfBirth = &dob
	}

	if err := h.Accounts.UpdateProfile(c.Request().Context(), p); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toProfileResp(p))
}
