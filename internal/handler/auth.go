package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/middleware"
	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/service"
)

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	Accounts *service.AccountService
}

func NewAuthHandler(accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{Accounts: accounts}
}

// ----- DTOs -----

type registerReq struct {
	Name            string `json:"name" validate:"required,min=3,max=100"`
	IdentityNumber  string `json:"identityNumber" validate:"required,min=10,max=13"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,numeric,len=10"`
	Area            string `json:"area" validate:"required,oneof=crops livestock maintenance administration research"`
	Role            string `json:"role" validate:"omitempty,oneof=worker administrator"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// loginReq accepts the identifier as "identifier" or, for older clients,
// "user".  Either may hold an email or an identity number.
type loginReq struct {
	Identifier string `json:"identifier" validate:"required_without=User"`
	User       string `json:"user"`
	Password   string `json:"password" validate:"required"`
}

type profileReq struct {
	Name  *string `json:"name" validate:"omitempty,min=3,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone" validate:"omitempty,numeric,len=10"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func sessionResponse(c echo.Context, status int, msg string, s *service.Session) error {
	return c.JSON(status, envelope{Success: true, Message: msg, Token: s.Token, Data: s.User})
}

// Register: create the account and sign it in immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Accounts.Register(ctx, service.RegisterInput{
		Name:            req.Name,
		IdentityNumber:  req.IdentityNumber,
		Email:           req.Email,
		Phone:           req.Phone,
		Area:            model.Area(req.Area),
		Role:            model.Role(req.Role),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return respondError(c, err)
	}
	return sessionResponse(c, http.StatusCreated, "user registered successfully", sess)
}

// Login: verify the credentials and return a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.User)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Accounts.Login(ctx, identifier, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return sessionResponse(c, http.StatusOK, "login successful", sess)
}

// Me: the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Accounts.CurrentUser(ctx, middleware.CurrentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "", p)
}

// UpdateProfile: partial update of name, email and phone.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Accounts.UpdateProfile(ctx, middleware.CurrentUserID(c), service.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "profile updated successfully", p)
}

// ChangePassword: requires the current password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.ChangePassword(ctx, middleware.CurrentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "password updated successfully", nil)
}
