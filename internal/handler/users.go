package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/middleware"
	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/service"
)

// UserHandler serves the administrator-only /api/usuarios endpoints.
type UserHandler struct {
	Admin *service.UserAdminService
}

func NewUserHandler(admin *service.UserAdminService) *UserHandler {
	return &UserHandler{Admin: admin}
}

type userUpdateReq struct {
	Name           *string `json:"name" validate:"omitempty,min=3,max=100"`
	IdentityNumber *string `json:"identityNumber" validate:"omitempty,min=10,max=13"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Phone          *string `json:"phone" validate:"omitempty,numeric,len=10"`
	Area           *string `json:"area" validate:"omitempty,oneof=crops livestock maintenance administration research"`
	Role           *string `json:"role" validate:"omitempty,oneof=worker administrator"`
	Active         *bool   `json:"active"`
}

type resetPasswordReq struct {
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// List: every account, newest first.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Admin.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, users, len(users))
}

// Get: one account by id.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Admin.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "", p)
}

// Update: partial edit of any non-credential field.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req userUpdateReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	upd := service.UserUpdate{
		Name:           req.Name,
		IdentityNumber: req.IdentityNumber,
		Email:          req.Email,
		Phone:          req.Phone,
		Active:         req.Active,
	}
	if req.Area != nil {
		a := model.Area(*req.Area)
		upd.Area = &a
	}
	if req.Role != nil {
		r := model.Role(*req.Role)
		upd.Role = &r
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Admin.Update(ctx, middleware.CurrentUserID(c), id, upd)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "user updated successfully", p)
}

// Deactivate: soft delete; the row is kept with active=false.
func (h *UserHandler) Deactivate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Admin.Deactivate(ctx, middleware.CurrentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "user deactivated successfully", nil)
}

// ResetPassword: set a new password without the current one.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Admin.ResetPassword(ctx, middleware.CurrentUserID(c), id, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "password updated successfully", nil)
}
