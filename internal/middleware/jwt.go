package middleware // middleware contains the request pipeline stages shared by the routes

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/repository"
)

// TokenVerifier checks a bearer token and returns its subject.
// *utils.TokenService satisfies it.
type TokenVerifier interface {
	Verify(raw string) (uint64, error)
}

// UserLookup resolves a token subject to a stored user.
// *repository.UserRepo satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

const (
	msgNoToken      = "not authorized, no token provided"
	msgInvalidToken = "not authorized, invalid token"
)

// Authenticate returns the Authentication Gate.  It requires an
// "Authorization: Bearer <token>" header, verifies the token and resolves
// its subject against the user store on every request, so a token whose
// user no longer exists is rejected even though its signature is valid.
// Expired, malformed and unknown-subject tokens all get the same 401.
//
// The user is resolved regardless of its active flag: deactivating an
// account does not revoke tokens already issued to it.
//
// On success the user is stored under "user", its id under "user_id" and
// its role under "role".
func Authenticate(tokens TokenVerifier, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return deny(c, http.StatusUnauthorized, msgNoToken)
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if raw == "" {
				return deny(c, http.StatusUnauthorized, msgNoToken)
			}

			id, err := tokens.Verify(raw)
			if err != nil {
				return deny(c, http.StatusUnauthorized, msgInvalidToken)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return deny(c, http.StatusUnauthorized, msgInvalidToken)
			}
			if err != nil {
				return err
			}

			c.Set(ctxUser, u)
			c.Set(ctxUserID, u.ID)
			c.Set(ctxRole, u.Role)
			return next(c)
		}
	}
}
