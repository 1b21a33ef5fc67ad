package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/model"
)

// Authorize returns the Authorization Gate for a route's permitted role
// set.  It must be composed after Authenticate; when no user is attached it
// denies with 403 instead of letting the request through.
func Authorize(allowed []model.Role) echo.MiddlewareFunc {
	set := make(map[model.Role]bool, len(allowed))
	for _, r := range allowed {
		set[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return deny(c, http.StatusForbidden, "access denied: no authenticated user")
			}
			if !set[u.Role] {
				return deny(c, http.StatusForbidden,
					fmt.Sprintf("role %s is not authorized to access this resource", u.Role))
			}
			return next(c)
		}
	}
}
