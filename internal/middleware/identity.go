package middleware

// identity.go holds the context keys the Authentication Gate populates and
// the helpers handlers and other middleware use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/model"
)

const (
	ctxUser   = "user"    // *model.User resolved by Authenticate
	ctxUserID = "user_id" // uint64 id of the same user
	ctxRole   = "role"    // model.Role of the same user
)

// CurrentUser returns the user attached by Authenticate.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ctxUser).(*model.User)
	return u, ok && u != nil
}

// CurrentUserID returns the id of the attached user, or 0 when the request
// is anonymous.
func CurrentUserID(c echo.Context) uint64 {
	id, _ := c.Get(ctxUserID).(uint64)
	return id
}

// userID renders the attached user id for keys and log fields; anonymous
// requests yield "anon".
func userID(c echo.Context) string {
	if id := CurrentUserID(c); id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// deny writes the failure envelope shared with the handlers.
func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}
