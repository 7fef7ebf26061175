package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Context keys set by JWTAuth and OptionalAuth.
const (
	CtxUserID     = "user_id"
	CtxRole       = "role"
	CtxClubID     = "club_id"
	CtxIsLoggedIn = "is_logged_in"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role, "" for guests.
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// ClubID returns the club of the authenticated user; zero for SUDO.
func ClubID(c echo.Context) uint64 {
	id, _ := c.Get(CtxClubID).(uint64)
	return id
}

// IsSudo reports whether the caller has the SUDO role.
func IsSudo(c echo.Context) bool { return Role(c) == model.RoleSudo }

// userKey identifies the caller in cache and rate limit keys.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
