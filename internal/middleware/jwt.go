package middleware // middleware holds the reusable echo middleware of the API

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/utils"
)

// bearer extracts the token from the Authorization header. Both
// "Bearer <token>" and a bare token are accepted.
func bearer(c echo.Context) string {
	auth := strings.TrimSpace(c.Request().Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return auth
}

func setIdentity(c echo.Context, claims utils.Claims) {
	id, _ := claims.UserID()
	c.Set(CtxUserID, id)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxClubID, claims.ClubID)
}

// JWTAuth validates the access token and stores user id, role and club id
// in the context. Expired tokens get their own message so the dashboard
// can refresh instead of logging out.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if errors.Is(err, utils.ErrTokenExpired) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

// OptionalAuth never rejects a request. It sets is_logged_in and, for a
// valid token, the same identity values as JWTAuth.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(CtxIsLoggedIn, false)
			if raw := bearer(c); raw != "" {
				if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
					setIdentity(c, claims)
					c.Set(CtxIsLoggedIn, true)
				}
			}
			return next(c)
		}
	}
}
