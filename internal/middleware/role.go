package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// RequireRole lets the request through when the role stored by JWTAuth is
// one of roles. SUDO is accepted everywhere.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles)+1)
	for _, r := range roles {
		allowed[r] = true
	}
	allowed[model.RoleSudo] = true
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireSudo restricts a route to SUDO accounts.
func RequireSudo() echo.MiddlewareFunc { return RequireRole() }

// RequireAdmin restricts a route to club admins (and SUDO).
func RequireAdmin() echo.MiddlewareFunc { return RequireRole(model.RoleAdmin) }

// EventOwnership is satisfied by repository.EventRepo.
type EventOwnership interface {
	BelongsToClub(ctx context.Context, eventID, clubID uint64) (bool, error)
}

// firstParam returns the first non-empty value among the path params and
// query params with the given names.
func firstParam(c echo.Context, names ...string) string {
	for _, n := range names {
		if v := c.Param(n); v != "" {
			return v
		}
		if v := c.QueryParam(n); v != "" {
			return v
		}
	}
	return ""
}

// RequireEventAuthor admits SUDO callers and admins whose club owns the
// event named by the :eventId / :id path param or the eventId query param.
func RequireEventAuthor(events EventOwnership) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsSudo(c) {
				return next(c)
			}
			if Role(c) != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			eventID, err := strconv.ParseUint(firstParam(c, "eventId", "id"), 10, 64)
			if err != nil || eventID == 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			ok, err := events.BelongsToClub(ctx, eventID, ClubID(c))
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
			}
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}
			return next(c)
		}
	}
}

// RequireClubAuthor admits SUDO callers and admins acting on their own
// club, named by the :clubId path param or the clubId query param.
func RequireClubAuthor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsSudo(c) {
				return next(c)
			}
			clubID, err := strconv.ParseUint(firstParam(c, "clubId"), 10, 64)
			if err != nil || Role(c) != model.RoleAdmin || clubID != ClubID(c) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}
			return next(c)
		}
	}
}
