package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterPublic registers the unauthenticated event pages under
// /api/public. Responses go through cache; a bearer token is read when
// present but never required.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, x *handler.ExtrasHandler, jwtSecret string, cache, limit echo.MiddlewareFunc) {
	g := e.Group("/api/public", limit, middleware.OptionalAuth(jwtSecret), cache)
	g.GET("/events/active", ev.ListActive)
	g.GET("/events/:slug", ev.GetBySlug)
	g.GET("/event-extras/:eventId", x.ListByEvent)
}
