package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
)

// Admin bundles the handlers behind the back-office API.
type Admin struct {
	Events  *handler.EventHandler
	Extras  *handler.ExtrasHandler
	Tickets *handler.TicketHandler
}

// RegisterAdmin registers club-admin endpoints under /api. Every route
// requires a valid JWT with the ADMIN or SUDO role; routes naming an event
// additionally require the caller's club to own it.
func RegisterAdmin(e *echo.Echo, h Admin, owners middleware.EventOwnership, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireAdmin(),
		limit,
	)
	author := middleware.RequireEventAuthor(owners)

	// ---- Events ----
	g.GET("/events", h.Events.List)
	g.GET("/clubs/:clubId/events", h.Events.List, middleware.RequireClubAuthor())
	g.POST("/events", h.Events.Create)
	g.GET("/events/:id", h.Events.Get, author)
	g.PUT("/events/:id", h.Events.Update, author)
	g.DELETE("/events/:id", h.Events.Delete, author)
	g.PUT("/events/:id/config", h.Events.SaveConfig, author)

	// ---- Extras ----
	g.DELETE("/events/:id/extras/:extrasId", h.Extras.DeleteFromEvent, author)
	// ownership of registrations and purchases is checked in the handler
	g.POST("/registrations/:id/extras-purchase", h.Extras.CreatePurchase)
	g.PATCH("/extras-purchases/:id/status", h.Extras.UpdatePurchaseStatus)

	// ---- Tickets ----
	g.POST("/tickets/registrations/:id/send", h.Tickets.SendRegistration)
	g.POST("/tickets/attendees/:id/send", h.Tickets.SendAttendee)
}
