package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

type upDB struct{}

func (upDB) PingContext(context.Context) error { return nil }

type noOwner struct{}

func (noOwner) BelongsToClub(context.Context, uint64, uint64) (bool, error) { return false, nil }

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newServer() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	const secret = "router-secret"
	ev := &handler.EventHandler{}
	x := &handler.ExtrasHandler{}
	RegisterRoutes(e, upDB{})
	RegisterAuth(e, &handler.AuthHandler{}, secret, passthrough)
	RegisterPublic(e, ev, x, secret, passthrough, passthrough)
	RegisterAdmin(e, Admin{Events: ev, Extras: x, Tickets: &handler.TicketHandler{}}, noOwner{}, secret, passthrough)
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newServer()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /readyz",
		"GET /metrics",
		"POST /api/auth/login",
		"POST /api/users",
		"GET /api/public/events/:slug",
		"GET /api/public/events/active",
		"GET /api/public/event-extras/:eventId",
		"POST /api/events",
		"GET /api/clubs/:clubId/events",
		"PUT /api/events/:id/config",
		"DELETE /api/events/:id/extras/:extrasId",
		"PATCH /api/extras-purchases/:id/status",
		"POST /api/tickets/registrations/:id/send",
		"POST /api/tickets/attendees/:id/send",
	} {
		assert.True(t, have[want], want)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newServer()
	for _, target := range []string{
		"/api/tickets/registrations/1/send",
		"/api/users",
		"/api/events",
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestProbes(t *testing.T) {
	e := newServer()
	for _, target := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}
