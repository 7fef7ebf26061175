package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-ticketing/internal/mailer"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/ticket"
)

// TicketLookup resolves which event a registration or attendee belongs to.
type TicketLookup interface {
	GetRegistration(ctx context.Context, id uint64) (model.Registration, error)
	GetAttendee(ctx context.Context, id uint64) (model.Attendee, error)
}

// JobPublisher enqueues ticket jobs for the worker.
type JobPublisher interface {
	Publish(ctx context.Context, job queue.TicketSendRequested) error
}

// TicketHandler triggers ticket emails. Sends run inline unless ?async=true
// is given, in which case a job is queued and 202 is returned.
type TicketHandler struct {
	Sender    queue.TicketSender
	Lookup    TicketLookup
	Events    middleware.EventOwnership
	Publisher JobPublisher // nil when no broker is configured
	Log       zerolog.Logger
}

func NewTicketHandler(sender queue.TicketSender, lookup TicketLookup, events middleware.EventOwnership, pub JobPublisher, log zerolog.Logger) *TicketHandler {
	return &TicketHandler{Sender: sender, Lookup: lookup, Events: events, Publisher: pub, Log: log}
}

// sendTimeout bounds a synchronous send; SMTP round trips are slower than
// the DB.
const sendTimeout = 60 * time.Second

func (h *TicketHandler) authorize(ctx context.Context, c echo.Context, registrationID uint64) (bool, error) {
	return ownsRegistration(ctx, c, h.Lookup, h.Events, registrationID)
}

func async(c echo.Context) bool {
	v, _ := strconv.ParseBool(c.QueryParam("async"))
	return v
}

// SendRegistration sends the tickets of a registration.
//
//	POST /api/tickets/registrations/:id/send[?async=true]
func (h *TicketHandler) SendRegistration(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if ok, err := h.authorize(ctx, c, id); !ok {
		return err
	}

	if async(c) {
		return h.enqueue(ctx, c, queue.TicketSendRequested{RegistrationID: id})
	}

	sctx, scancel := context.WithTimeout(c.Request().Context(), sendTimeout)
	defer scancel()
	res, err := h.Sender.SendTicketsByRegistrationID(sctx, id)
	return h.respond(c, res, err)
}

// SendAttendee resends one attendee's ticket.
//
//	POST /api/tickets/attendees/:id/send[?async=true]
func (h *TicketHandler) SendAttendee(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendee id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	a, err := h.Lookup.GetAttendee(ctx, id)
	if err != nil {
		return repoError(c, err, "attendee")
	}
	if ok, err := h.authorize(ctx, c, a.RegistrationID); !ok {
		return err
	}

	if async(c) {
		return h.enqueue(ctx, c, queue.TicketSendRequested{RegistrationID: a.RegistrationID, AttendeeID: id})
	}

	sctx, scancel := context.WithTimeout(c.Request().Context(), sendTimeout)
	defer scancel()
	res, err := h.Sender.SendTicketByAttendeeID(sctx, id)
	return h.respond(c, res, err)
}

func (h *TicketHandler) enqueue(ctx context.Context, c echo.Context, job queue.TicketSendRequested) error {
	if h.Publisher == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "ticket queue not configured"})
	}
	job.RequestedBy, _ = middleware.UserID(c)
	job.RequestedAt = time.Now().UTC()
	if err := h.Publisher.Publish(ctx, job); err != nil {
		h.Log.Error().Err(err).Uint64("registration_id", job.RegistrationID).Msg("enqueue ticket job failed")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not queue ticket job"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"queued": true, "job": job})
}

func (h *TicketHandler) respond(c echo.Context, res ticket.Result, err error) error {
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, ticket.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, mailer.ErrDelivery):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "email delivery failed", "result": res})
	}
	h.Log.Error().Err(err).Msg("send tickets failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send tickets failed"})
}
