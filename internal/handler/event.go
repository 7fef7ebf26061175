package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-ticketing/internal/datefmt"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// EventStore is the part of repository.EventRepo the event endpoints use.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	GetBySlug(ctx context.Context, slug string) (model.Event, error)
	ResolveSlug(ctx context.Context, e *model.Event, custom string) error
	Create(ctx context.Context, e *model.Event) error
	Update(ctx context.Context, e *model.Event, clubID uint64) error
	SaveConfig(ctx context.Context, id uint64, cfg model.EventConfig) error
	Delete(ctx context.Context, id, clubID uint64) error
	ListByClub(ctx context.Context, clubID uint64, page, size int) (repository.Page[model.Event], error)
	ListActive(ctx context.Context, clubID uint64, now time.Time) ([]model.Event, error)
}

// EventHandler serves event management and the public event pages.
type EventHandler struct {
	Events EventStore
	// Invalidate drops cached public pages after a write; may be nil.
	Invalidate func(ctx context.Context) error
	Log        zerolog.Logger
	Now        func() time.Time
	// DefaultCurrency applies when a request names none; empty means USD.
	DefaultCurrency string
}

func NewEventHandler(events EventStore, invalidate func(ctx context.Context) error, log zerolog.Logger) *EventHandler {
	return &EventHandler{Events: events, Invalidate: invalidate, Log: log, Now: time.Now}
}

type eventReq struct {
	ClubID        uint64             `json:"club_id"`
	Name          string             `json:"name" validate:"required,max=255"`
	Description   string             `json:"description"`
	Slug          string             `json:"slug" validate:"omitempty,max=255"`
	StartDatetime time.Time          `json:"start_datetime" validate:"required"`
	EndDatetime   *time.Time         `json:"end_datetime"`
	Location      string             `json:"location" validate:"max=255"`
	Banner        *string            `json:"banner"`
	Currency      string             `json:"currency" validate:"omitempty,len=3,alpha"`
	TaxType       *string            `json:"tax_type" validate:"omitempty,oneof=percent fixed"`
	TaxAmount     *int64             `json:"tax_amount" validate:"omitempty,gte=0"`
	Config        *model.EventConfig `json:"config"`
}

func (r eventReq) apply(e *model.Event, defaultCurrency string) {
	e.Name = strings.TrimSpace(r.Name)
	e.Description = r.Description
	e.StartDatetime = r.StartDatetime.UTC()
	e.EndDatetime = nil
	if r.EndDatetime != nil && !r.EndDatetime.IsZero() {
		end := r.EndDatetime.UTC()
		e.EndDatetime = &end
	}
	e.Location = r.Location
	e.Banner = r.Banner
	e.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if e.Currency == "" {
		e.Currency = defaultCurrency
	}
	e.Currency = e.CurrencyOrDefault()
	e.TaxType = r.TaxType
	e.TaxAmount = r.TaxAmount
	if r.Config != nil {
		e.Config = *r.Config
	}
}

func (h *EventHandler) invalidate(ctx context.Context) {
	if h.Invalidate == nil {
		return
	}
	if err := h.Invalidate(ctx); err != nil {
		h.Log.Warn().Err(err).Msg("cache invalidation failed")
	}
}

// Create stores a new event for the caller's club. An empty slug is
// generated from the name; a custom one must be unused.
func (h *EventHandler) Create(c echo.Context) error {
	var req eventReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if req.EndDatetime != nil && !req.EndDatetime.IsZero() && req.EndDatetime.Before(req.StartDatetime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must not be before start"})
	}
	uid, _ := middleware.UserID(c)
	club := middleware.ClubID(c)
	if middleware.IsSudo(c) && req.ClubID != 0 {
		club = req.ClubID
	}
	if club == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "club_id required"})
	}

	e := model.Event{ClubID: club, CreatedBy: uid, Config: model.DefaultEventConfig()}
	req.apply(&e, h.DefaultCurrency)

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Events.ResolveSlug(ctx, &e, req.Slug); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug already exists, please choose a different one"})
		}
		return repoError(c, err, "event")
	}
	if err := h.Events.Create(ctx, &e); err != nil {
		return repoError(c, err, "event")
	}
	h.invalidate(ctx)
	h.Log.Info().Uint64("event_id", e.ID).Uint64("club_id", e.ClubID).Str("slug", e.Slug).Msg("event created")
	return c.JSON(http.StatusCreated, e)
}

// Update overwrites an event. The slug is regenerated only when the
// client sends a different one.
func (h *EventHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "event")
	}
	req.apply(&e, h.DefaultCurrency)
	if s := strings.TrimSpace(req.Slug); s != "" && s != e.Slug {
		if err := h.Events.ResolveSlug(ctx, &e, s); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug already exists, please choose a different one"})
			}
			return repoError(c, err, "event")
		}
	}
	if err := h.Events.Update(ctx, &e, clubScope(c)); err != nil {
		return repoError(c, err, "event")
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, e)
}

// Get returns an event by id for its managers.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "event")
	}
	return c.JSON(http.StatusOK, e)
}

// GetBySlug is the public event page lookup.
func (h *EventHandler) GetBySlug(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	e, err := h.Events.GetBySlug(ctx, slug)
	if err != nil {
		return repoError(c, err, "event")
	}
	return c.JSON(http.StatusOK, e)
}

// List returns one page of the club's events (?page=&itemsPerPage=).
func (h *EventHandler) List(c echo.Context) error {
	club := clubScope(c)
	if club == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "clubId required"})
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("itemsPerPage"))

	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Events.ListByClub(ctx, club, page, size)
	if err != nil {
		return repoError(c, err, "event")
	}
	return c.JSON(http.StatusOK, p)
}

// ListActive returns the club's events that have not finished yet. It is
// public and takes the club from ?clubId=.
func (h *EventHandler) ListActive(c echo.Context) error {
	club, err := strconv.ParseUint(c.QueryParam("clubId"), 10, 64)
	if err != nil || club == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "clubId required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	events, err := h.Events.ListActive(ctx, club, h.Now().UTC())
	if err != nil {
		return repoError(c, err, "event")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// SaveConfig replaces the event configuration. Booleans sent as strings
// are accepted.
func (h *EventHandler) SaveConfig(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var cfg model.EventConfig
	if ok, err := bindAndValidate(c, &cfg); !ok {
		return err
	}
	if !datefmt.ValidTimezone(cfg.Timezone) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid timezone"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Events.SaveConfig(ctx, id, cfg); err != nil {
		return repoError(c, err, "event")
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, cfg)
}

// Delete removes an event of the caller's club. SUDO deletes in the
// event's own club.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	club := middleware.ClubID(c)
	if middleware.IsSudo(c) {
		e, err := h.Events.GetByID(ctx, id)
		if err != nil {
			return repoError(c, err, "event")
		}
		club = e.ClubID
	}
	if err := h.Events.Delete(ctx, id, club); err != nil {
		return repoError(c, err, "event")
	}
	h.invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}
