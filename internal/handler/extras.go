package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// ExtrasStore is the part of repository.ExtrasRepo the extras endpoints use.
type ExtrasStore interface {
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Extras, error)
	GetPurchase(ctx context.Context, id uint64) (model.ExtrasPurchase, error)
	CreatePurchase(ctx context.Context, registrationID uint64, extrasIDs []uint64) (model.ExtrasPurchase, error)
	UpdatePurchaseStatus(ctx context.Context, id uint64, status bool) (model.ExtrasPurchase, error)
	DeleteFromEvent(ctx context.Context, eventID, extrasID uint64) error
}

// ExtrasHandler manages event extras and the purchases made with
// registrations.
type ExtrasHandler struct {
	Extras ExtrasStore
	Lookup TicketLookup
	Events middleware.EventOwnership
}

func NewExtrasHandler(x ExtrasStore, lookup TicketLookup, events middleware.EventOwnership) *ExtrasHandler {
	return &ExtrasHandler{Extras: x, Lookup: lookup, Events: events}
}

type purchaseReq struct {
	ExtrasIDs []uint64 `json:"extras_ids" validate:"required,min=1,dive,gt=0"`
}

type purchaseStatusReq struct {
	Status *bool `json:"status" validate:"required"`
}

// ListByEvent returns the extras offered for an event. Public.
//
//	GET /api/public/event-extras/:eventId
func (h *ExtrasHandler) ListByEvent(c echo.Context) error {
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	items, err := h.Extras.ListByEvent(ctx, eventID)
	if err != nil {
		return repoError(c, err, "extras")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreatePurchase records the extras bought with a registration. Unknown
// ids are ignored; 404 when none of them exist.
//
//	POST /api/registrations/:id/extras-purchase
func (h *ExtrasHandler) CreatePurchase(c echo.Context) error {
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var req purchaseReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if ok, err := ownsRegistration(ctx, c, h.Lookup, h.Events, regID); !ok {
		return err
	}

	p, err := h.Extras.CreatePurchase(ctx, regID, req.ExtrasIDs)
	if err != nil {
		return repoError(c, err, "extras")
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdatePurchaseStatus marks extras as handed out (scanned) or not.
//
//	PATCH /api/extras-purchases/:id/status
func (h *ExtrasHandler) UpdatePurchaseStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}
	var req purchaseStatusReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	cur, err := h.Extras.GetPurchase(ctx, id)
	if err != nil {
		return repoError(c, err, "extras purchase")
	}
	if ok, err := ownsRegistration(ctx, c, h.Lookup, h.Events, cur.RegistrationID); !ok {
		return err
	}
	p, err := h.Extras.UpdatePurchaseStatus(ctx, id, *req.Status)
	if err != nil {
		return repoError(c, err, "extras purchase")
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteFromEvent removes an extras item from an event.
//
//	DELETE /api/events/:id/extras/:extrasId
func (h *ExtrasHandler) DeleteFromEvent(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	extrasID, ok := pathID(c, "extrasId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid extras id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Extras.DeleteFromEvent(ctx, eventID, extrasID); err != nil {
		return repoError(c, err, "extras")
	}
	return c.NoContent(http.StatusNoContent)
}
