package handler // handler holds the echo HTTP handlers of the API

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// dbTimeout bounds every database round trip of a request.
const dbTimeout = 5 * time.Second

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	v *validator.Validate
}

// NewValidator returns the validator installed on the echo instance.
func NewValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// bindAndValidate decodes the body into req and validates it. On failure it
// has already written the 400 response and returns false.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid " + fe.Field() + ": failed " + fe.Tag()
	}
	return err.Error()
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// requestCtx derives the per-request DB context.
func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// clubScope returns the club the caller acts on. Admins are pinned to their
// own club; SUDO may pick one with :clubId or ?clubId=.
func clubScope(c echo.Context) uint64 {
	if middleware.IsSudo(c) {
		raw := c.Param("clubId")
		if raw == "" {
			raw = c.QueryParam("clubId")
		}
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return id
		}
		return 0
	}
	return middleware.ClubID(c)
}

// repoError maps repository sentinels to responses.
func repoError(c echo.Context, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
}

// ownsRegistration checks that an admin's club owns the registration's
// event. It writes the response and returns false when the caller may not
// proceed. SUDO only needs the registration to exist.
func ownsRegistration(ctx context.Context, c echo.Context, lookup TicketLookup, events middleware.EventOwnership, registrationID uint64) (bool, error) {
	reg, err := lookup.GetRegistration(ctx, registrationID)
	if err != nil {
		return false, repoError(c, err, "registration")
	}
	if middleware.IsSudo(c) {
		return true, nil
	}
	ok, err := events.BelongsToClub(ctx, reg.EventID, middleware.ClubID(c))
	if err != nil {
		return false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !ok {
		return false, c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	return true, nil
}
