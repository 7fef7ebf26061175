package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/mailer"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/ticket"
)

type fakeLookup struct{}

func (fakeLookup) GetRegistration(_ context.Context, id uint64) (model.Registration, error) {
	if id != 10 {
		return model.Registration{}, repository.ErrNotFound
	}
	return model.Registration{ID: 10, EventID: 5}, nil
}

func (fakeLookup) GetAttendee(_ context.Context, id uint64) (model.Attendee, error) {
	if id != 21 {
		return model.Attendee{}, repository.ErrNotFound
	}
	return model.Attendee{ID: 21, RegistrationID: 10}, nil
}

// ownership: event 5 belongs to club 3.
type ownership struct{ err error }

func (o ownership) BelongsToClub(_ context.Context, eventID, clubID uint64) (bool, error) {
	return eventID == 5 && clubID == 3, o.err
}

type fakeSender struct {
	res   ticket.Result
	err   error
	calls []string
}

func (f *fakeSender) SendTicketsByRegistrationID(_ context.Context, id uint64) (ticket.Result, error) {
	f.calls = append(f.calls, fmt.Sprintf("registration:%d", id))
	return f.res, f.err
}

func (f *fakeSender) SendTicketByAttendeeID(_ context.Context, id uint64) (ticket.Result, error) {
	f.calls = append(f.calls, fmt.Sprintf("attendee:%d", id))
	return f.res, f.err
}

type fakePublisher struct {
	jobs []queue.TicketSendRequested
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, job queue.TicketSendRequested) error {
	f.jobs = append(f.jobs, job)
	return f.err
}

func ticketFixture(pub JobPublisher) (*TicketHandler, *fakeSender) {
	s := &fakeSender{res: ticket.Result{RegistrationID: 10, Mode: ticket.ModeGroup, TotalAttendees: 2, SuccessfulEmails: 1}}
	return NewTicketHandler(s, fakeLookup{}, ownership{}, pub, zerolog.Nop()), s
}

func TestSendRegistration(t *testing.T) {
	h, s := ticketFixture(nil)

	c, rec := newCtx(http.MethodPost, "/api/tickets/registrations/10/send", "")
	withParams(c, "id", "10")
	asAdmin(c, 7, 3)
	require.NoError(t, h.SendRegistration(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"GROUP"`)
	assert.Equal(t, []string{"registration:10"}, s.calls)
}

func TestSendRegistration_Errors(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		admin  uint64 // club of the admin caller, 0 for SUDO
		err    error
		status int
	}{
		{"bad id", "x", 3, nil, http.StatusBadRequest},
		{"unknown registration", "11", 3, nil, http.StatusNotFound},
		{"other club", "10", 4, nil, http.StatusForbidden},
		{"sudo bypasses ownership", "10", 0, nil, http.StatusOK},
		{"missing event", "10", 3, fmt.Errorf("%w: event 5", ticket.ErrNotFound), http.StatusNotFound},
		{"smtp down", "10", 3, fmt.Errorf("send: %w", mailer.ErrDelivery), http.StatusBadGateway},
		{"unexpected", "10", 3, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, s := ticketFixture(nil)
			s.err = tc.err
			c, rec := newCtx(http.MethodPost, "/api/tickets/registrations/"+tc.id+"/send", "")
			withParams(c, "id", tc.id)
			if tc.admin == 0 {
				asSudo(c)
			} else {
				asAdmin(c, 7, tc.admin)
			}
			require.NoError(t, h.SendRegistration(c))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestSendRegistration_DeliveryFailureKeepsResult(t *testing.T) {
	h, s := ticketFixture(nil)
	s.err = mailer.ErrDelivery
	c, rec := newCtx(http.MethodPost, "/api/tickets/registrations/10/send", "")
	withParams(c, "id", "10")
	asSudo(c)
	require.NoError(t, h.SendRegistration(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"registrationId":10`)
}

func TestSendRegistration_Async(t *testing.T) {
	pub := &fakePublisher{}
	h, s := ticketFixture(pub)

	c, rec := newCtx(http.MethodPost, "/api/tickets/registrations/10/send?async=true", "")
	withParams(c, "id", "10")
	asAdmin(c, 7, 3)
	require.NoError(t, h.SendRegistration(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, s.calls)
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, uint64(10), pub.jobs[0].RegistrationID)
	assert.Equal(t, uint64(7), pub.jobs[0].RequestedBy)
	assert.False(t, pub.jobs[0].RequestedAt.IsZero())

	pub.err = errors.New("broker gone")
	c, rec = newCtx(http.MethodPost, "/api/tickets/registrations/10/send?async=1", "")
	withParams(c, "id", "10")
	asAdmin(c, 7, 3)
	require.NoError(t, h.SendRegistration(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSendRegistration_AsyncWithoutBroker(t *testing.T) {
	h, _ := ticketFixture(nil)
	c, rec := newCtx(http.MethodPost, "/api/tickets/registrations/10/send?async=true", "")
	withParams(c, "id", "10")
	asSudo(c)
	require.NoError(t, h.SendRegistration(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSendAttendee(t *testing.T) {
	pub := &fakePublisher{}
	h, s := ticketFixture(pub)

	c, rec := newCtx(http.MethodPost, "/api/tickets/attendees/21/send", "")
	withParams(c, "id", "21")
	asAdmin(c, 7, 3)
	require.NoError(t, h.SendAttendee(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"attendee:21"}, s.calls)

	c, rec = newCtx(http.MethodPost, "/api/tickets/attendees/21/send?async=true", "")
	withParams(c, "id", "21")
	asAdmin(c, 7, 3)
	require.NoError(t, h.SendAttendee(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, queue.TicketSendRequested{
		RegistrationID: 10,
		AttendeeID:     21,
		RequestedBy:    7,
		RequestedAt:    pub.jobs[0].RequestedAt,
	}, pub.jobs[0])

	c, rec = newCtx(http.MethodPost, "/api/tickets/attendees/22/send", "")
	withParams(c, "id", "22")
	asAdmin(c, 7, 3)
	require.NoError(t, h.SendAttendee(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- extras -----

type fakeExtras struct {
	purchased []uint64
	status    *bool
}

func (f *fakeExtras) ListByEvent(_ context.Context, eventID uint64) ([]model.Extras, error) {
	return []model.Extras{{ID: 1, EventID: eventID, Name: "T-shirt", Price: 1500, Currency: "USD"}}, nil
}

func (f *fakeExtras) CreatePurchase(_ context.Context, registrationID uint64, ids []uint64) (model.ExtrasPurchase, error) {
	f.purchased = ids
	p := model.ExtrasPurchase{ID: 1, RegistrationID: registrationID}
	for _, id := range ids {
		if id == 1 {
			p.ExtrasData = append(p.ExtrasData, model.ExtrasItem{Name: "T-shirt", Price: 1500})
		}
	}
	if len(p.ExtrasData) == 0 {
		return model.ExtrasPurchase{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeExtras) GetPurchase(_ context.Context, id uint64) (model.ExtrasPurchase, error) {
	if id != 1 {
		return model.ExtrasPurchase{}, repository.ErrNotFound
	}
	return model.ExtrasPurchase{ID: 1, RegistrationID: 10}, nil
}

func (f *fakeExtras) UpdatePurchaseStatus(_ context.Context, id uint64, status bool) (model.ExtrasPurchase, error) {
	if id != 1 {
		return model.ExtrasPurchase{}, repository.ErrNotFound
	}
	f.status = &status
	return model.ExtrasPurchase{ID: 1, Status: status}, nil
}

func (f *fakeExtras) DeleteFromEvent(_ context.Context, _, extrasID uint64) error {
	if extrasID != 1 {
		return repository.ErrNotFound
	}
	return nil
}

func TestExtrasPurchase(t *testing.T) {
	store := &fakeExtras{}
	h := NewExtrasHandler(store, fakeLookup{}, ownership{})

	c, rec := newCtx(http.MethodPost, "/api/registrations/10/extras-purchase", `{"extras_ids":[1,2]}`)
	withParams(c, "id", "10")
	asAdmin(c, 7, 3)
	require.NoError(t, h.CreatePurchase(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []uint64{1, 2}, store.purchased)

	c, rec = newCtx(http.MethodPost, "/api/registrations/10/extras-purchase", `{"extras_ids":[2]}`)
	withParams(c, "id", "10")
	asAdmin(c, 7, 3)
	require.NoError(t, h.CreatePurchase(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newCtx(http.MethodPost, "/api/registrations/10/extras-purchase", `{"extras_ids":[]}`)
	withParams(c, "id", "10")
	asAdmin(c, 7, 3)
	require.NoError(t, h.CreatePurchase(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(http.MethodPost, "/api/registrations/10/extras-purchase", `{"extras_ids":[1]}`)
	withParams(c, "id", "10")
	asAdmin(c, 7, 4)
	require.NoError(t, h.CreatePurchase(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExtrasPurchaseStatus(t *testing.T) {
	store := &fakeExtras{}
	h := NewExtrasHandler(store, fakeLookup{}, ownership{})

	c, rec := newCtx(http.MethodPatch, "/api/extras-purchases/1/status", `{"status":false}`)
	withParams(c, "id", "1")
	asAdmin(c, 7, 3)
	require.NoError(t, h.UpdatePurchaseStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.status)
	assert.False(t, *store.status)

	c, rec = newCtx(http.MethodPatch, "/api/extras-purchases/1/status", `{}`)
	withParams(c, "id", "1")
	asAdmin(c, 7, 3)
	require.NoError(t, h.UpdatePurchaseStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(http.MethodPatch, "/api/extras-purchases/2/status", `{"status":true}`)
	withParams(c, "id", "2")
	asAdmin(c, 7, 3)
	require.NoError(t, h.UpdatePurchaseStatus(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// purchase of another club's event
	store.status = nil
	c, rec = newCtx(http.MethodPatch, "/api/extras-purchases/1/status", `{"status":true}`)
	withParams(c, "id", "1")
	asAdmin(c, 9, 4)
	require.NoError(t, h.UpdatePurchaseStatus(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, store.status)
}

func TestExtrasListAndDelete(t *testing.T) {
	h := NewExtrasHandler(&fakeExtras{}, fakeLookup{}, ownership{})

	c, rec := newCtx(http.MethodGet, "/api/events/5/extras", "")
	withParams(c, "eventId", "5")
	require.NoError(t, h.ListByEvent(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "T-shirt")

	c, rec = newCtx(http.MethodDelete, "/api/events/5/extras/9", "")
	withParams(c, "id", "5", "extrasId", "9")
	require.NoError(t, h.DeleteFromEvent(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
