package ticket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

var fixedNow = func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) }

func testComposer() *Composer {
	c := NewComposer("Event Tickets")
	c.Now = fixedNow
	return c
}

func attendee(id uint64, first string, primary bool, title string) model.Attendee {
	return model.Attendee{
		ID:             id,
		RegistrationID: 7,
		FirstName:      first,
		LastName:       "Doe",
		Email:          first + "@example.com",
		IsPrimary:      primary,
		TicketTitle:    title,
		QRUUID:         uuid.New(),
	}
}

func baseInput(saveAll bool, attendees []model.Attendee, items []model.OrderLineItem, total int64) Input {
	cfg := model.DefaultEventConfig()
	cfg.SaveAllAttendeesDetails = saveAll
	cfg.Timezone = "America/Los_Angeles"
	return Input{
		Registration: model.Registration{ID: 7, EventID: 3, CreatedAt: time.Date(2025, 5, 1, 17, 30, 0, 0, time.UTC)},
		Event: model.Event{
			ID:            3,
			Name:          "Spring Gala",
			Location:      "Main Hall",
			StartDatetime: time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC),
			Currency:      "USD",
			Config:        cfg,
		},
		Attendees: attendees,
		Order:     model.Order{RegistrationID: 7, Items: items, TotalAmount: total, Currency: "USD"},
	}
}

func extrasPurchase() *model.ExtrasPurchase {
	return &model.ExtrasPurchase{
		ID:             9,
		RegistrationID: 7,
		ExtrasData:     model.ExtrasItems{{Name: "Parking", Price: 500}},
		QRUUID:         uuid.New(),
	}
}

func countExtras(p Plan) int {
	n := 0
	for _, rc := range p.Recipients {
		for _, a := range rc.Attachments {
			if a.Name == AttachmentExtras {
				n++
			}
		}
	}
	return n
}

func TestCompose_GroupWhenDetailsNotSaved(t *testing.T) {
	in := baseInput(false,
		[]model.Attendee{attendee(1, "Jane", true, "")},
		[]model.OrderLineItem{{TicketTitle: "VIP", Quantity: 3, UnitPriceMinorUnits: 1000}},
		3300)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	assert.Equal(t, ModeGroup, plan.Mode)
	assert.Equal(t, 3, plan.TotalTickets)
	require.Len(t, plan.Recipients, 1)

	rc := plan.Recipients[0]
	assert.Equal(t, "Tickets for Spring Gala", rc.Subject)
	assert.Equal(t, "VIP", rc.Pricing.TicketType)
	assert.Equal(t, 3, rc.Pricing.Quantity)
	assert.Equal(t, int64(3000), rc.Pricing.Subtotal)
	assert.Equal(t, int64(300), rc.Pricing.TaxAmount)
	assert.Equal(t, int64(3300), rc.Pricing.TotalAmount)
	assert.True(t, rc.Pricing.ShowTax)
	assert.True(t, rc.Vars.IsGroup)
	assert.Equal(t, "30.00", rc.Vars.Subtotal)
	assert.Equal(t, "3.00", rc.Vars.TaxAmount)
	assert.Equal(t, "33.00", rc.Vars.TotalAmount)
	assert.Len(t, rc.Vars.LineItems, 1)
	assert.Equal(t, "PDT", rc.Vars.TimezoneAbbr)
}

func TestCompose_GroupWhenMoreTicketsThanAttendees(t *testing.T) {
	in := baseInput(true,
		[]model.Attendee{attendee(1, "Jane", false, "GA"), attendee(2, "John", true, "GA")},
		[]model.OrderLineItem{{TicketTitle: "GA", Quantity: 3, UnitPriceMinorUnits: 1000}},
		3000)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	assert.Equal(t, ModeGroup, plan.Mode)
	require.Len(t, plan.Recipients, 1)
	assert.Equal(t, uint64(2), plan.Recipients[0].Attendee.ID, "primary attendee receives the group email")
	assert.False(t, plan.Recipients[0].Pricing.ShowTax)
}

func TestCompose_IndividualOneEmailPerAttendee(t *testing.T) {
	in := baseInput(true,
		[]model.Attendee{attendee(1, "Jane", true, "VIP"), attendee(2, "John", false, "GA"), attendee(3, "Jim", false, "GA")},
		[]model.OrderLineItem{
			{TicketTitle: "VIP", Quantity: 1, UnitPriceMinorUnits: 5000},
			{TicketTitle: "GA", Quantity: 2, UnitPriceMinorUnits: 2000},
		},
		9900)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	assert.Equal(t, ModeIndividual, plan.Mode)
	assert.True(t, plan.HasMultipleTicketTypes)
	require.Len(t, plan.Recipients, 3)

	for _, rc := range plan.Recipients {
		assert.Equal(t, 1, rc.Pricing.Quantity)
		assert.Zero(t, rc.Pricing.TaxAmount)
		assert.False(t, rc.Pricing.ShowTax)
		assert.False(t, rc.Vars.IsGroup)
		assert.Empty(t, rc.Vars.LineItems)
	}
	assert.Equal(t, int64(5000), plan.Recipients[0].Pricing.TotalAmount)
	assert.Equal(t, "VIP", plan.Recipients[0].Pricing.TicketType)
	assert.Equal(t, int64(2000), plan.Recipients[1].Pricing.TotalAmount)
	assert.Equal(t, "Ticket for Spring Gala - John Doe", plan.Recipients[1].Subject)
}

func TestCompose_IndividualFallsBackToFirstLineItem(t *testing.T) {
	in := baseInput(true,
		[]model.Attendee{attendee(1, "Jane", true, "")},
		[]model.OrderLineItem{{TicketTitle: "GA", Quantity: 1, UnitPriceMinorUnits: 1500}},
		1500)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	require.Len(t, plan.Recipients, 1)
	assert.Equal(t, "GA", plan.Recipients[0].Pricing.TicketType)
	assert.Equal(t, int64(1500), plan.Recipients[0].Pricing.Subtotal)
}

func TestCompose_FreeOrderHasNoTax(t *testing.T) {
	in := baseInput(false,
		[]model.Attendee{attendee(1, "Jane", true, "")},
		[]model.OrderLineItem{{TicketTitle: "Free", Quantity: 2, UnitPriceMinorUnits: 0}},
		250)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	p := plan.Recipients[0].Pricing
	assert.Zero(t, p.Subtotal)
	assert.Zero(t, p.TaxAmount)
	assert.False(t, p.ShowTax)
}

func TestCompose_ZeroTotalFallsBackToSubtotal(t *testing.T) {
	in := baseInput(false,
		[]model.Attendee{attendee(1, "Jane", true, "")},
		[]model.OrderLineItem{{TicketTitle: "GA", Quantity: 2, UnitPriceMinorUnits: 1000}},
		0)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	p := plan.Recipients[0].Pricing
	assert.Equal(t, int64(2000), p.TotalAmount)
	assert.Zero(t, p.TaxAmount)
}

func TestCompose_MultipleTypesInGroupAreUnknown(t *testing.T) {
	in := baseInput(false,
		[]model.Attendee{attendee(1, "Jane", true, "")},
		[]model.OrderLineItem{
			{TicketTitle: "VIP", Quantity: 1, UnitPriceMinorUnits: 5000},
			{TicketTitle: "GA", Quantity: 1, UnitPriceMinorUnits: 2000},
		},
		7000)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	assert.Equal(t, UnknownTicketType, plan.Recipients[0].Pricing.TicketType)
	assert.Equal(t, 2, plan.Recipients[0].Pricing.Quantity)
}

func TestCompose_NoLineItemsCountsOneTicket(t *testing.T) {
	in := baseInput(true, []model.Attendee{attendee(1, "Jane", true, "")}, nil, 0)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.TotalTickets)
	assert.Equal(t, ModeIndividual, plan.Mode)
	assert.Equal(t, UnknownTicketType, plan.Recipients[0].Pricing.TicketType)
}

func TestCompose_ExtrasOnlyForPrimary(t *testing.T) {
	in := baseInput(true,
		[]model.Attendee{attendee(1, "Jane", false, "GA"), attendee(2, "John", true, "GA"), attendee(3, "Jim", false, "GA")},
		[]model.OrderLineItem{{TicketTitle: "GA", Quantity: 3, UnitPriceMinorUnits: 1000}},
		3000)
	in.Extras = extrasPurchase()

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	assert.Equal(t, 1, countExtras(plan))
	for _, rc := range plan.Recipients {
		assert.Equal(t, AttachmentMain, rc.Attachments[0].Name)
		if rc.Attendee.IsPrimary {
			require.Len(t, rc.Attachments, 2)
			assert.True(t, rc.Vars.HasExtrasQR)
			assert.Equal(t, []ExtrasLine{{Name: "Parking", Price: "5.00"}}, rc.Vars.ExtrasList)
			assert.Equal(t, ExtrasQRPayload{ExtrasPurchaseID: 9, QRUUID: in.Extras.QRUUID.String()}, rc.Attachments[1].Payload)
		} else {
			assert.Len(t, rc.Attachments, 1)
			assert.Empty(t, rc.Vars.ExtrasList)
		}
	}
}

func TestCompose_ExtrasWithoutDataAreIgnored(t *testing.T) {
	in := baseInput(false, []model.Attendee{attendee(1, "Jane", true, "")}, nil, 0)
	in.Extras = &model.ExtrasPurchase{ID: 9, QRUUID: uuid.New()}

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	assert.Zero(t, countExtras(plan))
}

func TestCompose_GroupWithoutPrimaryHasNoExtras(t *testing.T) {
	in := baseInput(false, []model.Attendee{attendee(1, "Jane", false, "")}, nil, 0)
	in.Extras = extrasPurchase()

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), plan.Recipients[0].Attendee.ID)
	assert.Zero(t, countExtras(plan))
}

func TestCompose_MainPayload(t *testing.T) {
	a := attendee(4, "Jane", true, "")
	in := baseInput(true, []model.Attendee{a}, nil, 0)

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	att := plan.Recipients[0].Attachments[0]
	assert.Equal(t, "qrCodeMain.png", att.Filename)
	assert.Equal(t, "image/png", att.ContentType)
	assert.Equal(t, MainQRPayload{RegistrationID: 7, AttendeeID: 4, QRUUID: a.QRUUID.String()}, att.Payload)
}

func TestCompose_NoAttendees(t *testing.T) {
	_, err := testComposer().Compose(baseInput(true, nil, nil, 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompose_TemplateVars(t *testing.T) {
	in := baseInput(true, []model.Attendee{attendee(1, "Jane", true, "")}, nil, 0)
	in.Attendees[0].Phone = "+1 555 0100"

	plan, err := testComposer().Compose(in)
	require.NoError(t, err)
	v := plan.Recipients[0].Vars
	assert.Equal(t, "Event Tickets", v.AppName)
	assert.Equal(t, "Spring Gala", v.EventName)
	assert.Equal(t, "Main Hall", v.Location)
	assert.Equal(t, "Jane Doe", v.Name)
	assert.Equal(t, "+1 555 0100", v.Phone)
	assert.Equal(t, "06/01/2025 18:00", v.EventDateDisplay)
	assert.Equal(t, "Thursday, May 1, 2025 at 10:30 AM PDT", v.RegistrationTime)
	assert.Equal(t, "USD", v.Currency)
}

func TestComposeForAttendee(t *testing.T) {
	in := baseInput(false,
		[]model.Attendee{attendee(1, "Jane", true, "VIP"), attendee(2, "John", false, "GA")},
		[]model.OrderLineItem{
			{TicketTitle: "VIP", Quantity: 1, UnitPriceMinorUnits: 5000},
			{TicketTitle: "GA", Quantity: 1, UnitPriceMinorUnits: 2000},
		},
		7700)
	in.Extras = extrasPurchase()
	c := testComposer()

	plan, err := c.ComposeForAttendee(in, 2)
	require.NoError(t, err)
	assert.Equal(t, ModeIndividual, plan.Mode)
	require.Len(t, plan.Recipients, 1)
	rc := plan.Recipients[0]
	assert.Equal(t, "Ticket for Spring Gala - John Doe", rc.Subject)
	assert.Equal(t, int64(2000), rc.Pricing.TotalAmount)
	assert.Len(t, rc.Attachments, 1)

	plan, err = c.ComposeForAttendee(in, 1)
	require.NoError(t, err)
	assert.Len(t, plan.Recipients[0].Attachments, 2)

	_, err = c.ComposeForAttendee(in, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
