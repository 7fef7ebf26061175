package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/datefmt"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/money"
)

// Composer turns registration snapshots into plans. AppName is shown in
// the email footer.
type Composer struct {
	AppName string
	// Now is used for the timezone abbreviation; nil means time.Now.
	Now func() time.Time
}

// NewComposer returns a Composer for the given application name.
func NewComposer(appName string) *Composer {
	return &Composer{AppName: appName}
}

// Compose builds the plan for sending every ticket of a registration.
//
// The registration gets a single GROUP email to its primary attendee when
// attendee details were not collected, or when more tickets were bought
// than attendees exist. Otherwise every attendee gets an INDIVIDUAL email.
func (c *Composer) Compose(in Input) (Plan, error) {
	if len(in.Attendees) == 0 {
		return Plan{}, fmt.Errorf("%w: no attendees for registration %d", ErrNotFound, in.Registration.ID)
	}

	totalTickets := in.Order.TotalTickets()
	if len(in.Order.Items) == 0 || totalTickets == 0 {
		totalTickets = 1
	}
	plan := Plan{
		RegistrationID:         in.Registration.ID,
		TotalTickets:           totalTickets,
		HasMultipleTicketTypes: distinctTicketTypes(in.Order.Items) > 1,
	}

	if !in.Event.Config.SaveAllAttendeesDetails || totalTickets > len(in.Attendees) {
		plan.Mode = ModeGroup
		primary := primaryAttendee(in.Attendees)
		rc := c.recipient(in, primary, plan, groupPricing(in.Order, plan), true)
		plan.Recipients = []Recipient{rc}
		return plan, nil
	}

	plan.Mode = ModeIndividual
	extrasTaken := false
	for _, a := range in.Attendees {
		withExtras := !extrasTaken && a.IsPrimary
		rc := c.recipient(in, a, plan, individualPricing(in.Order, a), withExtras)
		if len(rc.Attachments) > 1 {
			extrasTaken = true
		}
		plan.Recipients = append(plan.Recipients, rc)
	}
	return plan, nil
}

// ComposeForAttendee builds an INDIVIDUAL plan for a single attendee of
// the snapshot. It is used to resend one ticket.
func (c *Composer) ComposeForAttendee(in Input, attendeeID uint64) (Plan, error) {
	var (
		target model.Attendee
		found  bool
	)
	for _, a := range in.Attendees {
		if a.ID == attendeeID {
			target, found = a, true
			break
		}
	}
	if !found {
		return Plan{}, fmt.Errorf("%w: attendee %d", ErrNotFound, attendeeID)
	}
	plan := Plan{
		RegistrationID:         in.Registration.ID,
		Mode:                   ModeIndividual,
		TotalTickets:           1,
		HasMultipleTicketTypes: distinctTicketTypes(in.Order.Items) > 1,
	}
	rc := c.recipient(in, target, plan, individualPricing(in.Order, target), target.IsPrimary)
	plan.Recipients = []Recipient{rc}
	return plan, nil
}

func (c *Composer) recipient(in Input, a model.Attendee, plan Plan, p Pricing, primaryPerks bool) Recipient {
	attachments := []Attachment{qrAttachment(AttachmentMain, MainQRPayload{
		RegistrationID: a.RegistrationID,
		AttendeeID:     a.ID,
		QRUUID:         a.QRUUID.String(),
	})}

	var extrasList []ExtrasLine
	if primaryPerks && a.IsPrimary && hasExtras(in.Extras) {
		attachments = append(attachments, qrAttachment(AttachmentExtras, ExtrasQRPayload{
			ExtrasPurchaseID: in.Extras.ID,
			QRUUID:           in.Extras.QRUUID.String(),
		}))
		for _, x := range in.Extras.ExtrasData {
			extrasList = append(extrasList, ExtrasLine{Name: x.Name, Price: money.Format(x.Price)})
		}
	}

	ev := in.Event
	cfg := ev.Config
	var end time.Time
	if ev.EndDatetime != nil {
		end = *ev.EndDatetime
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	vars := TemplateVars{
		AppName:   c.AppName,
		EventName: ev.Name,
		Location:  ev.Location,
		Name:      a.FullName(),
		Email:     a.Email,
		Phone:     a.Phone,
		EventDateDisplay: datefmt.RenderEventWindow(datefmt.Schedule{
			Start:       ev.StartDatetime,
			End:         end,
			Timezone:    cfg.Timezone,
			IsAllDay:    cfg.IsAllDay,
			IsSingleDay: cfg.IsSingleDayEvent,
			Pattern:     cfg.DateFormat,
		}),
		RegistrationTime: datefmt.RenderLongDate(in.Registration.CreatedAt, cfg.Timezone),
		TimezoneAbbr:     datefmt.TimezoneAbbreviationAt(cfg.Timezone, eventInstant(ev, now)),
		IsGroup:          plan.Mode == ModeGroup,
		TicketType:       p.TicketType,
		Quantity:         p.Quantity,
		TotalTickets:     plan.TotalTickets,
		ExtrasList:       extrasList,
		HasExtrasQR:      len(attachments) > 1,
		Currency:         ev.CurrencyOrDefault(),
		Subtotal:         money.Format(p.Subtotal),
		TaxAmount:        money.Format(p.TaxAmount),
		TotalAmount:      money.Format(p.TotalAmount),
		ShowTax:          p.ShowTax,
	}
	if plan.Mode == ModeGroup {
		vars.LineItems = lineItems(in.Order.Items)
	}

	return Recipient{
		Attendee:    a,
		Subject:     subject(plan.Mode, ev.Name, a),
		Pricing:     p,
		Attachments: attachments,
		Vars:        vars,
	}
}

// groupPricing covers the whole order. Tax is whatever the recorded total
// adds on top of the ticket subtotal; free orders never carry tax.
func groupPricing(o model.Order, plan Plan) Pricing {
	var subtotal int64
	for _, it := range o.Items {
		if it.Quantity > 0 && it.UnitPriceMinorUnits > 0 {
			subtotal += it.UnitPriceMinorUnits * int64(it.Quantity)
		}
	}
	total := o.TotalAmount
	if total == 0 {
		total = subtotal
	}
	var tax int64
	if subtotal != 0 {
		tax = total - subtotal
	}

	ticketType := UnknownTicketType
	if !plan.HasMultipleTicketTypes && len(o.Items) > 0 && strings.TrimSpace(o.Items[0].TicketTitle) != "" {
		ticketType = o.Items[0].TicketTitle
	}
	return Pricing{
		TicketType:  ticketType,
		Quantity:    plan.TotalTickets,
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: total,
		ShowTax:     tax != 0,
	}
}

// individualPricing prices one attendee with the line item of their own
// ticket type, falling back to the first line item. Per-attendee emails
// never show tax.
func individualPricing(o model.Order, a model.Attendee) Pricing {
	p := Pricing{Quantity: 1, TicketType: strings.TrimSpace(a.TicketTitle)}
	item, ok := matchLineItem(o.Items, a.TicketTitle)
	if ok {
		p.Subtotal = item.UnitPriceMinorUnits
		p.TotalAmount = item.UnitPriceMinorUnits
		if p.TicketType == "" {
			p.TicketType = item.TicketTitle
		}
	}
	if p.TicketType == "" {
		p.TicketType = UnknownTicketType
	}
	return p
}

func matchLineItem(items []model.OrderLineItem, title string) (model.OrderLineItem, bool) {
	if len(items) == 0 {
		return model.OrderLineItem{}, false
	}
	if title != "" {
		for _, it := range items {
			if it.TicketTitle == title {
				return it, true
			}
		}
	}
	return items[0], true
}

func distinctTicketTypes(items []model.OrderLineItem) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.TicketTitle] = struct{}{}
	}
	return len(seen)
}

func primaryAttendee(attendees []model.Attendee) model.Attendee {
	for _, a := range attendees {
		if a.IsPrimary {
			return a
		}
	}
	return attendees[0]
}

func hasExtras(x *model.ExtrasPurchase) bool {
	return x != nil && x.ID != 0 && len(x.ExtrasData) > 0
}

func lineItems(items []model.OrderLineItem) []LineItemLine {
	out := make([]LineItemLine, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		out = append(out, LineItemLine{
			Title:     it.TicketTitle,
			Quantity:  it.Quantity,
			UnitPrice: money.Format(it.UnitPriceMinorUnits),
			LineTotal: money.Format(it.UnitPriceMinorUnits * int64(it.Quantity)),
		})
	}
	return out
}

func qrAttachment(name string, payload any) Attachment {
	return Attachment{
		Name:        name,
		Filename:    name + ".png",
		ContentType: "image/png",
		Payload:     payload,
	}
}

func subject(mode Mode, eventName string, a model.Attendee) string {
	if mode == ModeGroup {
		return "Tickets for " + eventName
	}
	return fmt.Sprintf("Ticket for %s - %s %s", eventName, a.FirstName, a.LastName)
}

// eventInstant picks the instant whose zone abbreviation is shown, so a
// summer event shows PDT even when the email goes out in winter.
func eventInstant(ev model.Event, now func() time.Time) time.Time {
	if !ev.StartDatetime.IsZero() {
		return ev.StartDatetime
	}
	if ev.EndDatetime != nil && !ev.EndDatetime.IsZero() {
		return *ev.EndDatetime
	}
	return now()
}
