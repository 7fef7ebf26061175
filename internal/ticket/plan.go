// Package ticket builds and delivers ticket emails for registrations.
//
// Composition is pure: Compose turns a read-only snapshot of a registration
// (event, attendees, extras purchase, order) into a Plan that lists every
// email to send together with its subject, QR attachments and template
// variables. Service loads the snapshot, composes the plan and dispatches
// it through the injected Mailer one recipient at a time.
package ticket

import (
	"errors"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Mode tells whether a registration receives one consolidated email or one
// email per attendee.
type Mode string

const (
	// ModeGroup sends a single email to the primary attendee covering every
	// ticket of the registration.
	ModeGroup Mode = "GROUP"
	// ModeIndividual sends one email per attendee.
	ModeIndividual Mode = "INDIVIDUAL"
)

// UnknownTicketType is shown in place of a ticket type when the order mixes
// several types and no single one describes the email.
const UnknownTicketType = "unknown"

// Content ids of the inline attachments. The email template references
// them as cid:qrCodeMain and cid:qrCodeExtras.
const (
	AttachmentMain   = "qrCodeMain"
	AttachmentExtras = "qrCodeExtras"
)

// TemplateName is the email template rendered for every recipient.
const TemplateName = "eventTicketEmail.html"

// ErrNotFound is returned when the registration, its event or its attendees
// cannot be loaded. It aborts the send before any email goes out.
var ErrNotFound = errors.New("ticket: not found")

// MainQRPayload is encoded into the attendee's admission QR code.
type MainQRPayload struct {
	RegistrationID uint64 `json:"registrationId"`
	AttendeeID     uint64 `json:"attendeeId"`
	QRUUID         string `json:"qrUuid"`
}

// ExtrasQRPayload is encoded into the extras redemption QR code.
type ExtrasQRPayload struct {
	ExtrasPurchaseID uint64 `json:"extrasPurchaseId"`
	QRUUID           string `json:"qrUuid"`
}

// Attachment describes an inline image of an email. Payload is what gets
// encoded; Content is filled in at dispatch time.
type Attachment struct {
	Name        string
	Filename    string
	ContentType string
	Payload     any
	Content     []byte
}

// Pricing is the per-recipient price breakdown, in minor units.
type Pricing struct {
	TicketType  string
	Quantity    int
	Subtotal    int64
	TaxAmount   int64
	TotalAmount int64
	ShowTax     bool
}

// ExtrasLine is an extras entry as displayed in the email.
type ExtrasLine struct {
	Name  string
	Price string
}

// LineItemLine is an order line as displayed in a group email.
type LineItemLine struct {
	Title     string
	Quantity  int
	UnitPrice string
	LineTotal string
}

// TemplateVars feeds the ticket email template. Monetary fields are
// already converted to major units.
type TemplateVars struct {
	AppName          string
	EventName        string
	Location         string
	Name             string
	Email            string
	Phone            string
	EventDateDisplay string
	RegistrationTime string
	TimezoneAbbr     string
	IsGroup          bool
	TicketType       string
	Quantity         int
	TotalTickets     int
	LineItems        []LineItemLine
	ExtrasList       []ExtrasLine
	HasExtrasQR      bool
	Currency         string
	Subtotal         string
	TaxAmount        string
	TotalAmount      string
	ShowTax          bool
}

// Recipient is one email of a plan.
type Recipient struct {
	Attendee    model.Attendee
	Subject     string
	Pricing     Pricing
	Attachments []Attachment
	Vars        TemplateVars
}

// Plan is the derived, never persisted description of a send.
type Plan struct {
	RegistrationID         uint64
	Mode                   Mode
	TotalTickets           int
	HasMultipleTicketTypes bool
	Recipients             []Recipient
}

// Input is the snapshot a plan is composed from. Extras may be nil.
type Input struct {
	Registration model.Registration
	Event        model.Event
	Attendees    []model.Attendee
	Extras       *model.ExtrasPurchase
	Order        model.Order
}

// SendResult is the outcome of one email.
type SendResult struct {
	AttendeeID uint64 `json:"attendeeId"`
	Email      string `json:"email"`
	MessageID  string `json:"messageId,omitempty"`
	Error      string `json:"error,omitempty"`
	Success    bool   `json:"success"`
}

// Result summarizes a send. It is returned even when some individual
// emails failed so callers can report partial success.
type Result struct {
	RegistrationID   uint64       `json:"registrationId"`
	Mode             Mode         `json:"mode"`
	TotalAttendees   int          `json:"totalAttendees"`
	SuccessfulEmails int          `json:"successfulEmails"`
	FailedEmails     int          `json:"failedEmails"`
	Results          []SendResult `json:"results"`
}
