package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Registration is one checkout made for an event. A registration owns its
// attendees, an optional extras purchase and the order line items.
type Registration struct {
	ID        uint64    `json:"id"`
	EventID   uint64    `json:"event_id"`
	Status    bool      `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attendee is a person covered by a registration. Exactly one attendee of a
// registration has IsPrimary set; it is the purchaser and main contact.
// QRUUID is the secret embedded in the attendee's ticket QR code.
type Attendee struct {
	ID             uint64    `json:"id"`
	RegistrationID uint64    `json:"registration_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	IsPrimary      bool      `json:"is_primary"`
	TicketTitle    string    `json:"ticket_title,omitempty"`
	QRUUID         uuid.UUID `json:"qr_uuid"`
	CheckedIn      bool      `json:"checked_in"`
}

// FullName joins first and last name with a single space.
func (a Attendee) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Extras is an add-on offered for an event (merchandise, parking, ...).
type Extras struct {
	ID          uint64          `json:"id"`
	EventID     uint64          `json:"event_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       int64           `json:"price"`
	Currency    string          `json:"currency"`
	Content     json.RawMessage `json:"content"`
}

// ExtrasItem is the snapshot of an Extras row taken at purchase time.
type ExtrasItem struct {
	Name    string          `json:"name"`
	Price   int64           `json:"price"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ExtrasItems is stored as a JSON array in `extras_purchases.extras_data`.
type ExtrasItems []ExtrasItem

// Scan implements sql.Scanner.
func (x *ExtrasItems) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*x = nil
		return nil
	case []byte:
		return json.Unmarshal(v, x)
	case string:
		return json.Unmarshal([]byte(v), x)
	}
	return errors.New("unsupported type for extras data")
}

// Value implements driver.Valuer.
func (x ExtrasItems) Value() (driver.Value, error) {
	if x == nil {
		return "[]", nil
	}
	b, err := json.Marshal(x)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ExtrasPurchase records the extras bought with a registration; at most one
// exists per registration. Status flips to true when the extras QR code is
// scanned at the venue.
type ExtrasPurchase struct {
	ID             uint64      `json:"id"`
	RegistrationID uint64      `json:"registration_id"`
	ExtrasData     ExtrasItems `json:"extras_data"`
	Status         bool        `json:"status"`
	QRUUID         uuid.UUID   `json:"qr_uuid"`
	ScannedAt      *time.Time  `json:"scanned_at,omitempty"`
}

// OrderLineItem is a quantity of one ticket type. Prices are minor units.
type OrderLineItem struct {
	TicketTitle         string `json:"ticketTitle"`
	Quantity            int    `json:"quantity"`
	UnitPriceMinorUnits int64  `json:"price"`
}

// OrderLineItems is stored as a JSON array in `orders.items`.
type OrderLineItems []OrderLineItem

// Scan implements sql.Scanner.
func (o *OrderLineItems) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = nil
		return nil
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	}
	return errors.New("unsupported type for order items")
}

// Order summarizes what was paid for a registration. TotalAmount is the
// amount recorded at checkout, tax included, in minor units.
type Order struct {
	RegistrationID uint64         `json:"registration_id"`
	Items          OrderLineItems `json:"items"`
	TotalAmount    int64          `json:"total_amount"`
	Currency       string         `json:"currency"`
}

// TotalTickets is the sum of the line item quantities.
func (o Order) TotalTickets() int {
	n := 0
	for _, it := range o.Items {
		if it.Quantity > 0 {
			n += it.Quantity
		}
	}
	return n
}
