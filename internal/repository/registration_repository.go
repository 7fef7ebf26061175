package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegistrationRepo reads registrations and everything hanging off them:
// attendees, the extras purchase and the order. It is the store behind
// ticket sending.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo constructs a RegistrationRepo with the provided DB handle.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo {
	return &RegistrationRepo{db: db}
}

// GetRegistration fetches a registration by id.
func (r *RegistrationRepo) GetRegistration(ctx context.Context, id uint64) (model.Registration, error) {
	const q = "SELECT id, event_id, status, created_at, updated_at FROM registrations WHERE id = ?"
	var reg model.Registration
	err := r.db.QueryRowContext(ctx, q, id).Scan(&reg.ID, &reg.EventID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	return reg, noRows(err)
}

// GetEvent fetches the event a registration belongs to.
func (r *RegistrationRepo) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	q := "SELECT " + eventColumns + " FROM events WHERE id = ?"
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	return e, noRows(err)
}

const attendeeColumns = `id, registration_id, first_name, last_name, email, phone, is_primary,
	ticket_title, qr_uuid, checked_in`

func scanAttendee(s rowScanner) (model.Attendee, error) {
	var (
		a     model.Attendee
		phone sql.NullString
		title sql.NullString
	)
	if err := s.Scan(&a.ID, &a.RegistrationID, &a.FirstName, &a.LastName, &a.Email, &phone,
		&a.IsPrimary, &title, &a.QRUUID, &a.CheckedIn); err != nil {
		return model.Attendee{}, err
	}
	a.Phone = phone.String
	a.TicketTitle = title.String
	return a, nil
}

// ListAttendees returns the attendees of a registration, primary first.
func (r *RegistrationRepo) ListAttendees(ctx context.Context, registrationID uint64) ([]model.Attendee, error) {
	q := "SELECT " + attendeeColumns + " FROM attendees WHERE registration_id = ? ORDER BY is_primary DESC, id ASC"
	rows, err := r.db.QueryContext(ctx, q, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Attendee{}
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAttendee fetches a single attendee.
func (r *RegistrationRepo) GetAttendee(ctx context.Context, id uint64) (model.Attendee, error) {
	q := "SELECT " + attendeeColumns + " FROM attendees WHERE id = ?"
	a, err := scanAttendee(r.db.QueryRowContext(ctx, q, id))
	return a, noRows(err)
}

// GetExtrasPurchase returns the extras bought with a registration, or nil
// when there are none.
func (r *RegistrationRepo) GetExtrasPurchase(ctx context.Context, registrationID uint64) (*model.ExtrasPurchase, error) {
	const q = `SELECT id, registration_id, extras_data, status, qr_uuid, scanned_at
	           FROM extras_purchases WHERE registration_id = ? ORDER BY id DESC LIMIT 1`
	p, err := scanExtrasPurchase(r.db.QueryRowContext(ctx, q, registrationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrder returns the order recorded at checkout. Registrations made
// before orders were stored yield ErrNotFound.
func (r *RegistrationRepo) GetOrder(ctx context.Context, registrationID uint64) (model.Order, error) {
	const q = "SELECT registration_id, items, total_amount, currency FROM orders WHERE registration_id = ?"
	var (
		o        model.Order
		currency sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, registrationID).Scan(&o.RegistrationID, &o.Items, &o.TotalAmount, &currency)
	if err != nil {
		return model.Order{}, noRows(err)
	}
	o.Currency = currency.String
	return o, nil
}
