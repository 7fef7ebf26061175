package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ExtrasRepo manages the extras offered for events and their purchases.
type ExtrasRepo struct {
	db *sql.DB
}

// NewExtrasRepo constructs an ExtrasRepo with the provided DB handle.
func NewExtrasRepo(db *sql.DB) *ExtrasRepo {
	return &ExtrasRepo{db: db}
}

const extrasColumns = "id, event_id, name, description, price, currency, content"

func scanExtras(s rowScanner) (model.Extras, error) {
	var (
		x       model.Extras
		desc    sql.NullString
		content []byte
	)
	if err := s.Scan(&x.ID, &x.EventID, &x.Name, &desc, &x.Price, &x.Currency, &content); err != nil {
		return model.Extras{}, err
	}
	x.Description = desc.String
	if len(content) > 0 {
		x.Content = content
	}
	return x, nil
}

func scanExtrasPurchase(s rowScanner) (model.ExtrasPurchase, error) {
	var (
		p       model.ExtrasPurchase
		scanned sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.RegistrationID, &p.ExtrasData, &p.Status, &p.QRUUID, &scanned); err != nil {
		return model.ExtrasPurchase{}, err
	}
	if scanned.Valid {
		t := scanned.Time
		p.ScannedAt = &t
	}
	return p, nil
}

// ListByEvent returns the extras of an event ordered by id.
func (r *ExtrasRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Extras, error) {
	return r.query(ctx, "SELECT "+extrasColumns+" FROM extras WHERE event_id = ? ORDER BY id", eventID)
}

// ListByIDs returns the extras with the given ids. Unknown ids are skipped.
func (r *ExtrasRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Extras, error) {
	if len(ids) == 0 {
		return []model.Extras{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := "SELECT " + extrasColumns + " FROM extras WHERE id IN (?" + strings.Repeat(",?", len(ids)-1) + ") ORDER BY id"
	return r.query(ctx, q, args...)
}

func (r *ExtrasRepo) query(ctx context.Context, q string, args ...any) ([]model.Extras, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Extras{}
	for rows.Next() {
		x, err := scanExtras(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

// Snapshot copies the purchasable fields of extras into purchase items.
func Snapshot(extras []model.Extras) model.ExtrasItems {
	items := make(model.ExtrasItems, 0, len(extras))
	for _, x := range extras {
		items = append(items, model.ExtrasItem{Name: x.Name, Price: x.Price, Content: x.Content})
	}
	return items
}

// CreatePurchase records the extras bought with a registration. The items
// are snapshotted so later edits of the extras do not change the purchase,
// and a fresh QR uuid is issued.
func (r *ExtrasRepo) CreatePurchase(ctx context.Context, registrationID uint64, extrasIDs []uint64) (model.ExtrasPurchase, error) {
	extras, err := r.ListByIDs(ctx, extrasIDs)
	if err != nil {
		return model.ExtrasPurchase{}, err
	}
	if len(extras) == 0 {
		return model.ExtrasPurchase{}, fmt.Errorf("%w: no matching extras", ErrNotFound)
	}
	p := model.ExtrasPurchase{
		RegistrationID: registrationID,
		ExtrasData:     Snapshot(extras),
		QRUUID:         uuid.New(),
	}
	const q = `INSERT INTO extras_purchases (registration_id, extras_data, status, qr_uuid, scanned_at)
	           VALUES (?, ?, FALSE, ?, NULL)`
	res, err := r.db.ExecContext(ctx, q, p.RegistrationID, p.ExtrasData, p.QRUUID.String())
	if err != nil {
		return model.ExtrasPurchase{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ExtrasPurchase{}, err
	}
	p.ID = uint64(id)
	return p, nil
}

const purchaseColumns = "id, registration_id, extras_data, status, qr_uuid, scanned_at"

// GetPurchase fetches an extras purchase by id.
func (r *ExtrasRepo) GetPurchase(ctx context.Context, id uint64) (model.ExtrasPurchase, error) {
	p, err := scanExtrasPurchase(r.db.QueryRowContext(ctx, "SELECT "+purchaseColumns+" FROM extras_purchases WHERE id = ?", id))
	return p, noRows(err)
}

// UpdatePurchaseStatus marks a purchase redeemed or not. Redeeming stamps
// scanned_at; un-redeeming keeps the previous stamp.
func (r *ExtrasRepo) UpdatePurchaseStatus(ctx context.Context, id uint64, status bool) (model.ExtrasPurchase, error) {
	const q = `UPDATE extras_purchases
	           SET status = ?, scanned_at = CASE WHEN ? THEN CURRENT_TIMESTAMP ELSE scanned_at END
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, status, id)
	if err != nil {
		return model.ExtrasPurchase{}, err
	}
	n, _ := res.RowsAffected()
	p, err := scanExtrasPurchase(r.db.QueryRowContext(ctx, "SELECT "+purchaseColumns+" FROM extras_purchases WHERE id = ?", id))
	if err != nil {
		if n == 0 {
			return model.ExtrasPurchase{}, noRows(err)
		}
		return model.ExtrasPurchase{}, err
	}
	return p, nil
}

// DeleteFromEvent removes an extras row of an event.
func (r *ExtrasRepo) DeleteFromEvent(ctx context.Context, eventID, extrasID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM extras WHERE id = ? AND event_id = ?", extrasID, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
