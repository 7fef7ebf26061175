package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// EventRepo encapsulates the queries against the `events` table.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = `id, club_id, name, description, slug, start_datetime, end_datetime,
	location, banner, currency, tax_type, tax_amount, created_by, registration_count, config, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (model.Event, error) {
	var (
		e         model.Event
		end       sql.NullTime
		banner    sql.NullString
		taxType   sql.NullString
		taxAmount sql.NullInt64
		desc      sql.NullString
	)
	err := s.Scan(&e.ID, &e.ClubID, &e.Name, &desc, &e.Slug, &e.StartDatetime, &end,
		&e.Location, &banner, &e.Currency, &taxType, &taxAmount, &e.CreatedBy, &e.RegistrationCount,
		&e.Config, &e.CreatedAt)
	if err != nil {
		return model.Event{}, err
	}
	e.Description = desc.String
	if end.Valid {
		t := end.Time
		e.EndDatetime = &t
	}
	if banner.Valid {
		e.Banner = &banner.String
	}
	if taxType.Valid {
		e.TaxType = &taxType.String
	}
	if taxAmount.Valid {
		e.TaxAmount = &taxAmount.Int64
	}
	return e, nil
}

// GetByID fetches an event regardless of club. It returns ErrNotFound if
// no row exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	q := "SELECT " + eventColumns + " FROM events WHERE id = ?"
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	return e, noRows(err)
}

// GetBySlug fetches an event by its public slug.
func (r *EventRepo) GetBySlug(ctx context.Context, slug string) (model.Event, error) {
	q := "SELECT " + eventColumns + " FROM events WHERE slug = ?"
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, slug))
	return e, noRows(err)
}

// BelongsToClub reports whether the event exists and is owned by clubID.
func (r *EventRepo) BelongsToClub(ctx context.Context, id, clubID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id = ? AND club_id = ? LIMIT 1", id, clubID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// IsSlugUnique reports whether no event other than excludeID uses slug.
// Pass excludeID 0 when creating.
func (r *EventRepo) IsSlugUnique(ctx context.Context, slug string, excludeID uint64) (bool, error) {
	q := "SELECT COUNT(*) FROM events WHERE slug = ?"
	args := []any{slug}
	if excludeID != 0 {
		q += " AND id <> ?"
		args = append(args, excludeID)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

// UniqueSlug derives a slug from name and appends -1, -2, ... until it is
// not used by another event.
func (r *EventRepo) UniqueSlug(ctx context.Context, name string, excludeID uint64) (string, error) {
	base := utils.GenerateSlug(name)
	slug := base
	for i := 1; ; i++ {
		ok, err := r.IsSlugUnique(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if ok {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// ResolveSlug returns the slug to store for e. A custom slug must be free,
// otherwise ErrConflict is returned; an empty one is generated from the
// event name.
func (r *EventRepo) ResolveSlug(ctx context.Context, e *model.Event, custom string) error {
	custom = strings.TrimSpace(custom)
	if custom == "" {
		slug, err := r.UniqueSlug(ctx, e.Name, e.ID)
		if err != nil {
			return err
		}
		e.Slug = slug
		return nil
	}
	ok, err := r.IsSlugUnique(ctx, custom, e.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: slug %q already exists", ErrConflict, custom)
	}
	e.Slug = custom
	return nil
}

// Create inserts e and populates its ID and CreatedAt.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (club_id, name, description, slug, start_datetime, end_datetime, location,
	           banner, currency, tax_type, tax_amount, created_by, registration_count, config)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`
	res, err := r.db.ExecContext(ctx, q, e.ClubID, e.Name, e.Description, e.Slug, e.StartDatetime,
		e.EndDatetime, e.Location, e.Banner, e.CurrencyOrDefault(), e.TaxType, e.TaxAmount, e.CreatedBy, e.Config)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.Currency = e.CurrencyOrDefault()
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM events WHERE id = ?", e.ID).Scan(&e.CreatedAt)
}

// Update overwrites the editable fields of e. clubID 0 skips the ownership
// check (SUDO). It returns ErrNotFound when no row matched.
func (r *EventRepo) Update(ctx context.Context, e *model.Event, clubID uint64) error {
	q := `UPDATE events SET name = ?, description = ?, slug = ?, start_datetime = ?, end_datetime = ?,
	      location = ?, banner = ?, currency = ?, tax_type = ?, tax_amount = ?, config = ?
	      WHERE id = ?`
	args := []any{e.Name, e.Description, e.Slug, e.StartDatetime, e.EndDatetime, e.Location, e.Banner,
		e.CurrencyOrDefault(), e.TaxType, e.TaxAmount, e.Config, e.ID}
	if clubID != 0 {
		q += " AND club_id = ?"
		args = append(args, clubID)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	// MySQL reports 0 affected rows when nothing changed, so confirm existence.
	if n, _ := res.RowsAffected(); n == 0 {
		if clubID == 0 {
			_, err := r.GetByID(ctx, e.ID)
			return err
		}
		ok, err := r.BelongsToClub(ctx, e.ID, clubID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
	}
	return nil
}

// SaveConfig replaces the configuration document of an event.
func (r *EventRepo) SaveConfig(ctx context.Context, id uint64, cfg model.EventConfig) error {
	res, err := r.db.ExecContext(ctx, "UPDATE events SET config = ? WHERE id = ?", cfg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

// Delete removes an event of clubID. It returns ErrNotFound when the event
// does not exist or belongs to another club.
func (r *EventRepo) Delete(ctx context.Context, id, clubID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ? AND club_id = ?", id, clubID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items        []T `json:"items"`
	TotalItems   int `json:"totalItems"`
	Page         int `json:"page"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalPages   int `json:"totalPages"`
}

// NewPage normalizes page and size and computes the page count.
func NewPage[T any](items []T, total, page, size int) Page[T] {
	page, size = NormalizePage(page, size)
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:        items,
		TotalItems:   total,
		Page:         page,
		ItemsPerPage: size,
		TotalPages:   (total + size - 1) / size,
	}
}

// DefaultItemsPerPage is used when the caller does not ask for a size.
const DefaultItemsPerPage = 6

// NormalizePage clamps page to >= 1 and size to 1..100.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultItemsPerPage
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// ListByClub returns one page of a club's events ordered by start date.
func (r *EventRepo) ListByClub(ctx context.Context, clubID uint64, page, size int) (Page[model.Event], error) {
	page, size = NormalizePage(page, size)
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE club_id = ?", clubID).Scan(&total); err != nil {
		return Page[model.Event]{}, err
	}
	q := "SELECT " + eventColumns + " FROM events WHERE club_id = ? ORDER BY start_datetime ASC LIMIT ? OFFSET ?"
	items, err := r.list(ctx, q, clubID, size, (page-1)*size)
	if err != nil {
		return Page[model.Event]{}, err
	}
	return NewPage(items, total, page, size), nil
}

// ListActive returns the events of a club that have not finished at now.
// Events without an end are active for the whole day they start on.
func (r *EventRepo) ListActive(ctx context.Context, clubID uint64, now time.Time) ([]model.Event, error) {
	q := "SELECT " + eventColumns + ` FROM events
	      WHERE club_id = ?
	        AND ((end_datetime IS NOT NULL AND ? < end_datetime)
	          OR (end_datetime IS NULL AND DATE(?) <= DATE(start_datetime)))
	      ORDER BY start_datetime ASC`
	return r.list(ctx, q, clubID, now, now)
}

func (r *EventRepo) list(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// isDuplicate detects MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
