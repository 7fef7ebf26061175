package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// UserRepo reads and writes back-office accounts.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, club_id, email, password_hash, role, is_active, created_at, updated_at"

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		club sql.NullInt64
	)
	err := s.Scan(&u.ID, &club, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if club.Valid {
		u.ClubID = uint64(club.Int64)
	}
	return u, noRows(err)
}

// Create inserts an account and returns its ID. clubID 0 stores NULL
// (SUDO accounts are not tied to a club). A taken email yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, clubID uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var club any
	if clubID != 0 {
		club = clubID
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (club_id, email, password_hash, role) VALUES (?,?,?,?)",
		club, email, hash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}
