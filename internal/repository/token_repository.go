package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores refresh tokens of back-office users. Only the SHA-256
// hash of a raw token ever reaches the `refresh_tokens` table.
type TokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewTokenRepo constructs a TokenRepo with the provided DB handle.
func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db, now: time.Now}
}

// StoreRefresh records a newly issued token.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	const q = "INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)"
	_, err := r.db.ExecContext(ctx, q, userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owner of a live token. Unknown, revoked and
// expired tokens all yield ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	const q = `SELECT user_id FROM refresh_tokens
	           WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?
	           LIMIT 1`
	var userID uint64
	err := r.db.QueryRowContext(ctx, q, tokenHash, r.now().UTC()).Scan(&userID)
	return userID, noRows(err)
}

// RevokeByHash revokes one token. Revoking twice is not an error.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	const q = "UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL"
	_, err := r.db.ExecContext(ctx, q, r.now().UTC(), tokenHash)
	return err
}

// RevokeAllForUser ends every session of a user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	const q = "UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL"
	_, err := r.db.ExecContext(ctx, q, r.now().UTC(), userID)
	return err
}
