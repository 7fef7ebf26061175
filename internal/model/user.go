package model

import "time"

// Roles carried in the JWT "role" claim. SUDO manages every club; ADMIN
// manages the events of its own club.
const (
	RoleSudo  = "SUDO"
	RoleAdmin = "ADMIN"
)

// User represents a back-office account stored in the `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	ClubID       – club the user administers (zero for SUDO accounts).
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – SUDO or ADMIN.
//	IsActive     – whether the account may log in.
type User struct {
	ID           uint64
	ClubID       uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
