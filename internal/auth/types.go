package auth

import "time"

// Roles understood by the permission layer. user_type in the users table
// holds exactly one of these.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a stored account record.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	UserType     string    `json:"user_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated identity resolved from a verified token.
// It is a point-in-time snapshot of the claims embedded at issuance and is
// immutable for the lifetime of one request.
type Principal struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     string   `json:"user_type"`
	Roles    []string `json:"roles"`
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
