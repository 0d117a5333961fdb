package auth

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
)

// UserFilter narrows and paginates user listings.
type UserFilter struct {
	Username string
	Email    string
	Page     int
	PerPage  int
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
	UserType     *string
}

// UserStore describes the persistence operations required by the auth
// subsystem. Implementations live in internal/store.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByIdentifier resolves by email when the identifier contains '@',
	// by username otherwise.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]User, int, error)
	Update(ctx context.Context, id string, upd UserUpdate) error
	Delete(ctx context.Context, id string) error
}
