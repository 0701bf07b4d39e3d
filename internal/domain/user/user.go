package user

import (
	"context"
	"time"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = apperr.NotFound("user not found")
	// ErrDuplicate is returned when the username or email is already taken.
	ErrDuplicate = apperr.Conflict("username or email already exists", nil)
	// ErrInvalidCredentials is returned by Login for an unknown username or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = apperr.Unauthorized("invalid username or password")
)

// User is a registered account. PasswordHash never leaves the domain layer.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository defines persistence operations for users.
type Repository interface {
	// Create inserts u and sets its ID and CreatedAt. It returns ErrDuplicate
	// when the username or email is taken.
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, error)
}
