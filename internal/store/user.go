package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user, hashing user.Password.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID. Returns ErrUserNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email. Returns ErrUserNotFound if missing.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user. A non-empty Password is re-hashed.
	// Returns ErrUserNotFound or ErrEmailExists.
	Update(ctx context.Context, user *domain.User) error

	// UpdateRole changes a user's role. Returns ErrUserNotFound if missing.
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error

	// List returns all users ordered by email.
	List(ctx context.Context) ([]*domain.User, error)

	// Delete removes a user. Returns ErrUserNotFound if missing.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a UserStore bound to tx.
	WithTx(tx *sql.Tx) UserStore
}
