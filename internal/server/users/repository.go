package users

import (
	"context"
)

// Repository is the durable user registry. Create must enforce username
// uniqueness atomically and return shared.ErrorLoginAlreadyExists on a
// duplicate, leaving the registry unchanged.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)

	// CreateFirstUser inserts the user only while the registry is empty,
	// atomically with respect to concurrent bootstrap calls. A non-empty
	// registry yields shared.ErrorSetupComplete.
	CreateFirstUser(ctx context.Context, user *User) (*User, error)
	GetByUserName(ctx context.Context, userName string) (*User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}
