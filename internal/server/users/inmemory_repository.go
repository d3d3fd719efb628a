package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mkrutov/termgate/internal/shared"
)

// InMemoryRepository is a mutex-guarded registry used by tests and by
// deployments that do not need durability.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by username
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*User)}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.UserName]; ok {
		return nil, shared.ErrorLoginAlreadyExists
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	stored := *user
	r.users[user.UserName] = &stored

	return user, nil
}

func (r *InMemoryRepository) CreateFirstUser(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.users) > 0 {
		return nil, shared.ErrorSetupComplete
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	stored := *user
	r.users[user.UserName] = &stored

	return user, nil
}

func (r *InMemoryRepository) GetByUserName(ctx context.Context, userName string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userName]
	if !ok {
		return nil, shared.ErrorNotFound
	}

	copied := *user
	return &copied, nil
}

func (r *InMemoryRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.ID == userID {
			now := time.Now().UTC()
			user.LastLogin = &now
			return nil
		}
	}

	return shared.ErrorNotFound
}

func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users), nil
}
