package ports

import (
	"context"

	"github.com/todoapp/todo-api/internal/core/domain"
)

// UserRepository is the credential store. Lookups return domain.ErrUserNotFound
// when nothing matches; Create returns domain.ErrUserExists when the storage
// layer's unique constraint on username or email rejects the insert.
type UserRepository interface {
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
