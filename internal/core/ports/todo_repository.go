package ports

import (
	"context"

	"github.com/todoapp/todo-api/internal/core/domain"
)

// TodoRepository persists todos. Every single-item operation is scoped by
// (id, ownerID) and returns domain.ErrTodoNotFound when no document matches
// both, so another owner's todo is indistinguishable from a missing one.
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) (*domain.Todo, error)
	// ListByOwner returns the owner's todos, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Todo, error)
	FindByID(ctx context.Context, id, ownerID string) (*domain.Todo, error)
	Update(ctx context.Context, id, ownerID string, patch domain.TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// IdempotencyStore remembers which todo a client-supplied Idempotency-Key
// produced. Keys are namespaced by owner.
type IdempotencyStore interface {
	// Reserve atomically claims key for a new creation. When the key is
	// already held it returns the todo id stored under it, or "" while the
	// holder's creation is still in flight.
	Reserve(ctx context.Context, ownerID, key string) (todoID string, reserved bool, err error)
	// Reclaim turns a mapping that still points at staleID into a fresh
	// reservation. It reports false when another request changed the key first.
	Reclaim(ctx context.Context, ownerID, key, staleID string) (bool, error)
	// Remember stores todoID under key, replacing the reservation.
	Remember(ctx context.Context, ownerID, key, todoID string) error
	// Release drops a reservation whose creation failed.
	Release(ctx context.Context, ownerID, key string) error
}
