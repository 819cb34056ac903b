package ports

import (
	"context"

	"github.com/todoapp/todo-api/internal/core/domain"
)

// CreateTodoInput carries everything needed to create a todo.
type CreateTodoInput struct {
	OwnerID        string
	Text           string
	IdempotencyKey string
}

// CreateTodoResult wraps the created todo.
type CreateTodoResult struct {
	Todo *domain.Todo
	// Replayed is true when the Idempotency-Key matched an earlier creation.
	Replayed bool
}

// UpdateTodoInput carries a partial update for a single todo.
type UpdateTodoInput struct {
	ID      string
	OwnerID string
	Patch   domain.TodoPatch
}

// TodoService defines the todo use cases. The owner id always comes from the
// authenticated subject.
type TodoService interface {
	List(ctx context.Context, ownerID string) ([]*domain.Todo, error)
	Create(ctx context.Context, input CreateTodoInput) (*CreateTodoResult, error)
	Get(ctx context.Context, id, ownerID string) (*domain.Todo, error)
	Update(ctx context.Context, input UpdateTodoInput) (*domain.Todo, error)
	Delete(ctx context.Context, id, ownerID string) error
}
