package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/todoapp/todo-api/internal/core/domain"
	"github.com/todoapp/todo-api/internal/core/ports"
	"github.com/todoapp/todo-api/internal/pkg/metrics"
)

// TodoService implements the todo use cases. Every call is scoped to the
// owner id the caller obtained from the authenticated subject.
type TodoService struct {
	repo        ports.TodoRepository
	idempotency ports.IdempotencyStore
	logger      zerolog.Logger
}

// NewTodoService builds a TodoService. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func NewTodoService(repo ports.TodoRepository, idempotency ports.IdempotencyStore, logger zerolog.Logger) *TodoService {
	return &TodoService{repo: repo, idempotency: idempotency, logger: logger}
}

func validText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > domain.MaxTodoTextLength {
		return "", domain.ErrInvalidTodo
	}
	return text, nil
}

func (s *TodoService) List(ctx context.Context, ownerID string) ([]*domain.Todo, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Create adds a todo. With an idempotency key, the key is reserved before the
// insert: a key whose todo still exists replays that todo, a key still held by
// an in-flight request yields domain.ErrIdempotencyInProgress, and a key whose
// todo was deleted is reclaimed for the new todo.
func (s *TodoService) Create(ctx context.Context, input ports.CreateTodoInput) (*ports.CreateTodoResult, error) {
	text, err := validText(input.Text)
	if err != nil {
		return nil, err
	}

	useKey := input.IdempotencyKey != "" && s.idempotency != nil
	if useKey {
		existing, claimed, err := s.claim(ctx, input.OwnerID, input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			metrics.IdempotentReplaysTotal.Inc()
			return &ports.CreateTodoResult{Todo: existing, Replayed: true}, nil
		}
		useKey = claimed
	}

	todo, err := s.repo.Create(ctx, &domain.Todo{OwnerID: input.OwnerID, Text: text})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", input.OwnerID).Msg("failed to create todo")
		if useKey {
			if relErr := s.idempotency.Release(ctx, input.OwnerID, input.IdempotencyKey); relErr != nil {
				s.logger.Warn().Err(relErr).Str("idempotency_key", input.IdempotencyKey).Msg("idempotency key not released")
			}
		}
		return nil, err
	}

	if useKey {
		if err := s.idempotency.Remember(ctx, input.OwnerID, input.IdempotencyKey, todo.ID); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", input.IdempotencyKey).Msg("idempotency key not stored")
		}
	}

	metrics.TodoOperationsTotal.WithLabelValues("create").Inc()
	s.logger.Info().Str("todo_id", todo.ID).Str("user_id", input.OwnerID).Msg("todo created")
	return &ports.CreateTodoResult{Todo: todo}, nil
}

// claim reserves key for this request. It returns the todo to replay when the
// key already produced one that still exists. claimed is false when the store
// is unavailable, in which case creation proceeds without a key.
func (s *TodoService) claim(ctx context.Context, ownerID, key string) (existing *domain.Todo, claimed bool, err error) {
	todoID, reserved, err := s.idempotency.Reserve(ctx, ownerID, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency reserve failed")
		return nil, false, nil
	}
	if reserved {
		return nil, true, nil
	}
	if todoID == "" {
		return nil, false, domain.ErrIdempotencyInProgress
	}

	existing, err = s.repo.FindByID(ctx, todoID, ownerID)
	if err == nil {
		s.logger.Info().Str("idempotency_key", key).Str("todo_id", existing.ID).Msg("idempotent replay")
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrTodoNotFound) {
		return nil, false, err
	}

	ok, err := s.idempotency.Reclaim(ctx, ownerID, key, todoID)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency reclaim failed")
		return nil, false, nil
	}
	if !ok {
		return nil, false, domain.ErrIdempotencyInProgress
	}
	return nil, true, nil
}

func (s *TodoService) Get(ctx context.Context, id, ownerID string) (*domain.Todo, error) {
	return s.repo.FindByID(ctx, id, ownerID)
}

func (s *TodoService) Update(ctx context.Context, input ports.UpdateTodoInput) (*domain.Todo, error) {
	patch := input.Patch
	if patch.Text != nil {
		text, err := validText(*patch.Text)
		if err != nil {
			return nil, err
		}
		patch.Text = &text
	}

	todo, err := s.repo.Update(ctx, input.ID, input.OwnerID, patch)
	if err != nil {
		return nil, err
	}

	metrics.TodoOperationsTotal.WithLabelValues("update").Inc()
	return todo, nil
}

func (s *TodoService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	metrics.TodoOperationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info().Str("todo_id", id).Str("user_id", ownerID).Msg("todo deleted")
	return nil
}
