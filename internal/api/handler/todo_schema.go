package handler

import (
	"time"

	"github.com/todoapp/todo-api/internal/core/domain"
)

type createTodoRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// updateTodoRequest is a partial update; absent fields are left unchanged.
type updateTodoRequest struct {
	Text      *string `json:"text"      validate:"omitempty,max=500"`
	Completed *bool   `json:"completed"`
}

// todoResponse keeps the document-style "_id" key that existing clients read.
type todoResponse struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toTodoResponse(t *domain.Todo) todoResponse {
	return todoResponse{
		ID:        t.ID,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func toTodoResponses(todos []*domain.Todo) []todoResponse {
	out := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		out = append(out, toTodoResponse(t))
	}
	return out
}
