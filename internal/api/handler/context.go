package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/todoapp/todo-api/internal/api/middleware"
	"github.com/todoapp/todo-api/internal/core/domain"
)

// subjectID returns the authenticated user id injected by the Auth middleware.
// An empty id means the route was mounted without the middleware; the request
// fails closed instead of running unscoped.
func subjectID(c echo.Context) (string, error) {
	id := middleware.SubjectID(c)
	if id == "" {
		return "", domain.ErrUnauthenticated
	}
	return id, nil
}
