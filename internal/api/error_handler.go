package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/todoapp/todo-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors
// to status codes and renders {"message": "..."}. Unexpected errors are
// logged and answered with a generic 500 so internals never reach the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Message: msg})
	}
}

// domainErrors maps sentinels to status codes. The sentinel's own text is
// sent, never the wrapped chain.
var domainErrors = []struct {
	err  error
	code int
}{
	{domain.ErrUserExists, http.StatusBadRequest},
	{domain.ErrInvalidCredentials, http.StatusBadRequest},
	{domain.ErrInvalidTodo, http.StatusBadRequest},
	{domain.ErrInvalidUsername, http.StatusBadRequest},
	{domain.ErrIdempotencyInProgress, http.StatusConflict},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrTodoNotFound, http.StatusNotFound},
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, unknown routes, auth middleware).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil && he.Code >= http.StatusInternalServerError {
			log.Error().Err(he.Internal).Str("path", c.Path()).Msg("http error")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return m.code, m.err.Error()
		}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
