package domain

import "errors"

var (
	// ErrUserExists is returned when a username or email is already registered.
	ErrUserExists = errors.New("username or email is already in use")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated is returned for a missing, malformed, or expired token.
	ErrUnauthenticated = errors.New("authentication required")
	ErrUserNotFound    = errors.New("user not found")
	// ErrTodoNotFound is also returned when the todo belongs to another user.
	ErrTodoNotFound = errors.New("todo not found")
	ErrInvalidTodo  = errors.New("todo text must be between 1 and 500 characters")
	// ErrInvalidUsername is returned for a username that is blank once trimmed.
	ErrInvalidUsername = errors.New("username is required")
	// ErrIdempotencyInProgress is returned while another request holding the
	// same Idempotency-Key is still creating its todo.
	ErrIdempotencyInProgress = errors.New("a request with this Idempotency-Key is still in progress")
)
