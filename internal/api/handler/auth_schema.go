package handler

import (
	"time"

	"github.com/todoapp/todo-api/internal/core/domain"
	"github.com/todoapp/todo-api/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Message string `json:"message"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	// bcrypt ignores input past 72 bytes.
	Password string `json:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// userResponse never carries credential fields.
type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func toUserResponse(u domain.PublicUser) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

func toAuthResponse(r *ports.AuthResult) authResponse {
	return authResponse{
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt.UTC(),
		User:      toUserResponse(r.User),
	}
}
