package ports

import (
	"context"
	"time"

	"github.com/todoapp/todo-api/internal/core/domain"
)

// TokenIssuer mints session tokens for a subject.
type TokenIssuer interface {
	Issue(subjectID string) (token string, expiresAt time.Time, err error)
}

// AuthResult is returned by successful registration and login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.PublicUser
}

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	// Me returns the redacted profile of the authenticated subject.
	Me(ctx context.Context, subjectID string) (*domain.PublicUser, error)
}
