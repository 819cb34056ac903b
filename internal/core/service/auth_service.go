package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/todo-api/internal/core/domain"
	"github.com/todoapp/todo-api/internal/core/ports"
	"github.com/todoapp/todo-api/internal/pkg/metrics"
)

// DefaultBcryptCost is the work factor used for password hashes.
const DefaultBcryptCost = 12

// AuthService implements registration, login, and profile lookup.
type AuthService struct {
	repo      ports.UserRepository
	tokens    ports.TokenIssuer
	logger    zerolog.Logger
	cost      int
	dummyHash []byte
	now       func() time.Time
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost overrides the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenIssuer, logger zerolog.Logger, opts ...AuthOption) (*AuthService, error) {
	s := &AuthService{
		repo:   repo,
		tokens: tokens,
		logger: logger,
		cost:   DefaultBcryptCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Compared against on unknown usernames so both failure paths cost one hash.
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user and returns a session token for it. A username or
// email that is already taken yields domain.ErrUserExists and creates nothing.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*ports.AuthResult, error) {
	username, email = normalizeUsername(username), normalizeEmail(email)
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}

	existing, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil && existing != nil:
		metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeDuplicate).Inc()
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeError).Inc()
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		// The unique index still wins a race the pre-check lost.
		if errors.Is(err, domain.ErrUserExists) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeDuplicate).Inc()
		} else {
			metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeError).Inc()
		}
		return nil, err
	}

	result, err := s.issue(created)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeError).Inc()
		return nil, err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeSuccess).Inc()
	s.logger.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return result, nil
}

// Login verifies the password for username. An unknown username and a wrong
// password both return domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	username = normalizeUsername(username)

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.OutcomeInvalidCredentials).Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.OutcomeError).Inc()
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.OutcomeInvalidCredentials).Inc()
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.OutcomeError).Inc()
		return nil, err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.OutcomeSuccess).Inc()
	s.logger.Debug().Str("user_id", user.ID).Msg("user logged in")
	return result, nil
}

// Me returns the redacted profile of subjectID.
func (s *AuthService) Me(ctx context.Context, subjectID string) (*domain.PublicUser, error) {
	user, err := s.repo.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}
