package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/todo-api/internal/core/domain"
	"github.com/todoapp/todo-api/internal/pkg/metrics"
	"github.com/todoapp/todo-api/internal/pkg/token"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	nextID  int
	findErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// Create enforces uniqueness the way the storage indexes do.
func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = "user-" + strconv.Itoa(r.nextID)
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// racingUserRepo hides existing users from the pre-check, like a concurrent
// registration that lands between the check and the insert.
type racingUserRepo struct{ *stubUserRepo }

func (r racingUserRepo) FindByUsernameOrEmail(context.Context, string, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func newTestTokens(t *testing.T) *token.Manager {
	t.Helper()
	m, err := token.NewManager("secret", 24*time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return m
}

func newTestAuthService(t *testing.T, repo *stubUserRepo) (*AuthService, *token.Manager) {
	t.Helper()
	tokens := newTestTokens(t)
	svc, err := NewAuthService(repo, tokens, zerolog.Nop(), WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, tokens
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(t, repo)

	res, err := svc.Register(context.Background(), "alice", "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token")
	}
	if res.User.Username != "alice" || res.User.Email != "a@x.com" || res.User.ID == "" {
		t.Fatalf("unexpected user: %+v", res.User)
	}

	sub, err := tokens.Verify(res.Token)
	if err != nil || sub != res.User.ID {
		t.Fatalf("token does not verify to new user: sub=%q err=%v", sub, err)
	}

	stored, _ := repo.FindByID(context.Background(), res.User.ID)
	if stored.PasswordHash == "pw1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_NormalizesInput(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)

	res, err := svc.Register(context.Background(), "  alice ", " A@X.com ", "pw1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.User.Username != "alice" || res.User.Email != "a@x.com" {
		t.Fatalf("expected normalized user, got %+v", res.User)
	}
}

func TestAuthService_Register_RejectsBlankUsername(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)

	for _, username := range []string{"", "   ", "\t\n"} {
		_, err := svc.Register(context.Background(), username, "b@x.com", "pw1")
		if !errors.Is(err, domain.ErrInvalidUsername) {
			t.Fatalf("username %q: expected ErrInvalidUsername, got %v", username, err)
		}
	}
	if repo.count() != 0 {
		t.Fatalf("expected no user to be created, got %d", repo.count())
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"same username", "alice", "other@x.com"},
		{"same email", "alicia", "a@x.com"},
		{"same email different case", "alicia", "A@X.COM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubUserRepo()
			svc, _ := newTestAuthService(t, repo)

			if _, err := svc.Register(context.Background(), "alice", "a@x.com", "pw1"); err != nil {
				t.Fatalf("first register failed: %v", err)
			}
			before := testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeDuplicate))

			_, err := svc.Register(context.Background(), tt.username, tt.email, "pw2")
			if !errors.Is(err, domain.ErrUserExists) {
				t.Fatalf("expected ErrUserExists, got %v", err)
			}
			if repo.count() != 1 {
				t.Fatalf("expected no new record, got %d users", repo.count())
			}
			after := testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("register", metrics.OutcomeDuplicate))
			if after != before+1 {
				t.Fatalf("expected duplicate counter to increase")
			}
		})
	}
}

func TestAuthService_Register_StorageConstraintWinsRace(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)
	if _, err := svc.Register(context.Background(), "alice", "a@x.com", "pw1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	racing, err := NewAuthService(racingUserRepo{repo}, newTestTokens(t), zerolog.Nop(), WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	if _, err := racing.Register(context.Background(), "alice", "a@x.com", "pw1"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists from storage constraint, got %v", err)
	}
	if repo.count() != 1 {
		t.Fatalf("expected a single user, got %d", repo.count())
	}
}

func TestAuthService_Register_StoreFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("connection reset")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), "alice", "a@x.com", "pw1")
	if err == nil || errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(t, repo)

	reg, err := svc.Register(context.Background(), "alice", "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	res, err := svc.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.User != reg.User {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	sub, err := tokens.Verify(res.Token)
	if err != nil || sub != reg.User.ID {
		t.Fatalf("login token does not verify to user: sub=%q err=%v", sub, err)
	}
}

func TestAuthService_Login_DoesNotRevealAccountExistence(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)
	if _, err := svc.Register(context.Background(), "alice", "a@x.com", "pw1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, wrongPassword := svc.Login(context.Background(), "alice", "nope")
	_, unknownUser := svc.Login(context.Background(), "mallory", "pw1")

	if !errors.Is(wrongPassword, domain.ErrInvalidCredentials) || !errors.Is(unknownUser, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("error messages differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestAuthService_Login_StoreFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("timeout")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Login(context.Background(), "alice", "pw1")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)
	reg, err := svc.Register(context.Background(), "alice", "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	me, err := svc.Me(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if *me != reg.User {
		t.Fatalf("unexpected profile: %+v", me)
	}

	if _, err := svc.Me(context.Background(), "user-gone"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
