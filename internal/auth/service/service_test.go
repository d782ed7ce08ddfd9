package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dealflow_backend/internal/auth/repository"
	"dealflow_backend/internal/auth/token"
	"dealflow_backend/internal/auth/transport"
	"dealflow_backend/internal/events"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type storedToken struct {
	userID    uuid.UUID
	expiresAt time.Time
	revoked   bool
}

type fakeRepo struct {
	users  map[uuid.UUID]repository.User
	tokens map[string]*storedToken
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  make(map[uuid.UUID]repository.User),
		tokens: make(map[string]*storedToken),
	}
}

func (f *fakeRepo) addUser(email, password, role string, active bool) repository.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := repository.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test User",
		Role:         role,
		Active:       active,
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeRepo) CreateUser(_ context.Context, user repository.User) (repository.User, error) {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repository.User{}, apperr.Conflict("email already registered")
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = testNow
	user.UpdatedAt = testNow
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (repository.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, apperr.NotFound("user not found")
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeRepo) ListUsers(context.Context) ([]repository.User, error) {
	out := make([]repository.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRepo) ListActive(context.Context) ([]repository.User, error) {
	out := make([]repository.User, 0, len(f.users))
	for _, u := range f.users {
		if u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.PasswordHash = passwordHash
	f.users[id] = u
	return nil
}

func (f *fakeRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.Active = active
	f.users[id] = u
	return nil
}

func (f *fakeRepo) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.tokens[tokenHash] = &storedToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeRepo) GetRefreshToken(_ context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	t, ok := f.tokens[tokenHash]
	if !ok || t.revoked {
		return uuid.Nil, time.Time{}, apperr.NotFound("refresh token not found")
	}
	return t.userID, t.expiresAt, nil
}

func (f *fakeRepo) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	if t, ok := f.tokens[tokenHash]; ok {
		t.revoked = true
	}
	return nil
}

func (f *fakeRepo) RevokeAllRefreshTokens(_ context.Context, userID uuid.UUID) error {
	for _, t := range f.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

type fakeConfig struct{}

func (fakeConfig) GetJWTAccessSecret() string        { return "access-secret" }
func (fakeConfig) GetJWTRefreshSecret() string       { return "refresh-secret" }
func (fakeConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (fakeConfig) GetRefreshTokenTTL() time.Duration { return 168 * time.Hour }

func newTestService(repo *fakeRepo) (*Service, *events.InMemoryBus) {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	svc := New(repo, fakeConfig{}, bus, log)
	svc.now = func() time.Time { return testNow }
	return svc, bus
}

func TestRegisterDefaultsToAgent(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	user, err := svc.Register(context.Background(), transport.RegisterRequest{
		Email:    "Dana@Example.com ",
		Password: "Sup3rSecret",
		Name:     "Dana Cole",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != repository.RoleAgent {
		t.Fatalf("role = %q, want agent", user.Role)
	}
	if user.Email != "dana@example.com" {
		t.Fatalf("email = %q, want normalized", user.Email)
	}
	if !user.Active {
		t.Fatalf("new user should be active")
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAgent, true)
	svc, _ := newTestService(repo)

	_, err := svc.Register(context.Background(), transport.RegisterRequest{
		Email:    "dana@example.com",
		Password: "Sup3rSecret",
		Name:     "Dana Cole",
	})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestLoginIssuesAccessTokenClaims(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAdmin, true)
	svc, _ := newTestService(repo)

	tokens, err := svc.Login(context.Background(), "dana@example.com", "Sup3rSecret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("expiresIn = %d", tokens.ExpiresIn)
	}

	parsed, err := jwt.Parse(tokens.AccessToken, func(*jwt.Token) (any, error) {
		return []byte("access-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID.String() {
		t.Fatalf("sub = %v", claims["sub"])
	}
	if claims["type"] != "access" {
		t.Fatalf("type = %v", claims["type"])
	}
	roles, ok := claims["roles"].([]any)
	if !ok || len(roles) != 1 || roles[0] != repository.RoleAdmin {
		t.Fatalf("roles = %v", claims["roles"])
	}

	// Refresh token is stored hashed, never in the clear.
	if _, ok := repo.tokens[tokens.RefreshToken]; ok {
		t.Fatalf("refresh token stored in the clear")
	}
	if _, ok := repo.tokens[token.HashSHA256(tokens.RefreshToken)]; !ok {
		t.Fatalf("hashed refresh token not stored")
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAgent, true)
	svc, _ := newTestService(repo)

	_, err := svc.Login(context.Background(), "dana@example.com", "wrong")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if appErr.Message != invalidCredentialsMessage {
		t.Fatalf("message = %q, should not reveal whether the email exists", appErr.Message)
	}
}

func TestLoginDisabledAccountForbidden(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAgent, false)
	svc, _ := newTestService(repo)

	_, err := svc.Login(context.Background(), "dana@example.com", "Sup3rSecret")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAgent, true)
	svc, _ := newTestService(repo)

	first, err := svc.Login(context.Background(), "dana@example.com", "Sup3rSecret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}

	// The old token is revoked and cannot be replayed.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err == nil {
		t.Fatalf("expected replayed refresh token to fail")
	}
}

func TestRefreshExpiredTokenUnauthorized(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAgent, true)
	svc, _ := newTestService(repo)

	raw, _ := token.GenerateRandomToken(32)
	repo.tokens[token.HashSHA256(raw)] = &storedToken{
		userID:    user.ID,
		expiresAt: testNow.Add(-time.Hour),
	}

	_, err := svc.Refresh(context.Background(), raw)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAgent, true)
	svc, _ := newTestService(repo)

	tokens, err := svc.Login(context.Background(), "dana@example.com", "Sup3rSecret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), tokens.RefreshToken); err == nil {
		t.Fatalf("expected refresh after logout to fail")
	}
}

func TestSetActiveFalseRevokesSessions(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAgent, true)
	svc, _ := newTestService(repo)

	tokens, err := svc.Login(context.Background(), "dana@example.com", "Sup3rSecret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.SetActive(context.Background(), user.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), tokens.RefreshToken); err == nil {
		t.Fatalf("expected refresh for disabled account to fail")
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser("dana@example.com", "Sup3rSecret", repository.RoleAgent, true)
	svc, _ := newTestService(repo)

	err := svc.ChangePassword(context.Background(), user.ID, "wrong", "N3wPassword")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}

	if err := svc.ChangePassword(context.Background(), user.ID, "Sup3rSecret", "N3wPassword"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(context.Background(), "dana@example.com", "N3wPassword"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
