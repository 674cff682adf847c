package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/class1/class1-admin-api/internal/models"
)

type mockUserRepo struct {
	byID       map[string]*models.User
	byUsername map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[string]*models.User{}, byUsername: map[string]*models.User{}}
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := m.byUsername[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-1"
	}
	cp := *user
	m.byID[user.ID] = &cp
	m.byUsername[user.Username] = &cp
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if u, ok := m.byID[id]; ok {
		u.PasswordHash = passwordHash
		m.byUsername[u.Username] = u
	}
	return nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	return len(m.byID), nil
}

func authFixture(t *testing.T) (*AuthService, *mockUserRepo) {
	t.Helper()
	users := newMockUserRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse1"), bcrypt.MinCost)
	require.NoError(t, err)
	users.byUsername["manager"] = &models.User{ID: "u1", Username: "manager", PasswordHash: string(hash), Role: models.RoleAdmin}
	users.byID["u1"] = users.byUsername["manager"]
	svc := NewAuthService(users, "test-secret", time.Hour, "class1-admin-api", nil, nil)
	return svc, users
}

func TestAuthLoginAndValidate(t *testing.T) {
	svc, _ := authFixture(t)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "manager", Password: "correct-horse1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "manager", claims.Username)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "manager", Password: "wrong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid username or password")
}

func TestAuthLoginUnknownUser(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "whatever"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid username or password")
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}

func TestAuthChangePassword(t *testing.T) {
	svc, users := authFixture(t)

	err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		CurrentPassword: "correct-horse1",
		NewPassword:     "battery-staple2",
	})
	require.NoError(t, err)

	err = bcrypt.CompareHashAndPassword([]byte(users.byID["u1"].PasswordHash), []byte("battery-staple2"))
	assert.NoError(t, err)
}

func TestAuthChangePasswordWrongCurrent(t *testing.T) {
	svc, _ := authFixture(t)

	err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		CurrentPassword: "nope",
		NewPassword:     "battery-staple2",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current password is incorrect")
}

func TestAuthBootstrapAdminOnlyWhenEmpty(t *testing.T) {
	users := newMockUserRepo()
	svc := NewAuthService(users, "test-secret", time.Hour, "class1-admin-api", nil, nil)

	require.NoError(t, svc.EnsureBootstrapAdmin(context.Background(), "admin", "first-password"))
	assert.Len(t, users.byID, 1)

	// Second call must not add another account.
	require.NoError(t, svc.EnsureBootstrapAdmin(context.Background(), "admin2", "other-password"))
	assert.Len(t, users.byID, 1)
}

func TestAuthRegisterDuplicateUsername(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "manager", Password: "password123", Role: models.RoleInstructor,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username already taken")
}
