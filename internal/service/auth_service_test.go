package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/itops-hq/asset-custody-api/internal/models"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type authRepoStub struct {
	user          *models.User
	lastLoginID   string
	lastLoginTime time.Time
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, sql.ErrNoRows
	}
	copy := *s.user
	return &copy, nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLoginID = id
	s.lastLoginTime = ts
	return nil
}

func authFixture(t *testing.T, password string, active bool) (*AuthService, *authRepoStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &authRepoStub{user: &models.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		FullName:     "Alice Zhang",
		Group:        "IT",
		Role:         models.RoleAdmin,
		Active:       active,
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "asset-custody-api",
	})
	return svc, repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo := authFixture(t, "s3cret!", true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "s3cret!",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, "user-1", resp.User.ID)
	require.Equal(t, "user-1", repo.lastLoginID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleAdmin, claims.Role)
	require.Equal(t, "IT", claims.Group)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := authFixture(t, "s3cret!", true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := authFixture(t, "s3cret!", true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "s3cret!",
	})
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, _ := authFixture(t, "s3cret!", false)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "s3cret!",
	})
	require.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceLoginInvalidPayload(t *testing.T) {
	svc, _ := authFixture(t, "s3cret!", true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	svc, _ := authFixture(t, "s3cret!", true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "s3cret!",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
