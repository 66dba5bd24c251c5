package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type userStoreStub struct {
	users       map[string]*models.User
	createErr   error
	created     *models.User
	updated     *models.User
	deactivated string
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{users: make(map[string]*models.User)}
}

func (s *userStoreStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	if user.ID == "" {
		user.ID = "user-1"
	}
	s.created = user
	s.users[user.ID] = user
	return nil
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (s *userStoreStub) Update(ctx context.Context, user *models.User) error {
	s.updated = user
	s.users[user.ID] = user
	return nil
}

func (s *userStoreStub) Deactivate(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	s.deactivated = id
	return nil
}

func TestUserServiceCreateDefaults(t *testing.T) {
	store := newUserStoreStub()
	svc := NewUserService(store, nil)

	user, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:    " Alice@Example.COM ",
		Password: "s3cret!",
		FullName: "Alice Zhang",
		Group:    "IT",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, models.RoleUser, user.Role)
	require.True(t, user.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret!")))
}

func TestUserServiceCreateInvalidRole(t *testing.T) {
	svc := NewUserService(newUserStoreStub(), nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "s3cret!",
		Role:     models.UserRole("SUPERUSER"),
	})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	store := newUserStoreStub()
	store.createErr = repository.ErrDuplicateEmail
	svc := NewUserService(store, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "s3cret!",
	})
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestUserServiceUpdate(t *testing.T) {
	store := newUserStoreStub()
	store.users["user-1"] = activeUser("user-1")
	svc := NewUserService(store, nil)

	name := "  Alice Zhang  "
	role := models.RoleAdmin
	user, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{
		FullName: &name,
		Role:     &role,
	})
	require.NoError(t, err)
	require.Equal(t, "Alice Zhang", user.FullName)
	require.Equal(t, models.RoleAdmin, user.Role)
}

func TestUserServiceUpdateShortPassword(t *testing.T) {
	store := newUserStoreStub()
	store.users["user-1"] = activeUser("user-1")
	svc := NewUserService(store, nil)

	short := "abc"
	_, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{Password: &short})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceUpdateMissing(t *testing.T) {
	svc := NewUserService(newUserStoreStub(), nil)

	name := "Nobody"
	_, err := svc.Update(context.Background(), "user-404", dto.UpdateUserRequest{FullName: &name})
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceDeactivate(t *testing.T) {
	store := newUserStoreStub()
	store.users["user-1"] = activeUser("user-1")
	svc := NewUserService(store, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "user-1"))
	require.Equal(t, "user-1", store.deactivated)
}

func TestUserServiceListPaginationDefaults(t *testing.T) {
	store := newUserStoreStub()
	store.users["user-1"] = activeUser("user-1")
	svc := NewUserService(store, nil)

	_, pagination, err := svc.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 20, pagination.PageSize)
	require.Equal(t, 1, pagination.TotalCount)
}
