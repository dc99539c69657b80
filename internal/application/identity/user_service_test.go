package identity

import (
	"context"
	"testing"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo, zap.NewNop())

	user, err := identity.NewUser("Jane", "jane@example.com", "secret1")
	require.NoError(t, err)
	repo.On("FindAll", ctx, mock.MatchedBy(func(f identity.UserFilter) bool {
		return f.Page == 1 && f.PageSize == defaultUserPageSize &&
			f.Role != nil && *f.Role == identity.RoleAdmin && f.Status == nil && f.Search == "jane"
	})).Return([]*identity.User{user}, int64(51), nil)

	result, err := svc.List(ctx, AdminUserQuery{Role: "admin", Q: " jane "})
	require.NoError(t, err)
	require.Len(t, result.Users, 1)
	assert.Equal(t, 2, result.TotalPages)
	assert.Equal(t, "jane@example.com", result.Users[0].Email)
}

func TestUserService_RoleAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo, zap.NewNop())

	user, err := identity.NewUser("Jane", "jane@example.com", "secret1")
	require.NoError(t, err)
	repo.On("FindByID", ctx, user.ID).Return(user, nil)
	repo.On("Update", ctx, user).Return(nil)

	resp, err := svc.ChangeRole(ctx, user.ID, ChangeRoleRequest{Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Role)

	_, err = svc.ChangeRole(ctx, user.ID, ChangeRoleRequest{Role: "owner"})
	assert.Equal(t, "INVALID_ROLE", domainCode(t, err))

	resp, err = svc.ChangeStatus(ctx, user.ID, ChangeStatusRequest{Status: "suspended"})
	require.NoError(t, err)
	assert.Equal(t, "suspended", resp.Status)
	repo.AssertNumberOfCalls(t, "Update", 2)
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo, zap.NewNop())

	user, err := identity.NewUser("Jane", "jane@example.com", "secret1")
	require.NoError(t, err)
	repo.On("FindByID", ctx, user.ID).Return(user, nil)

	t.Run("email collision surfaces the repository error", func(t *testing.T) {
		taken := shared.NewDomainError("EMAIL_TAKEN", "Email is already in use")
		repo.On("Update", ctx, user).Return(taken).Once()

		_, err := svc.Update(ctx, user.ID, AdminUpdateUserRequest{Email: "other@example.com"})
		assert.Equal(t, "EMAIL_TAKEN", domainCode(t, err))
	})

	t.Run("overwrites provided fields", func(t *testing.T) {
		repo.On("Update", ctx, user).Return(nil).Once()

		resp, err := svc.Update(ctx, user.ID, AdminUpdateUserRequest{
			Name:    "Jane Admin",
			Address: &valueobject.AddressDTO{Street: "9 Elm", City: "Ogdenville"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Jane Admin", resp.Name)
		assert.Equal(t, "Ogdenville", resp.Address.City)
	})
}
