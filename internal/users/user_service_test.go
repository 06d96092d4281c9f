package users

import (
	"context"
	"testing"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateUser(t *testing.T) {
	stored := func() *models.User {
		return &models.User{ID: 2, Username: "worker", Fullname: "Old Name", Role: roles.User, IsActive: true, PasswordHash: "old"}
	}

	tests := []struct {
		name    string
		actor   roles.Actor
		userID  int
		req     models.UpdateUserRequest
		updates bool
		want    error
		check   func(t *testing.T, u *models.User)
	}{
		{
			name:    "staff changes role and activity",
			actor:   adminActor,
			userID:  2,
			req:     models.UpdateUserRequest{Role: strPtr("moderator"), IsActive: boolPtr(false)},
			updates: true,
			check: func(t *testing.T, u *models.User) {
				assert.Equal(t, roles.Moderator, u.Role)
				assert.False(t, u.IsActive)
			},
		},
		{
			name:    "user renames self and changes password",
			actor:   userActor,
			userID:  2,
			req:     models.UpdateUserRequest{Fullname: strPtr(" New Name "), Password: strPtr("secret99")},
			updates: true,
			check: func(t *testing.T, u *models.User) {
				assert.Equal(t, "New Name", u.Fullname)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret99")))
			},
		},
		{
			name:   "user promotes self",
			actor:  userActor,
			userID: 2,
			req:    models.UpdateUserRequest{Role: strPtr("admin")},
			want:   custom_error.ErrForbidden,
		},
		{
			name:   "user edits someone else",
			actor:  userActor,
			userID: 3,
			req:    models.UpdateUserRequest{Fullname: strPtr("X")},
			want:   custom_error.ErrForbidden,
		},
		{
			name:   "invalid role",
			actor:  adminActor,
			userID: 2,
			req:    models.UpdateUserRequest{Role: strPtr("root")},
			want:   custom_error.ErrInvariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			repo.On("GetUser", 2).Return(stored(), nil).Maybe()
			if tt.updates {
				repo.On("UpdateUser", mock.Anything).Return(nil).Once()
			}
			service := NewService(repo, new(MockWarehouseFinder), defaultWarehouse)

			user, err := service.Update(context.Background(), tt.actor, tt.userID, tt.req)

			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				repo.AssertNotCalled(t, "UpdateUser", mock.Anything)
				return
			}
			require.NoError(t, err)
			tt.check(t, user)
			repo.AssertExpectations(t)
		})
	}
}

func TestAdminCannotLockThemselvesOut(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetUser", 1).Return(&models.User{ID: 1, Username: "admin", Role: roles.Admin, IsActive: true}, nil)
	service := NewService(repo, new(MockWarehouseFinder), defaultWarehouse)

	_, err := service.Update(context.Background(), adminActor, 1, models.UpdateUserRequest{IsActive: boolPtr(false)})
	assert.ErrorIs(t, err, custom_error.ErrInvariant)

	_, err = service.Update(context.Background(), adminActor, 1, models.UpdateUserRequest{Role: strPtr("user")})
	assert.ErrorIs(t, err, custom_error.ErrInvariant)
}

func TestSetGrants(t *testing.T) {
	repo := new(MockUserRepository)
	granted := &models.User{ID: 2, Role: roles.User, Grants: []roles.Capability{roles.CapIssue, roles.CapReceive}}
	repo.On("GetUser", 2).Return(granted, nil)
	repo.On("SetGrants", 2, []roles.Capability{roles.CapIssue, roles.CapReceive}).Return(nil).Once()
	service := NewService(repo, new(MockWarehouseFinder), defaultWarehouse)

	user, err := service.SetGrants(context.Background(), adminActor, 2, models.UserGrantsRequest{
		Capabilities: []string{"issue", "receive", "issue"},
	})

	require.NoError(t, err)
	assert.Equal(t, granted.Grants, user.Grants)
	repo.AssertExpectations(t)

	_, err = service.SetGrants(context.Background(), adminActor, 2, models.UserGrantsRequest{Capabilities: []string{"fly"}})
	assert.ErrorIs(t, err, custom_error.ErrInvariant)

	_, err = service.SetGrants(context.Background(), userActor, 2, models.UserGrantsRequest{Capabilities: []string{"issue"}})
	assert.ErrorIs(t, err, custom_error.ErrForbidden)
}

func TestSetWarehouses(t *testing.T) {
	repo := new(MockUserRepository)
	warehouses := new(MockWarehouseFinder)
	warehouses.On("GetWarehouse", 1).Return(&models.Warehouse{ID: 1, Name: "Main"}, nil)
	warehouses.On("GetWarehouse", 4).Return(nil, custom_error.NotFound("warehouse 4 not found"))
	repo.On("GetUser", 2).Return(&models.User{ID: 2, Warehouses: []int{1}}, nil)
	repo.On("SetWarehouses", 2, []int{1}).Return(nil).Once()
	service := NewService(repo, warehouses, defaultWarehouse)

	user, err := service.SetWarehouses(context.Background(), adminActor, 2, models.UserWarehousesRequest{WarehouseIDs: []int{1, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, user.Warehouses)

	_, err = service.SetWarehouses(context.Background(), adminActor, 2, models.UserWarehousesRequest{WarehouseIDs: []int{1, 4}})
	assert.ErrorIs(t, err, custom_error.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestListUsersRequiresModerator(t *testing.T) {
	repo := new(MockUserRepository)
	service := NewService(repo, new(MockWarehouseFinder), defaultWarehouse)

	_, err := service.List(context.Background(), userActor)

	assert.ErrorIs(t, err, custom_error.ErrForbidden)
	repo.AssertNotCalled(t, "GetUsers")
}
