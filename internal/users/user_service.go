package users

import (
	"context"
	"slices"
	"strings"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"
)

type WarehouseFinder interface {
	GetWarehouse(ctx context.Context, id int) (*models.Warehouse, error)
}

type UserService struct {
	repository         UserRepository
	warehouses         WarehouseFinder
	defaultWarehouseID int
}

func NewService(r UserRepository, w WarehouseFinder, defaultWarehouseID int) *UserService {
	return &UserService{repository: r, warehouses: w, defaultWarehouseID: defaultWarehouseID}
}

func (s *UserService) List(ctx context.Context, actor roles.Actor) ([]models.User, error) {
	if !actor.Role.HasPermission(roles.Moderator) {
		return nil, custom_error.Forbidden("%s is not allowed to list users", actor.DisplayName())
	}
	return s.repository.GetUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, actor roles.Actor, id int) (*models.User, error) {
	if actor.UserID != id && !actor.Role.HasPermission(roles.Moderator) {
		return nil, custom_error.Forbidden("%s is not allowed to view other users", actor.DisplayName())
	}
	return s.repository.GetUser(ctx, id)
}

func (s *UserService) Me(ctx context.Context, actor roles.Actor) (*models.User, error) {
	return s.repository.GetUser(ctx, actor.UserID)
}

// Create registers an active user with access to the default warehouse.
func (s *UserService) Create(ctx context.Context, actor roles.Actor, req models.CreateUserRequest) (*models.User, error) {
	if !actor.IsStaff() {
		return nil, custom_error.Forbidden("%s is not allowed to create users", actor.DisplayName())
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, custom_error.Invariant("username is required")
	}
	role := roles.Role(req.Role)
	if !role.IsValid() {
		return nil, custom_error.Invariant("invalid role: %s", req.Role)
	}
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Fullname:     strings.TrimSpace(req.Fullname),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repository.PersistUser(ctx, user, []int{s.defaultWarehouseID}); err != nil {
		return nil, err
	}
	return user, nil
}

// Update lets staff change anything; users may change their own name and password.
func (s *UserService) Update(ctx context.Context, actor roles.Actor, id int, req models.UpdateUserRequest) (*models.User, error) {
	self := actor.UserID == id
	if !self && !actor.IsStaff() {
		return nil, custom_error.Forbidden("%s is not allowed to edit other users", actor.DisplayName())
	}
	if !actor.IsStaff() && (req.Role != nil || req.IsActive != nil) {
		return nil, custom_error.Forbidden("%s is not allowed to change roles or activity", actor.DisplayName())
	}

	user, err := s.repository.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Fullname != nil {
		user.Fullname = strings.TrimSpace(*req.Fullname)
	}
	if req.Role != nil {
		role := roles.Role(*req.Role)
		if !role.IsValid() {
			return nil, custom_error.Invariant("invalid role: %s", *req.Role)
		}
		if self && role != user.Role {
			return nil, custom_error.Invariant("you cannot change your own role")
		}
		user.Role = role
	}
	if req.IsActive != nil {
		if self && !*req.IsActive {
			return nil, custom_error.Invariant("you cannot deactivate yourself")
		}
		user.IsActive = *req.IsActive
	}
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < 6 {
			return nil, custom_error.Invariant("password must be at least 6 characters long")
		}
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.repository.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) SetGrants(ctx context.Context, actor roles.Actor, id int, req models.UserGrantsRequest) (*models.User, error) {
	if !actor.IsStaff() {
		return nil, custom_error.Forbidden("%s is not allowed to grant capabilities", actor.DisplayName())
	}
	grants := make([]roles.Capability, 0, len(req.Capabilities))
	for _, value := range req.Capabilities {
		capability, err := roles.NewCapability(value)
		if err != nil {
			return nil, custom_error.Invariant("%s", err.Error())
		}
		if !slices.Contains(grants, capability) {
			grants = append(grants, capability)
		}
	}

	if _, err := s.repository.GetUser(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repository.SetGrants(ctx, id, grants); err != nil {
		return nil, err
	}
	return s.repository.GetUser(ctx, id)
}

func (s *UserService) SetWarehouses(ctx context.Context, actor roles.Actor, id int, req models.UserWarehousesRequest) (*models.User, error) {
	if !actor.IsStaff() {
		return nil, custom_error.Forbidden("%s is not allowed to change warehouse access", actor.DisplayName())
	}
	ids := make([]int, 0, len(req.WarehouseIDs))
	for _, warehouseID := range req.WarehouseIDs {
		if slices.Contains(ids, warehouseID) {
			continue
		}
		if _, err := s.warehouses.GetWarehouse(ctx, warehouseID); err != nil {
			return nil, err
		}
		ids = append(ids, warehouseID)
	}

	if _, err := s.repository.GetUser(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repository.SetWarehouses(ctx, id, ids); err != nil {
		return nil, err
	}
	return s.repository.GetUser(ctx, id)
}
