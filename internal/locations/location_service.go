package locations

import (
	"context"
	"slices"
	"strings"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/consumables"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/tools"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
)

type LocationService struct {
	repository         Repository
	tools              tools.Repository
	balances           consumables.Repository
	defaultWarehouseID int
}

func NewLocationService(r Repository, t tools.Repository, b consumables.Repository, defaultWarehouseID int) *LocationService {
	return &LocationService{repository: r, tools: t, balances: b, defaultWarehouseID: defaultWarehouseID}
}

// List returns the warehouses the actor may work with.
func (s *LocationService) List(ctx context.Context, actor roles.Actor) ([]models.Warehouse, error) {
	return s.repository.ListWarehouses(ctx, actor.AllowedWarehouses())
}

func (s *LocationService) Get(ctx context.Context, actor roles.Actor, id int) (*models.Warehouse, error) {
	if err := s.checkAccess(actor, id); err != nil {
		return nil, err
	}
	return s.repository.GetWarehouse(ctx, id)
}

func (s *LocationService) Items(ctx context.Context, actor roles.Actor, id int) (*models.WarehouseItems, error) {
	if err := s.checkAccess(actor, id); err != nil {
		return nil, err
	}
	w, err := s.repository.GetWarehouse(ctx, id)
	if err != nil {
		return nil, err
	}

	here := []int{id}
	toolsHere, err := s.tools.ListTools(ctx, nil, models.ToolFilter{WarehouseIDs: here})
	if err != nil {
		return nil, err
	}
	balances, err := s.balances.ListBalances(ctx, nil, models.BalanceFilter{WarehouseIDs: here})
	if err != nil {
		return nil, err
	}
	return &models.WarehouseItems{Warehouse: *w, Tools: toolsHere, Consumables: balances}, nil
}

func (s *LocationService) Create(ctx context.Context, actor roles.Actor, req models.WarehouseRequest) (*models.Warehouse, error) {
	if err := roles.Require(actor, roles.CapManageWarehouses); err != nil {
		return nil, err
	}
	w := &models.Warehouse{}
	if err := apply(w, req); err != nil {
		return nil, err
	}
	if err := s.repository.InsertWarehouse(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *LocationService) Update(ctx context.Context, actor roles.Actor, id int, req models.WarehouseRequest) (*models.Warehouse, error) {
	if err := roles.Require(actor, roles.CapManageWarehouses); err != nil {
		return nil, err
	}
	w := &models.Warehouse{ID: id}
	if err := apply(w, req); err != nil {
		return nil, err
	}
	if err := s.repository.UpdateWarehouse(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *LocationService) Delete(ctx context.Context, actor roles.Actor, id int) error {
	if err := roles.Require(actor, roles.CapManageWarehouses); err != nil {
		return err
	}
	if id == s.defaultWarehouseID {
		return custom_error.Invariant("the default warehouse cannot be deleted")
	}
	return s.repository.DeleteWarehouse(ctx, id)
}

func (s *LocationService) checkAccess(actor roles.Actor, id int) error {
	allowed := actor.AllowedWarehouses()
	if allowed != nil && !slices.Contains(allowed, id) {
		return custom_error.Forbidden("%s has no access to warehouse %d", actor.DisplayName(), id)
	}
	return nil
}

func apply(w *models.Warehouse, req models.WarehouseRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return custom_error.Invariant("warehouse name is required")
	}
	w.Name = name
	w.Address = req.Address
	return nil
}
