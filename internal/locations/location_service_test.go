package locations

import (
	"context"
	"testing"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/inventorytest"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetWarehouse(ctx context.Context, id int) (*models.Warehouse, error) {
	args := m.Called(id)
	w, _ := args.Get(0).(*models.Warehouse)
	return w, args.Error(1)
}

func (m *MockRepository) ListWarehouses(ctx context.Context, ids []int) ([]models.Warehouse, error) {
	args := m.Called(ids)
	list, _ := args.Get(0).([]models.Warehouse)
	return list, args.Error(1)
}

func (m *MockRepository) InsertWarehouse(ctx context.Context, w *models.Warehouse) error {
	args := m.Called(w)
	if args.Error(0) == nil {
		w.ID = 5
	}
	return args.Error(0)
}

func (m *MockRepository) UpdateWarehouse(ctx context.Context, w *models.Warehouse) error {
	return m.Called(w).Error(0)
}

func (m *MockRepository) DeleteWarehouse(ctx context.Context, id int) error {
	return m.Called(id).Error(0)
}

const defaultWarehouse = 1

var (
	admin     = roles.Actor{UserID: 1, Username: "admin", Role: roles.Admin}
	moderator = roles.Actor{UserID: 2, Username: "shift", Role: roles.Moderator, Warehouses: []int{defaultWarehouse}}
)

func newService(repo *MockRepository) (*LocationService, *inventorytest.MemStore) {
	store := inventorytest.NewMemStore()
	return NewLocationService(repo, store, store, defaultWarehouse), store
}

func TestListWarehousesScopedForNonStaff(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListWarehouses", []int{defaultWarehouse}).Return([]models.Warehouse{{ID: 1, Name: "Main"}}, nil).Once()
	repo.On("ListWarehouses", []int(nil)).Return([]models.Warehouse{{ID: 1, Name: "Main"}, {ID: 2, Name: "Site"}}, nil).Once()
	service, _ := newService(repo)

	scoped, err := service.List(context.Background(), moderator)
	require.NoError(t, err)
	assert.Len(t, scoped, 1)

	all, err := service.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	repo.AssertExpectations(t)
}

func TestWarehouseItems(t *testing.T) {
	repo := new(MockRepository)
	service, store := newService(repo)
	main := store.AddWarehouse("Main")
	site := store.AddWarehouse("Site")
	repo.On("GetWarehouse", main.ID).Return(&main, nil)

	drill := store.AddNomenclature(models.Nomenclature{Name: "Drill", ItemType: metadata.ItemTool})
	gloves := store.AddNomenclature(models.Nomenclature{Name: "Gloves", ItemType: metadata.ItemConsumable})
	store.AddTool(models.ToolInstance{Nomenclature: drill, InventoryID: "SN-1", Status: metadata.ToolInStock, Location: models.AtWarehouse(main.ID)})
	store.AddTool(models.ToolInstance{Nomenclature: drill, InventoryID: "SN-2", Status: metadata.ToolInStock, Location: models.AtWarehouse(site.ID)})
	store.AddBalance(models.ConsumableBalance{Nomenclature: gloves, Quantity: 12, Location: models.AtWarehouse(main.ID)})

	items, err := service.Items(context.Background(), admin, main.ID)

	require.NoError(t, err)
	assert.Equal(t, "Main", items.Warehouse.Name)
	require.Len(t, items.Tools, 1)
	assert.Equal(t, "SN-1", items.Tools[0].InventoryID)
	require.Len(t, items.Consumables, 1)
	assert.Equal(t, 12, items.Consumables[0].Quantity)
}

func TestWarehouseItemsOutsideScope(t *testing.T) {
	repo := new(MockRepository)
	service, _ := newService(repo)

	_, err := service.Items(context.Background(), moderator, 9)

	assert.ErrorIs(t, err, custom_error.ErrForbidden)
	repo.AssertNotCalled(t, "GetWarehouse", mock.Anything)
}

func TestCreateWarehouse(t *testing.T) {
	address := "Industrial st. 4"
	repo := new(MockRepository)
	repo.On("InsertWarehouse", &models.Warehouse{Name: "Site", Address: &address}).Return(nil).Once()
	service, _ := newService(repo)

	w, err := service.Create(context.Background(), admin, models.WarehouseRequest{Name: " Site ", Address: &address})

	require.NoError(t, err)
	assert.Equal(t, 5, w.ID)

	_, err = service.Create(context.Background(), moderator, models.WarehouseRequest{Name: "Other"})
	assert.ErrorIs(t, err, custom_error.ErrForbidden)
	repo.AssertExpectations(t)
}

func TestDeleteWarehouse(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		repoErr error
		want    custom_error.Kind
	}{
		{name: "unused", id: 2},
		{name: "default", id: defaultWarehouse, want: custom_error.KindInvariant},
		{name: "still referenced", id: 3, repoErr: custom_error.WrapDBError("Warehouse still holds stock or kits", "23503"), want: custom_error.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.id != defaultWarehouse {
				repo.On("DeleteWarehouse", tt.id).Return(tt.repoErr).Once()
			}
			service, _ := newService(repo)

			err := service.Delete(context.Background(), admin, tt.id)

			if tt.want == 0 {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.want, custom_error.Classify(err))
			}
			repo.AssertExpectations(t)
		})
	}
}
