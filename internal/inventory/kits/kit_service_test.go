package kits

import (
	"context"
	"testing"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/inventorytest"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/ledger"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/placement"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store     *inventorytest.MemStore
	relocator *placement.Relocator
	service   *KitService
	main      models.Warehouse
	spare     models.Warehouse
	ivanov    models.User
	petrov    models.User
	drill     models.Nomenclature
	gloves    models.Nomenclature
	admin     roles.Actor
}

func newFixture() *fixture {
	store := inventorytest.NewMemStore()
	f := &fixture{store: store}
	f.main = store.AddWarehouse("Main")
	f.spare = store.AddWarehouse("Spare")
	f.ivanov = store.AddUser(models.User{Username: "ivanov", Fullname: "Ivan Ivanov", Role: roles.User, IsActive: true})
	f.petrov = store.AddUser(models.User{Username: "petrov", Fullname: "Petr Petrov", Role: roles.User, IsActive: true})
	f.drill = store.AddNomenclature(models.Nomenclature{Name: "Drill", Article: "D-200", ItemType: metadata.ItemTool})
	f.gloves = store.AddNomenclature(models.Nomenclature{Name: "Gloves", Article: "G-100", ItemType: metadata.ItemConsumable})
	admin := store.AddUser(models.User{Username: "keeper", Fullname: "Store Keeper", Role: roles.Admin, IsActive: true})
	f.admin = admin.Actor()

	l := ledger.New(store, nil, zap.NewNop())
	f.relocator = placement.NewRelocator(store, store, store, l)
	f.service = NewService(Dependencies{
		Transactor: store,
		Kits:       store,
		Tools:      store,
		Balances:   store,
		Relocator:  f.relocator,
		Ledger:     l,
		Users:      store,
		Warehouses: store,
	})
	return f
}

func (f *fixture) kit() models.ToolKit {
	return f.store.AddKit(models.ToolKit{Name: "Electrician Case", WarehouseID: f.main.ID})
}

func (f *fixture) tool(serial string, loc models.Location, kitID *int) models.ToolInstance {
	status := metadata.ToolInStock
	if !loc.Is(models.LocationWarehouse) {
		status = metadata.ToolIssued
	}
	return f.store.AddTool(models.ToolInstance{
		Nomenclature: f.drill, InventoryID: serial, Condition: metadata.ConditionNew,
		Status: status, Location: loc, KitID: kitID,
	})
}

func (f *fixture) balance(qty int, loc models.Location, kitID *int) models.ConsumableBalance {
	return f.store.AddBalance(models.ConsumableBalance{Nomenclature: f.gloves, Quantity: qty, Location: loc, KitID: kitID})
}

func TestIssueMovesSelectionAndStowsTheRest(t *testing.T) {
	f := newFixture()
	kit := f.kit()
	home := models.AtWarehouse(f.main.ID)
	first := f.tool("SN-001", home, &kit.ID)
	second := f.tool("SN-002", home, &kit.ID)
	stock := f.balance(10, home, &kit.ID)

	entry, err := f.service.Issue(context.Background(), f.admin, kit.ID, models.KitIssueRequest{
		UserID:     f.ivanov.ID,
		ToolIDs:    []int{first.ID},
		BalanceIDs: []int{stock.ID},
	})
	require.NoError(t, err)

	stored, _ := f.store.Tool(first.ID)
	assert.Equal(t, models.WithHolder(f.ivanov.ID), stored.Location)
	assert.Equal(t, metadata.ToolIssued, stored.Status)
	assert.Equal(t, &kit.ID, stored.KitID)

	stored, _ = f.store.Tool(second.ID)
	assert.Equal(t, home, stored.Location)
	assert.Equal(t, metadata.ToolInStock, stored.Status)
	assert.Equal(t, &kit.ID, stored.KitID)

	assert.Equal(t, 10, f.store.BalanceAt(f.gloves.ID, models.WithHolder(f.ivanov.ID), &kit.ID))
	assert.Equal(t, 0, f.store.BalanceAt(f.gloves.ID, home, &kit.ID))

	updated, _ := f.store.Kit(kit.ID)
	assert.Equal(t, metadata.KitIssued, updated.Status)
	assert.Equal(t, &f.ivanov.ID, updated.HolderID)

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, entry.ID, logs[0].ID)
	assert.Equal(t, metadata.ActionKitIssue, logs[0].ActionType)
	assert.Equal(t, f.main.ID, *logs[0].SourceWarehouseID)
	assert.Equal(t, f.ivanov.ID, *logs[0].TargetUserID)
	assert.Equal(t, "Electrician Case", logs[0].KitName)
	assert.Equal(t, "Drill (D-200) #SN-001\nGloves (G-100) x10", logs[0].Composition)
}

func TestIssueWithCrewAndEmptySelection(t *testing.T) {
	f := newFixture()
	kit := f.kit()

	_, err := f.service.Issue(context.Background(), f.admin, kit.ID, models.KitIssueRequest{
		UserID:      f.ivanov.ID,
		CoWorkerIDs: []int{f.petrov.ID, f.ivanov.ID, f.petrov.ID},
	})
	require.NoError(t, err)

	updated, _ := f.store.Kit(kit.ID)
	assert.Equal(t, []int{f.petrov.ID}, updated.CoWorkerIDs)
	assert.Equal(t, "empty kit\ncrew: Petr Petrov", f.store.Logs()[0].Composition)
}

func TestIssueRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture, kit models.ToolKit) models.KitIssueRequest
	}{
		{
			name: "broken tool selected",
			setup: func(f *fixture, kit models.ToolKit) models.KitIssueRequest {
				tool := f.store.AddTool(models.ToolInstance{
					Nomenclature: f.drill, InventoryID: "SN-009", Condition: metadata.ConditionBroken,
					Status: metadata.ToolBroken, Location: models.AtWarehouse(f.main.ID), KitID: &kit.ID,
				})
				return models.KitIssueRequest{UserID: f.ivanov.ID, ToolIDs: []int{tool.ID}}
			},
		},
		{
			name: "tool outside the kit",
			setup: func(f *fixture, kit models.ToolKit) models.KitIssueRequest {
				tool := f.tool("SN-010", models.AtWarehouse(f.main.ID), nil)
				return models.KitIssueRequest{UserID: f.ivanov.ID, ToolIDs: []int{tool.ID}}
			},
		},
		{
			name: "inactive holder",
			setup: func(f *fixture, kit models.ToolKit) models.KitIssueRequest {
				fired := f.store.AddUser(models.User{Username: "fired", Role: roles.User})
				return models.KitIssueRequest{UserID: fired.ID}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			kit := f.kit()
			stowed := f.tool("SN-001", models.WithHolder(f.petrov.ID), &kit.ID)
			req := tt.setup(f, kit)

			_, err := f.service.Issue(context.Background(), f.admin, kit.ID, req)
			assert.ErrorIs(t, err, custom_error.ErrInvariant)

			unchanged, _ := f.store.Kit(kit.ID)
			assert.Equal(t, metadata.KitInStock, unchanged.Status)
			stored, _ := f.store.Tool(stowed.ID)
			assert.Equal(t, models.WithHolder(f.petrov.ID), stored.Location)
			assert.Empty(t, f.store.Logs())
		})
	}
}

func TestIssueAlreadyIssuedKit(t *testing.T) {
	f := newFixture()
	holder := f.ivanov.ID
	kit := f.store.AddKit(models.ToolKit{Name: "Case", WarehouseID: f.main.ID, Status: metadata.KitIssued, HolderID: &holder})

	_, err := f.service.Issue(context.Background(), f.admin, kit.ID, models.KitIssueRequest{UserID: f.petrov.ID})
	assert.ErrorIs(t, err, custom_error.ErrInvariant)
}

func TestReturnBringsKitHomeAndSkipsPersonallyIssuedTools(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	kit := f.kit()
	home := models.AtWarehouse(f.main.ID)
	first := f.tool("SN-001", home, &kit.ID)
	second := f.tool("SN-002", home, &kit.ID)
	stock := f.balance(10, home, &kit.ID)

	_, err := f.service.Issue(ctx, f.admin, kit.ID, models.KitIssueRequest{
		UserID: f.ivanov.ID, ToolIDs: []int{first.ID}, BalanceIDs: []int{stock.ID}, CoWorkerIDs: []int{f.petrov.ID},
	})
	require.NoError(t, err)

	personal, _ := f.store.Tool(second.ID)
	_, err = f.relocator.MoveTool(ctx, nil, &personal, models.WithHolder(f.ivanov.ID), placement.Move{Actor: f.admin, Action: metadata.ActionIssue})
	require.NoError(t, err)

	entry, err := f.service.Return(ctx, f.petrov.Actor(), kit.ID, "done")
	require.NoError(t, err)

	stored, _ := f.store.Tool(first.ID)
	assert.Equal(t, home, stored.Location)
	assert.Equal(t, metadata.ToolInStock, stored.Status)
	stored, _ = f.store.Tool(second.ID)
	assert.Equal(t, models.WithHolder(f.ivanov.ID), stored.Location)

	assert.Equal(t, 10, f.store.BalanceAt(f.gloves.ID, home, &kit.ID))

	updated, _ := f.store.Kit(kit.ID)
	assert.Equal(t, metadata.KitInStock, updated.Status)
	assert.Nil(t, updated.HolderID)
	assert.Empty(t, updated.CoWorkerIDs)

	assert.Equal(t, metadata.ActionKitReturn, entry.ActionType)
	assert.Equal(t, "done (accepted by Petr Petrov)", entry.Comment)
	assert.Equal(t, f.ivanov.ID, *entry.SourceUserID)
	assert.Equal(t, f.main.ID, *entry.TargetWarehouseID)
	assert.Equal(t, "Drill (D-200) #SN-001\nGloves (G-100) x10\nreturned by crew: Petr Petrov", entry.Composition)
}

func TestIssueTakesBackToolsOutWithOthers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	kit := f.kit()
	home := models.AtWarehouse(f.main.ID)
	drill := f.tool("SN-001", home, &kit.ID)

	loose, _ := f.store.Tool(drill.ID)
	_, err := f.relocator.MoveTool(ctx, nil, &loose, models.WithHolder(f.petrov.ID), placement.Move{Actor: f.admin, Action: metadata.ActionIssue})
	require.NoError(t, err)

	_, err = f.service.Issue(ctx, f.admin, kit.ID, models.KitIssueRequest{UserID: f.ivanov.ID})
	require.NoError(t, err)

	stored, _ := f.store.Tool(drill.ID)
	assert.Equal(t, home, stored.Location)
	assert.Equal(t, metadata.ToolInStock, stored.Status)

	logs := f.store.Logs()
	require.Len(t, logs, 3)
	assert.Equal(t, metadata.ActionReturn, logs[1].ActionType)
	assert.Equal(t, f.petrov.ID, *logs[1].SourceUserID)
	assert.Equal(t, f.main.ID, *logs[1].TargetWarehouseID)
	assert.Equal(t, drill.ID, *logs[1].ToolID)
	assert.Equal(t, metadata.ActionKitIssue, logs[2].ActionType)

	_, err = f.service.Return(ctx, f.ivanov.Actor(), kit.ID, "")
	require.NoError(t, err)
	_, err = f.service.Issue(ctx, f.admin, kit.ID, models.KitIssueRequest{UserID: f.ivanov.ID, ToolIDs: []int{drill.ID}})
	require.NoError(t, err)
	stored, _ = f.store.Tool(drill.ID)
	assert.Equal(t, models.WithHolder(f.ivanov.ID), stored.Location)

	_, err = f.service.Return(ctx, f.ivanov.Actor(), kit.ID, "")
	require.NoError(t, err)

	stored, _ = f.store.Tool(drill.ID)
	assert.Equal(t, home, stored.Location)
	assert.Equal(t, metadata.ToolInStock, stored.Status)
}

func TestIssueRefusesSelectedToolHeldByAnotherUser(t *testing.T) {
	f := newFixture()
	kit := f.kit()
	drill := f.tool("SN-001", models.WithHolder(f.petrov.ID), &kit.ID)

	_, err := f.service.Issue(context.Background(), f.admin, kit.ID, models.KitIssueRequest{UserID: f.ivanov.ID, ToolIDs: []int{drill.ID}})
	assert.ErrorIs(t, err, custom_error.ErrInvariant)

	stored, _ := f.store.Tool(drill.ID)
	assert.Equal(t, models.WithHolder(f.petrov.ID), stored.Location)
	assert.Empty(t, f.store.Logs())
}

func TestReturnBringsHomeToolIssuedBeforeTheKit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	kit := f.kit()
	home := models.AtWarehouse(f.main.ID)
	drill := f.tool("SN-001", home, &kit.ID)

	loose, _ := f.store.Tool(drill.ID)
	_, err := f.relocator.MoveTool(ctx, nil, &loose, models.WithHolder(f.ivanov.ID), placement.Move{Actor: f.admin, Action: metadata.ActionIssue})
	require.NoError(t, err)

	_, err = f.service.Issue(ctx, f.admin, kit.ID, models.KitIssueRequest{UserID: f.ivanov.ID, ToolIDs: []int{drill.ID}})
	require.NoError(t, err)
	_, err = f.service.Return(ctx, f.ivanov.Actor(), kit.ID, "")
	require.NoError(t, err)

	stored, _ := f.store.Tool(drill.ID)
	assert.Equal(t, home, stored.Location)
	assert.Equal(t, metadata.ToolInStock, stored.Status)
}

func TestReturnAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	kit := f.kit()
	_, err := f.service.Issue(ctx, f.admin, kit.ID, models.KitIssueRequest{UserID: f.ivanov.ID})
	require.NoError(t, err)

	_, err = f.service.Return(ctx, f.petrov.Actor(), kit.ID, "")
	assert.ErrorIs(t, err, custom_error.ErrForbidden)

	entry, err := f.service.Return(ctx, f.ivanov.Actor(), kit.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "", entry.Comment)

	_, err = f.service.Return(ctx, f.ivanov.Actor(), kit.ID, "")
	assert.ErrorIs(t, err, custom_error.ErrInvariant)
}

func TestAddAndRemoveTool(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	kit := f.kit()
	tool := f.tool("SN-001", models.AtWarehouse(f.main.ID), nil)
	elsewhere := f.tool("SN-002", models.AtWarehouse(f.spare.ID), nil)

	_, err := f.service.AddTool(ctx, f.admin, kit.ID, elsewhere.ID)
	assert.ErrorIs(t, err, custom_error.ErrInvariant)

	added, err := f.service.AddTool(ctx, f.admin, kit.ID, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.ActionKitEdit, added.ActionType)
	assert.Equal(t, kit.ID, *added.TargetKitID)
	stored, _ := f.store.Tool(tool.ID)
	assert.Equal(t, &kit.ID, stored.KitID)

	_, err = f.service.AddTool(ctx, f.admin, kit.ID, tool.ID)
	assert.ErrorIs(t, err, custom_error.ErrInvariant)

	removed, err := f.service.RemoveTool(ctx, f.admin, kit.ID, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, kit.ID, *removed.SourceKitID)
	stored, _ = f.store.Tool(tool.ID)
	assert.Nil(t, stored.KitID)
	assert.Equal(t, models.AtWarehouse(f.main.ID), stored.Location)
}

func TestAddAndRemoveConsumable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	kit := f.kit()
	home := models.AtWarehouse(f.main.ID)
	free := f.balance(10, home, nil)

	_, err := f.service.AddConsumable(ctx, f.admin, kit.ID, free.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, f.store.BalanceAt(f.gloves.ID, home, nil))
	assert.Equal(t, 4, f.store.BalanceAt(f.gloves.ID, home, &kit.ID))

	var bound models.ConsumableBalance
	for _, b := range f.store.Balances() {
		if b.InKit(kit.ID) {
			bound = b
		}
	}
	entry, err := f.service.RemoveConsumable(ctx, f.admin, kit.ID, bound.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, entry.Quantity)
	assert.Equal(t, 10, f.store.BalanceAt(f.gloves.ID, home, nil))
	assert.Len(t, f.store.Balances(), 1)
	assert.Equal(t, 10, f.store.TotalQuantity(f.gloves.ID))
}

func TestCompositionChangesRequireStowedKit(t *testing.T) {
	f := newFixture()
	holder := f.ivanov.ID
	kit := f.store.AddKit(models.ToolKit{Name: "Case", WarehouseID: f.main.ID, Status: metadata.KitIssued, HolderID: &holder})
	tool := f.tool("SN-001", models.AtWarehouse(f.main.ID), nil)

	_, err := f.service.AddTool(context.Background(), f.admin, kit.ID, tool.ID)
	assert.ErrorIs(t, err, custom_error.ErrInvariant)
	assert.ErrorIs(t, f.service.Delete(context.Background(), f.admin, kit.ID), custom_error.ErrInvariant)
}

func TestUpdateMovesStowedContents(t *testing.T) {
	f := newFixture()
	kit := f.kit()
	tool := f.tool("SN-001", models.AtWarehouse(f.main.ID), &kit.ID)
	f.balance(5, models.AtWarehouse(f.main.ID), &kit.ID)

	updated, err := f.service.Update(context.Background(), f.admin, kit.ID, models.KitRequest{Name: "Case B", WarehouseID: f.spare.ID})
	require.NoError(t, err)
	assert.Equal(t, "Case B", updated.Name)
	assert.Equal(t, f.spare.ID, updated.WarehouseID)

	stored, _ := f.store.Tool(tool.ID)
	assert.Equal(t, models.AtWarehouse(f.spare.ID), stored.Location)
	assert.Equal(t, 5, f.store.BalanceAt(f.gloves.ID, models.AtWarehouse(f.spare.ID), &kit.ID))

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, metadata.ActionKitEdit, logs[0].ActionType)
	assert.Equal(t, f.main.ID, *logs[0].SourceWarehouseID)
	assert.Equal(t, f.spare.ID, *logs[0].TargetWarehouseID)
}

func TestUpdateWithoutHomeChangeWritesNoRow(t *testing.T) {
	f := newFixture()
	kit := f.kit()

	_, err := f.service.Update(context.Background(), f.admin, kit.ID, models.KitRequest{Name: "Renamed", WarehouseID: f.main.ID})
	require.NoError(t, err)
	assert.Empty(t, f.store.Logs())
}

func TestDeleteReleasesContents(t *testing.T) {
	f := newFixture()
	kit := f.kit()
	home := models.AtWarehouse(f.main.ID)
	tool := f.tool("SN-001", home, &kit.ID)
	f.balance(5, home, &kit.ID)
	f.balance(7, home, nil)

	require.NoError(t, f.service.Delete(context.Background(), f.admin, kit.ID))

	_, exists := f.store.Kit(kit.ID)
	assert.False(t, exists)
	stored, _ := f.store.Tool(tool.ID)
	assert.Nil(t, stored.KitID)
	assert.Equal(t, home, stored.Location)
	assert.Equal(t, 12, f.store.BalanceAt(f.gloves.ID, home, nil))
	assert.Len(t, f.store.Balances(), 1)

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "Drill (D-200) #SN-001\nGloves (G-100) x5", logs[0].Composition)
}

func TestKitManagementRequiresCapability(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), f.ivanov.Actor(), models.KitRequest{Name: "Mine", WarehouseID: f.main.ID})
	assert.ErrorIs(t, err, custom_error.ErrForbidden)

	kit, err := f.service.Create(context.Background(), f.admin, models.KitRequest{Name: " Case ", WarehouseID: f.main.ID})
	require.NoError(t, err)
	assert.Equal(t, "Case", kit.Name)
	assert.Equal(t, metadata.KitInStock, kit.Status)
}

func TestListShowsAllowedAndCarriedKits(t *testing.T) {
	f := newFixture()
	holder := f.ivanov.ID
	f.store.AddKit(models.ToolKit{Name: "A", WarehouseID: f.main.ID})
	f.store.AddKit(models.ToolKit{Name: "B", WarehouseID: f.spare.ID, Status: metadata.KitIssued, HolderID: &holder})
	f.store.AddKit(models.ToolKit{Name: "C", WarehouseID: f.spare.ID})

	worker := f.ivanov.Actor()
	worker.Warehouses = []int{f.main.ID}
	kits, err := f.service.List(context.Background(), worker, models.KitFilter{})
	require.NoError(t, err)
	require.Len(t, kits, 2)
	assert.Equal(t, "A", kits[0].Name)
	assert.Equal(t, "B", kits[1].Name)
}
