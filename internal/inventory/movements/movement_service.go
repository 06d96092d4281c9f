package movements

import (
	"context"
	"fmt"
	"slices"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/placement"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

// MovementService runs every manual stock transition. Each call checks the actor's
// capability, mutates inside one transaction and announces the ledger rows after commit.
type MovementService struct {
	deps Dependencies
}

func NewService(deps Dependencies) *MovementService {
	return &MovementService{deps: deps}
}

func (s *MovementService) run(ctx context.Context, fn func(tx *goqu.TxDatabase) ([]*models.MovementLog, error)) ([]*models.MovementLog, error) {
	var entries []*models.MovementLog
	err := s.deps.Transactor.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		var err error
		entries, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.deps.Ledger.Announce(entries...)
	return entries, nil
}

func one(entry *models.MovementLog, err error) ([]*models.MovementLog, error) {
	if err != nil {
		return nil, err
	}
	return []*models.MovementLog{entry}, nil
}

func first(entries []*models.MovementLog, err error) (*models.MovementLog, error) {
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

func (s *MovementService) warehouseOrDefault(id *int) int {
	if id != nil {
		return *id
	}
	return s.deps.DefaultWarehouseID
}

// returnTarget picks the warehouse a returned item goes to. Kit-bound items go back to
// their kit's home unless a warehouse is named.
func (s *MovementService) returnTarget(ctx context.Context, tx *goqu.TxDatabase, kitID *int, requested *int) (models.Location, error) {
	if requested != nil {
		return models.AtWarehouse(*requested), nil
	}
	if kitID != nil {
		kit, err := s.deps.Kits.GetKit(ctx, tx, *kitID)
		if err != nil {
			return models.Location{}, err
		}
		return models.AtWarehouse(kit.WarehouseID), nil
	}
	return models.AtWarehouse(s.deps.DefaultWarehouseID), nil
}

// checkDestination verifies that the referenced place exists and can take items, and
// returns the warehouse scope the move is authorized against.
func (s *MovementService) checkDestination(ctx context.Context, tx *goqu.TxDatabase, dest models.Location) (roles.Scope, error) {
	switch dest.Kind {
	case models.LocationWarehouse:
		if _, err := s.deps.Warehouses.GetWarehouse(ctx, dest.ID); err != nil {
			return roles.Scope{}, err
		}
		return roles.WarehouseScope(dest.ID), nil
	case models.LocationHolder:
		if _, err := activeHolder(ctx, s.deps.Users, dest.ID); err != nil {
			return roles.Scope{}, err
		}
	case models.LocationVehicle:
		if _, err := s.deps.Cars.GetCar(ctx, tx, dest.ID); err != nil {
			return roles.Scope{}, err
		}
	case models.LocationKit:
		kit, err := s.deps.Kits.GetKit(ctx, tx, dest.ID)
		if err != nil {
			return roles.Scope{}, err
		}
		return roles.WarehouseScope(kit.WarehouseID), nil
	default:
		return roles.Scope{}, custom_error.Invariant("destination is required")
	}
	return roles.AnyScope(), nil
}

// RelocationAction labels a manual relocation by where the item ends up.
func RelocationAction(dest models.Location) metadata.ActionType {
	switch dest.Kind {
	case models.LocationWarehouse:
		return metadata.ActionReturn
	case models.LocationKit:
		return metadata.ActionKitEdit
	default:
		return metadata.ActionIssue
	}
}

func (s *MovementService) ReceiveTool(ctx context.Context, actor roles.Actor, req models.ReceiveToolRequest) (*models.ToolInstance, *models.MovementLog, error) {
	warehouseID := s.warehouseOrDefault(req.WarehouseID)
	if err := roles.Require(actor, roles.CapReceive, roles.WarehouseScope(warehouseID)); err != nil {
		return nil, nil, err
	}

	condition := metadata.ConditionNew
	if req.Condition != "" {
		c, err := metadata.NewCondition(req.Condition)
		if err != nil {
			return nil, nil, custom_error.Invariant("%s", err.Error())
		}
		condition = c
	}

	nomenclature, err := s.deps.Catalog.GetNomenclature(ctx, req.NomenclatureID)
	if err != nil {
		return nil, nil, err
	}
	if !nomenclature.ItemType.IsSerialized() {
		return nil, nil, custom_error.Invariant("%s is a consumable and is received by quantity", nomenclature.Label())
	}
	if _, err := s.deps.Warehouses.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, nil, err
	}

	status := metadata.ToolInStock
	if condition == metadata.ConditionBroken {
		status = metadata.ToolBroken
	}
	tool := &models.ToolInstance{
		Nomenclature: *nomenclature,
		InventoryID:  req.InventoryID,
		Condition:    condition,
		Status:       status,
		PurchaseDate: req.PurchaseDate,
		Location:     models.AtWarehouse(warehouseID),
	}

	entry, err := first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		if err := s.deps.Tools.InsertTool(ctx, tx, tool); err != nil {
			return nil, err
		}
		entry := &models.MovementLog{ActionType: metadata.ActionReceipt, Comment: req.Comment, Quantity: 1}
		entry.SetTarget(tool.Location)
		return one(entry, s.deps.Ledger.Record(ctx, tx, entry, models.SnapshotSource{Initiator: &actor, Tool: tool}))
	}))
	if err != nil {
		return nil, nil, err
	}
	return tool, entry, nil
}

func (s *MovementService) IssueTool(ctx context.Context, actor roles.Actor, req models.IssueToolRequest) (*models.MovementLog, error) {
	return first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		if _, err := activeHolder(ctx, s.deps.Users, req.UserID); err != nil {
			return nil, err
		}
		return one(s.issueTool(ctx, tx, actor, roles.CapIssue, req.ToolID, req.UserID, req.Comment))
	}))
}

func (s *MovementService) issueTool(ctx context.Context, tx *goqu.TxDatabase, actor roles.Actor, capability roles.Capability, toolID, userID int, comment string) (*models.MovementLog, error) {
	tool, err := s.deps.Tools.GetTool(ctx, tx, toolID)
	if err != nil {
		return nil, err
	}
	if err := roles.Require(actor, capability, scopeOf(tool.Location)); err != nil {
		return nil, err
	}
	if !tool.Location.Is(models.LocationWarehouse) || tool.Status != metadata.ToolInStock {
		if tool.IsBroken() {
			return nil, custom_error.Invariant("tool %s is broken and cannot be issued", tool.InventoryID)
		}
		return nil, custom_error.Invariant("tool %s is not in stock", tool.InventoryID)
	}
	return s.deps.Relocator.MoveTool(ctx, tx, tool, models.WithHolder(userID), placement.Move{
		Actor: actor, Action: metadata.ActionIssue, Comment: comment,
	})
}

func (s *MovementService) ReturnTool(ctx context.Context, actor roles.Actor, req models.ReturnToolRequest) (*models.MovementLog, error) {
	var condition *metadata.Condition
	if req.Condition != nil && *req.Condition != "" {
		c, err := metadata.NewCondition(*req.Condition)
		if err != nil {
			return nil, custom_error.Invariant("%s", err.Error())
		}
		condition = &c
	}

	return first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		tool, err := s.deps.Tools.GetTool(ctx, tx, req.ToolID)
		if err != nil {
			return nil, err
		}
		dest, err := s.returnTarget(ctx, tx, tool.KitID, req.WarehouseID)
		if err != nil {
			return nil, err
		}
		if err := roles.Require(actor, roles.CapReturn, scopeOf(dest)); err != nil {
			return nil, err
		}
		if tool.Status != metadata.ToolIssued && tool.Status != metadata.ToolLost {
			return nil, custom_error.Invariant("tool %s is not issued", tool.InventoryID)
		}
		if _, err := s.deps.Warehouses.GetWarehouse(ctx, dest.ID); err != nil {
			return nil, err
		}
		if condition != nil {
			tool.Condition = *condition
		}
		return one(s.deps.Relocator.MoveTool(ctx, tx, tool, dest, placement.Move{
			Actor: actor, Action: metadata.ActionReturn, Comment: req.Comment,
		}))
	}))
}

func (s *MovementService) WriteOffTool(ctx context.Context, actor roles.Actor, toolID int, comment string) (*models.MovementLog, error) {
	return first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		tool, err := s.deps.Tools.GetTool(ctx, tx, toolID)
		if err != nil {
			return nil, err
		}
		if err := roles.Require(actor, roles.CapWriteOff, scopeOf(tool.Location)); err != nil {
			return nil, err
		}
		return one(s.deps.Relocator.WriteOffTool(ctx, tx, tool, placement.Move{Actor: actor, Comment: comment}))
	}))
}

// RelocateTool moves a tool to any place. The ledger action follows the destination.
func (s *MovementService) RelocateTool(ctx context.Context, actor roles.Actor, toolID int, dest models.Location, comment string) (*models.MovementLog, error) {
	return first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		tool, err := s.deps.Tools.GetTool(ctx, tx, toolID)
		if err != nil {
			return nil, err
		}
		scope, err := s.checkDestination(ctx, tx, dest)
		if err != nil {
			return nil, err
		}
		if err := roles.Require(actor, roles.CapRelocate, scopeOf(tool.Location), scope); err != nil {
			return nil, err
		}
		return one(s.deps.Relocator.MoveTool(ctx, tx, tool, dest, placement.Move{
			Actor: actor, Action: RelocationAction(dest), Comment: comment,
		}))
	}))
}

// EditTool changes descriptive attributes. Placement is never touched here, so no
// ledger row is written.
func (s *MovementService) EditTool(ctx context.Context, actor roles.Actor, toolID int, req models.EditToolRequest) (*models.ToolInstance, error) {
	var tool *models.ToolInstance
	err := s.deps.Transactor.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		var err error
		tool, err = s.deps.Tools.GetTool(ctx, tx, toolID)
		if err != nil {
			return err
		}
		if err := roles.Require(actor, roles.CapReceive, scopeOf(tool.Location)); err != nil {
			return err
		}
		if req.InventoryID != nil && *req.InventoryID != "" {
			tool.InventoryID = *req.InventoryID
		}
		if req.PurchaseDate != nil {
			tool.PurchaseDate = req.PurchaseDate
		}
		if req.Condition != nil {
			condition, err := metadata.NewCondition(*req.Condition)
			if err != nil {
				return custom_error.Invariant("%s", err.Error())
			}
			tool.Condition = condition
		}
		if req.Status != nil {
			status, err := metadata.NewToolStatus(*req.Status)
			if err != nil {
				return custom_error.Invariant("%s", err.Error())
			}
			if err := checkStatusForLocation(status, tool.Location); err != nil {
				return err
			}
			tool.Status = status
		}
		if tool.Condition == metadata.ConditionBroken && tool.Location.Is(models.LocationWarehouse) {
			tool.Status = metadata.ToolBroken
		}
		return s.deps.Tools.UpdateTool(ctx, tx, tool)
	})
	if err != nil {
		return nil, err
	}
	return tool, nil
}

func checkStatusForLocation(status metadata.ToolStatus, loc models.Location) error {
	atWarehouse := loc.Is(models.LocationWarehouse)
	switch {
	case status == metadata.ToolInStock && !atWarehouse:
		return custom_error.Invariant("only a tool at a warehouse can be %s", status)
	case status == metadata.ToolIssued && atWarehouse:
		return custom_error.Invariant("a tool at a warehouse cannot be %s", status)
	}
	return nil
}

func (s *MovementService) ReceiveConsumable(ctx context.Context, actor roles.Actor, req models.ReceiveConsumableRequest) (*models.ConsumableBalance, *models.MovementLog, error) {
	warehouseID := s.warehouseOrDefault(req.WarehouseID)
	if err := roles.Require(actor, roles.CapReceive, roles.WarehouseScope(warehouseID)); err != nil {
		return nil, nil, err
	}
	nomenclature, err := s.deps.Catalog.GetNomenclature(ctx, req.NomenclatureID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.deps.Warehouses.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, nil, err
	}

	var balance *models.ConsumableBalance
	entry, err := first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		var err error
		balance, err = s.deps.Relocator.Deposit(ctx, tx, *nomenclature, req.Quantity, warehouseID)
		if err != nil {
			return nil, err
		}
		entry := &models.MovementLog{ActionType: metadata.ActionReceipt, Comment: req.Comment, Quantity: req.Quantity}
		entry.SetTarget(balance.Location)
		return one(entry, s.deps.Ledger.Record(ctx, tx, entry, models.SnapshotSource{Initiator: &actor, Nomenclature: nomenclature}))
	}))
	if err != nil {
		return nil, nil, err
	}
	return balance, entry, nil
}

// loadFreeBalance locks a balance that is not bound to a kit.
func (s *MovementService) loadFreeBalance(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ConsumableBalance, error) {
	balance, err := s.deps.Balances.GetBalance(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if balance.KitID != nil {
		return nil, custom_error.Invariant("%s belongs to a kit and moves only with kit operations", balance.Nomenclature.Label())
	}
	return balance, nil
}

func (s *MovementService) IssueConsumable(ctx context.Context, actor roles.Actor, req models.IssueConsumableRequest) (*models.MovementLog, error) {
	return first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		if _, err := activeHolder(ctx, s.deps.Users, req.UserID); err != nil {
			return nil, err
		}
		return one(s.issueQuantity(ctx, tx, actor, roles.CapIssue, req.BalanceID, req.Quantity, req.UserID, req.Comment))
	}))
}

func (s *MovementService) issueQuantity(ctx context.Context, tx *goqu.TxDatabase, actor roles.Actor, capability roles.Capability, balanceID, qty, userID int, comment string) (*models.MovementLog, error) {
	balance, err := s.loadFreeBalance(ctx, tx, balanceID)
	if err != nil {
		return nil, err
	}
	if err := roles.Require(actor, capability, scopeOf(balance.Location)); err != nil {
		return nil, err
	}
	if !balance.Location.Is(models.LocationWarehouse) {
		return nil, custom_error.Invariant("%s is not in a warehouse", balance.Nomenclature.Label())
	}
	_, entry, err := s.deps.Relocator.MoveQuantity(ctx, tx, balance, qty, models.WithHolder(userID), placement.Move{
		Actor: actor, Action: metadata.ActionIssue, Comment: comment,
	})
	return entry, err
}

func (s *MovementService) ReturnConsumable(ctx context.Context, actor roles.Actor, req models.ReturnConsumableRequest) (*models.MovementLog, error) {
	return first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		balance, err := s.loadFreeBalance(ctx, tx, req.BalanceID)
		if err != nil {
			return nil, err
		}
		if balance.Location.Is(models.LocationWarehouse) {
			return nil, custom_error.Invariant("%s is already in a warehouse", balance.Nomenclature.Label())
		}
		dest := models.AtWarehouse(s.warehouseOrDefault(req.WarehouseID))
		if err := roles.Require(actor, roles.CapReturn, scopeOf(dest)); err != nil {
			return nil, err
		}
		if _, err := s.deps.Warehouses.GetWarehouse(ctx, dest.ID); err != nil {
			return nil, err
		}
		_, entry, err := s.deps.Relocator.MoveQuantity(ctx, tx, balance, req.Quantity, dest, placement.Move{
			Actor: actor, Action: metadata.ActionReturn, Comment: req.Comment,
		})
		return one(entry, err)
	}))
}

func (s *MovementService) WriteOffConsumable(ctx context.Context, actor roles.Actor, balanceID int, req models.WriteOffRequest) (*models.MovementLog, error) {
	return first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		balance, err := s.deps.Balances.GetBalance(ctx, tx, balanceID)
		if err != nil {
			return nil, err
		}
		if err := roles.Require(actor, roles.CapWriteOff, scopeOf(balance.Location)); err != nil {
			return nil, err
		}
		return one(s.deps.Relocator.WriteOffQuantity(ctx, tx, balance, req.Quantity, placement.Move{Actor: actor, Comment: req.Comment}))
	}))
}

func (s *MovementService) RelocateConsumable(ctx context.Context, actor roles.Actor, balanceID int, dest models.Location, qty int, comment string) (*models.MovementLog, error) {
	return first(s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		balance, err := s.loadFreeBalance(ctx, tx, balanceID)
		if err != nil {
			return nil, err
		}
		scope, err := s.checkDestination(ctx, tx, dest)
		if err != nil {
			return nil, err
		}
		if err := roles.Require(actor, roles.CapRelocate, scopeOf(balance.Location), scope); err != nil {
			return nil, err
		}
		_, entry, err := s.deps.Relocator.MoveQuantity(ctx, tx, balance, qty, dest, placement.Move{
			Actor: actor, Action: RelocationAction(dest), Comment: comment,
		})
		return one(entry, err)
	}))
}

// BulkIssue hands several tools and consumables to one person. Either every item moves
// or none does; each item gets its own ISSUE row.
func (s *MovementService) BulkIssue(ctx context.Context, actor roles.Actor, req models.BulkIssueRequest) ([]*models.MovementLog, error) {
	if len(req.ToolIDs) == 0 && len(req.Consumables) == 0 {
		return nil, custom_error.Invariant("nothing selected to issue")
	}
	if err := checkDistinct(req.ToolIDs, req.Consumables); err != nil {
		return nil, err
	}

	return s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		if _, err := activeHolder(ctx, s.deps.Users, req.UserID); err != nil {
			return nil, err
		}
		entries := make([]*models.MovementLog, 0, len(req.ToolIDs)+len(req.Consumables))
		for _, toolID := range req.ToolIDs {
			entry, err := s.issueTool(ctx, tx, actor, roles.CapIssue, toolID, req.UserID, req.Comment)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		for _, item := range req.Consumables {
			entry, err := s.issueQuantity(ctx, tx, actor, roles.CapIssue, item.BalanceID, item.Quantity, req.UserID, req.Comment)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return entries, nil
	})
}

func checkDistinct(toolIDs []int, items []models.ConsumableQuantity) error {
	seen := make(map[int]bool, len(toolIDs))
	for _, id := range toolIDs {
		if seen[id] {
			return custom_error.Invariant("tool %d is selected twice", id)
		}
		seen[id] = true
	}
	balances := make(map[int]bool, len(items))
	for _, item := range items {
		if balances[item.BalanceID] {
			return custom_error.Invariant("consumable balance %d is selected twice", item.BalanceID)
		}
		balances[item.BalanceID] = true
	}
	return nil
}

// QuickReturn brings tools back by serial number. Serials that are unknown, already in
// stock or cannot go to the warehouse are reported instead of failing the whole batch.
func (s *MovementService) QuickReturn(ctx context.Context, actor roles.Actor, req models.QuickReturnRequest) (*models.QuickReturnResult, error) {
	result := &models.QuickReturnResult{Returned: []string{}, Skipped: []models.SkippedItem{}}

	_, err := s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		var entries []*models.MovementLog
		for _, serial := range req.Serials {
			entry, err := s.quickReturnOne(ctx, tx, actor, serial, req.WarehouseID, req.Comment)
			if err == nil {
				result.Returned = append(result.Returned, serial)
				entries = append(entries, entry)
				continue
			}
			switch custom_error.Classify(err) {
			case custom_error.KindInvariant, custom_error.KindNotFound:
				result.Skipped = append(result.Skipped, models.SkippedItem{Serial: serial, Reason: err.Error()})
			default:
				return nil, err
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MovementService) quickReturnOne(ctx context.Context, tx *goqu.TxDatabase, actor roles.Actor, serial string, warehouseID *int, comment string) (*models.MovementLog, error) {
	tool, err := s.deps.Tools.GetToolByInventoryID(ctx, tx, serial)
	if err != nil {
		return nil, err
	}
	if tool.Status == metadata.ToolInStock || tool.Location.Is(models.LocationWarehouse) {
		return nil, custom_error.Invariant("tool %s is already in stock", serial)
	}
	dest, err := s.returnTarget(ctx, tx, tool.KitID, warehouseID)
	if err != nil {
		return nil, err
	}
	if err := roles.Require(actor, roles.CapReturn, scopeOf(dest)); err != nil {
		return nil, err
	}
	return s.deps.Relocator.MoveTool(ctx, tx, tool, dest, placement.Move{
		Actor: actor, Action: metadata.ActionReturn, Comment: comment,
	})
}

// TakeSelf lets a worker take free stock from a warehouse they are allowed to use.
func (s *MovementService) TakeSelf(ctx context.Context, actor roles.Actor, req models.SelfServiceRequest) ([]*models.MovementLog, error) {
	if len(req.ToolIDs) == 0 && len(req.Consumables) == 0 {
		return nil, custom_error.Invariant("nothing selected to take")
	}
	if err := checkDistinct(req.ToolIDs, req.Consumables); err != nil {
		return nil, err
	}
	comment := selfComment(req.Comment)

	return s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		var entries []*models.MovementLog
		for _, toolID := range req.ToolIDs {
			tool, err := s.deps.Tools.GetTool(ctx, tx, toolID)
			if err != nil {
				return nil, err
			}
			if tool.KitID != nil {
				return nil, custom_error.Invariant("tool %s belongs to a kit and is issued with the kit", tool.InventoryID)
			}
			entry, err := s.issueTool(ctx, tx, actor, roles.CapSelfService, toolID, actor.UserID, comment)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		for _, item := range req.Consumables {
			entry, err := s.issueQuantity(ctx, tx, actor, roles.CapSelfService, item.BalanceID, item.Quantity, actor.UserID, comment)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return entries, nil
	})
}

// ReturnSelf brings the worker's own items back to a warehouse.
func (s *MovementService) ReturnSelf(ctx context.Context, actor roles.Actor, req models.SelfServiceRequest) ([]*models.MovementLog, error) {
	if len(req.ToolIDs) == 0 && len(req.Consumables) == 0 {
		return nil, custom_error.Invariant("nothing selected to return")
	}
	if err := checkDistinct(req.ToolIDs, req.Consumables); err != nil {
		return nil, err
	}
	comment := selfComment(req.Comment)
	own := models.WithHolder(actor.UserID)

	return s.run(ctx, func(tx *goqu.TxDatabase) ([]*models.MovementLog, error) {
		var entries []*models.MovementLog
		for _, toolID := range req.ToolIDs {
			tool, err := s.deps.Tools.GetTool(ctx, tx, toolID)
			if err != nil {
				return nil, err
			}
			if tool.Location != own {
				return nil, custom_error.Forbidden("tool %s is not held by %s", tool.InventoryID, actor.DisplayName())
			}
			dest, err := s.returnTarget(ctx, tx, tool.KitID, req.WarehouseID)
			if err != nil {
				return nil, err
			}
			if err := roles.Require(actor, roles.CapSelfService, scopeOf(dest)); err != nil {
				return nil, err
			}
			entry, err := s.deps.Relocator.MoveTool(ctx, tx, tool, dest, placement.Move{
				Actor: actor, Action: metadata.ActionReturn, Comment: comment,
			})
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		for _, item := range req.Consumables {
			balance, err := s.loadFreeBalance(ctx, tx, item.BalanceID)
			if err != nil {
				return nil, err
			}
			if balance.Location != own {
				return nil, custom_error.Forbidden("%s is not held by %s", balance.Nomenclature.Label(), actor.DisplayName())
			}
			dest := models.AtWarehouse(s.warehouseOrDefault(req.WarehouseID))
			if err := roles.Require(actor, roles.CapSelfService, scopeOf(dest)); err != nil {
				return nil, err
			}
			_, entry, err := s.deps.Relocator.MoveQuantity(ctx, tx, balance, item.Quantity, dest, placement.Move{
				Actor: actor, Action: metadata.ActionReturn, Comment: comment,
			})
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return entries, nil
	})
}

func selfComment(comment string) string {
	if comment == "" {
		return "self-service"
	}
	return "self-service: " + comment
}

// HolderItems lists what a person carries. Workers may only look at themselves.
func (s *MovementService) HolderItems(ctx context.Context, actor roles.Actor, userID int) (*models.HolderItems, error) {
	if actor.UserID != userID && !roles.Can(actor, roles.CapIssue, roles.AnyScope()) && !roles.Can(actor, roles.CapReturn, roles.AnyScope()) {
		return nil, custom_error.Forbidden("%s is not allowed to view items of other people", actor.DisplayName())
	}
	user, err := s.deps.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tools, err := s.deps.Tools.ListTools(ctx, nil, models.ToolFilter{HolderID: &userID})
	if err != nil {
		return nil, err
	}
	balances, err := s.deps.Balances.ListBalances(ctx, nil, models.BalanceFilter{HolderID: &userID})
	if err != nil {
		return nil, err
	}
	return &models.HolderItems{User: *user, Tools: tools, Consumables: balances}, nil
}

func (s *MovementService) ListTools(ctx context.Context, actor roles.Actor, filter models.ToolFilter) ([]models.ToolInstance, error) {
	if !ownHolding(actor, filter.HolderID) {
		filter.WarehouseIDs = restrictWarehouses(actor, filter.WarehouseIDs)
	}
	tools, err := s.deps.Tools.ListTools(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return tools, nil
}

func (s *MovementService) ListBalances(ctx context.Context, actor roles.Actor, filter models.BalanceFilter) ([]models.ConsumableBalance, error) {
	if !ownHolding(actor, filter.HolderID) {
		filter.WarehouseIDs = restrictWarehouses(actor, filter.WarehouseIDs)
	}
	balances, err := s.deps.Balances.ListBalances(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list consumables: %w", err)
	}
	return balances, nil
}

func ownHolding(actor roles.Actor, holderID *int) bool {
	return holderID != nil && *holderID == actor.UserID
}

// restrictWarehouses narrows a requested warehouse set to what the actor may see. Staff
// are not restricted.
func restrictWarehouses(actor roles.Actor, requested []int) []int {
	allowed := actor.AllowedWarehouses()
	if allowed == nil {
		return requested
	}
	if requested == nil {
		return allowed
	}
	result := []int{}
	for _, id := range requested {
		if slices.Contains(allowed, id) {
			result = append(result, id)
		}
	}
	return result
}

func (s *MovementService) GetTool(ctx context.Context, actor roles.Actor, id int) (*models.ToolInstance, error) {
	tool, err := s.deps.Tools.GetTool(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !ownHolding(actor, tool.Location.HolderID()) && !roles.Can(actor, roles.CapViewHistory, scopeOf(tool.Location)) {
		return nil, custom_error.Forbidden("%s is not allowed to view tool %s", actor.DisplayName(), tool.InventoryID)
	}
	return tool, nil
}
