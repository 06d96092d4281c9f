package kits

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/consumables"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/placement"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/tools"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

type Transactor interface {
	InTransaction(ctx context.Context, fn func(tx *goqu.TxDatabase) error) error
}

type Ledger interface {
	placement.Recorder
	LastToolAction(ctx context.Context, tx *goqu.TxDatabase, toolID int) (metadata.ActionType, error)
	IssuedSinceKitIssue(ctx context.Context, tx *goqu.TxDatabase, toolID, kitID int) (bool, error)
	Announce(entries ...*models.MovementLog)
}

type UserFinder interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

type WarehouseFinder interface {
	GetWarehouse(ctx context.Context, id int) (*models.Warehouse, error)
}

type Dependencies struct {
	Transactor Transactor
	Kits       Repository
	Tools      tools.Repository
	Balances   consumables.Repository
	Relocator  *placement.Relocator
	Ledger     Ledger
	Users      UserFinder
	Warehouses WarehouseFinder
}

// KitService runs the kit state machine: composition changes while the kit is stowed,
// issue to a holder with an optional crew and the return that brings the contents home.
type KitService struct {
	deps Dependencies
}

func NewService(deps Dependencies) *KitService {
	return &KitService{deps: deps}
}

func (s *KitService) run(ctx context.Context, fn func(tx *goqu.TxDatabase) (*models.MovementLog, error)) (*models.MovementLog, error) {
	var entry *models.MovementLog
	err := s.deps.Transactor.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		var err error
		entry, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entry != nil {
		s.deps.Ledger.Announce(entry)
	}
	return entry, nil
}

// lockKit loads the kit and checks the capability against its home warehouse.
func (s *KitService) lockKit(ctx context.Context, tx *goqu.TxDatabase, actor roles.Actor, capability roles.Capability, id int) (*models.ToolKit, error) {
	kit, err := s.deps.Kits.GetKit(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := roles.Require(actor, capability, roles.WarehouseScope(kit.WarehouseID)); err != nil {
		return nil, err
	}
	return kit, nil
}

func requireStowed(kit *models.ToolKit) error {
	if kit.IsIssued() {
		return custom_error.Invariant("kit %s is issued, its composition can only change while it is in stock", kit.Name)
	}
	return nil
}

func (s *KitService) record(ctx context.Context, tx *goqu.TxDatabase, actor roles.Actor, kit *models.ToolKit, entry *models.MovementLog) (*models.MovementLog, error) {
	if err := s.deps.Ledger.Record(ctx, tx, entry, models.SnapshotSource{Initiator: &actor, Kit: kit}); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *KitService) Create(ctx context.Context, actor roles.Actor, req models.KitRequest) (*models.ToolKit, error) {
	if err := roles.Require(actor, roles.CapManageKits, roles.WarehouseScope(req.WarehouseID)); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, custom_error.Invariant("kit name is required")
	}
	if _, err := s.deps.Warehouses.GetWarehouse(ctx, req.WarehouseID); err != nil {
		return nil, err
	}

	kit := &models.ToolKit{Name: name, WarehouseID: req.WarehouseID, Status: metadata.KitInStock, Description: req.Description}
	err := s.deps.Transactor.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		return s.deps.Kits.InsertKit(ctx, tx, kit)
	})
	if err != nil {
		return nil, err
	}
	return kit, nil
}

// Update renames the kit or moves its home. Contents stowed at the old home travel with
// it; contents out with a holder come back to the new home on return.
func (s *KitService) Update(ctx context.Context, actor roles.Actor, id int, req models.KitRequest) (*models.ToolKit, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, custom_error.Invariant("kit name is required")
	}

	var kit *models.ToolKit
	_, err := s.run(ctx, func(tx *goqu.TxDatabase) (*models.MovementLog, error) {
		var err error
		kit, err = s.lockKit(ctx, tx, actor, roles.CapManageKits, id)
		if err != nil {
			return nil, err
		}
		oldHome := kit.WarehouseID
		kit.Name = name
		kit.Description = req.Description

		if req.WarehouseID == oldHome {
			return nil, s.deps.Kits.UpdateKit(ctx, tx, kit)
		}
		if err := roles.Require(actor, roles.CapManageKits, roles.WarehouseScope(req.WarehouseID)); err != nil {
			return nil, err
		}
		if err := requireStowed(kit); err != nil {
			return nil, err
		}
		if _, err := s.deps.Warehouses.GetWarehouse(ctx, req.WarehouseID); err != nil {
			return nil, err
		}
		kit.WarehouseID = req.WarehouseID
		if err := s.deps.Kits.UpdateKit(ctx, tx, kit); err != nil {
			return nil, err
		}

		items, err := s.moveStowed(ctx, tx, kit, oldHome)
		if err != nil {
			return nil, err
		}
		entry := &models.MovementLog{
			ActionType:  metadata.ActionKitEdit,
			Comment:     "kit moved to another warehouse",
			Composition: composition(items, nil),
		}
		entry.SetSource(models.AtWarehouse(oldHome))
		entry.SetTarget(models.AtWarehouse(kit.WarehouseID))
		return s.record(ctx, tx, actor, kit, entry)
	})
	if err != nil {
		return nil, err
	}
	return kit, nil
}

func (s *KitService) moveStowed(ctx context.Context, tx *goqu.TxDatabase, kit *models.ToolKit, oldHome int) ([]string, error) {
	var items []string
	home := models.AtWarehouse(kit.WarehouseID)
	kitTools, err := s.deps.Tools.ListTools(ctx, tx, models.ToolFilter{KitID: &kit.ID, WarehouseIDs: []int{oldHome}})
	if err != nil {
		return nil, err
	}
	for i := range kitTools {
		if err := s.deps.Relocator.PlaceTool(ctx, tx, &kitTools[i], home); err != nil {
			return nil, err
		}
		items = append(items, toolLine(kitTools[i]))
	}
	balances, err := s.deps.Balances.ListBalances(ctx, tx, models.BalanceFilter{KitID: &kit.ID, WarehouseIDs: []int{oldHome}})
	if err != nil {
		return nil, err
	}
	for i := range balances {
		qty := balances[i].Quantity
		if _, err := s.deps.Relocator.TransferQuantity(ctx, tx, &balances[i], qty, home); err != nil {
			return nil, err
		}
		items = append(items, balanceLine(balances[i], qty))
	}
	return items, nil
}

// Delete releases every tool and balance into the free stock of the home warehouse and
// removes the kit.
func (s *KitService) Delete(ctx context.Context, actor roles.Actor, id int) error {
	_, err := s.run(ctx, func(tx *goqu.TxDatabase) (*models.MovementLog, error) {
		kit, err := s.lockKit(ctx, tx, actor, roles.CapManageKits, id)
		if err != nil {
			return nil, err
		}
		if err := requireStowed(kit); err != nil {
			return nil, err
		}

		var items []string
		kitTools, err := s.deps.Tools.ListTools(ctx, tx, models.ToolFilter{KitID: &kit.ID})
		if err != nil {
			return nil, err
		}
		for i := range kitTools {
			if err := s.deps.Relocator.ReleaseTool(ctx, tx, &kitTools[i], kit.WarehouseID); err != nil {
				return nil, err
			}
			items = append(items, toolLine(kitTools[i]))
		}
		balances, err := s.deps.Balances.ListBalances(ctx, tx, models.BalanceFilter{KitID: &kit.ID})
		if err != nil {
			return nil, err
		}
		for i := range balances {
			qty := balances[i].Quantity
			if _, err := s.deps.Relocator.ReleaseQuantity(ctx, tx, &balances[i], qty, kit.WarehouseID); err != nil {
				return nil, err
			}
			items = append(items, balanceLine(balances[i], qty))
		}

		entry := &models.MovementLog{
			ActionType:  metadata.ActionKitEdit,
			Comment:     "kit disbanded",
			Composition: composition(items, nil),
		}
		entry.SetTarget(models.AtWarehouse(kit.WarehouseID))
		if _, err := s.record(ctx, tx, actor, kit, entry); err != nil {
			return nil, err
		}
		if err := s.deps.Kits.DeleteKit(ctx, tx, kit.ID); err != nil {
			return nil, err
		}
		return entry, nil
	})
	return err
}

// AddTool binds a free in-stock tool stored at the kit's home warehouse.
func (s *KitService) AddTool(ctx context.Context, actor roles.Actor, kitID, toolID int) (*models.MovementLog, error) {
	return s.run(ctx, func(tx *goqu.TxDatabase) (*models.MovementLog, error) {
		kit, err := s.lockKit(ctx, tx, actor, roles.CapManageKits, kitID)
		if err != nil {
			return nil, err
		}
		if err := requireStowed(kit); err != nil {
			return nil, err
		}
		tool, err := s.deps.Tools.GetTool(ctx, tx, toolID)
		if err != nil {
			return nil, err
		}
		switch {
		case tool.KitID != nil:
			return nil, custom_error.Invariant("tool %s already belongs to a kit", tool.InventoryID)
		case tool.IsBroken():
			return nil, custom_error.Invariant("tool %s is broken and cannot be put into a kit", tool.InventoryID)
		case tool.Location != models.AtWarehouse(kit.WarehouseID) || tool.Status != metadata.ToolInStock:
			return nil, custom_error.Invariant("tool %s is not in stock at the kit's warehouse", tool.InventoryID)
		}
		return s.deps.Relocator.MoveTool(ctx, tx, tool, models.InKit(kit.ID), placement.Move{
			Actor: actor, Action: metadata.ActionKitEdit, Comment: "added to kit",
		})
	})
}

// RemoveTool unbinds a stowed tool; it stays on the shelf of the home warehouse.
func (s *KitService) RemoveTool(ctx context.Context, actor roles.Actor, kitID, toolID int) (*models.MovementLog, error) {
	return s.run(ctx, func(tx *goqu.TxDatabase) (*models.MovementLog, error) {
		kit, err := s.lockKit(ctx, tx, actor, roles.CapManageKits, kitID)
		if err != nil {
			return nil, err
		}
		if err := requireStowed(kit); err != nil {
			return nil, err
		}
		tool, err := s.deps.Tools.GetTool(ctx, tx, toolID)
		if err != nil {
			return nil, err
		}
		if !tool.InKit(kit.ID) {
			return nil, custom_error.Invariant("tool %s is not part of kit %s", tool.InventoryID, kit.Name)
		}
		if tool.Location != models.AtWarehouse(kit.WarehouseID) {
			return nil, custom_error.Invariant("tool %s must be returned before it can leave the kit", tool.InventoryID)
		}
		if err := s.deps.Relocator.ReleaseTool(ctx, tx, tool, kit.WarehouseID); err != nil {
			return nil, err
		}

		entry := &models.MovementLog{ActionType: metadata.ActionKitEdit, Comment: "removed from kit", Quantity: 1}
		entry.SetSource(models.InKit(kit.ID))
		entry.SetTarget(tool.Location)
		if err := s.deps.Ledger.Record(ctx, tx, entry, models.SnapshotSource{Initiator: &actor, Tool: tool, Kit: kit}); err != nil {
			return nil, err
		}
		return entry, nil
	})
}

// AddConsumable moves qty units of free stock at the home warehouse into the kit.
func (s *KitService) AddConsumable(ctx context.Context, actor roles.Actor, kitID, balanceID, qty int) (*models.MovementLog, error) {
	return s.run(ctx, func(tx *goqu.TxDatabase) (*models.MovementLog, error) {
		kit, err := s.lockKit(ctx, tx, actor, roles.CapManageKits, kitID)
		if err != nil {
			return nil, err
		}
		if err := requireStowed(kit); err != nil {
			return nil, err
		}
		balance, err := s.deps.Balances.GetBalance(ctx, tx, balanceID)
		if err != nil {
			return nil, err
		}
		if balance.KitID != nil {
			return nil, custom_error.Invariant("%s already belongs to a kit", balance.Nomenclature.Label())
		}
		if balance.Location != models.AtWarehouse(kit.WarehouseID) {
			return nil, custom_error.Invariant("%s is not stored at the kit's warehouse", balance.Nomenclature.Label())
		}
		_, entry, err := s.deps.Relocator.MoveQuantity(ctx, tx, balance, qty, models.InKit(kit.ID), placement.Move{
			Actor: actor, Action: metadata.ActionKitEdit, Comment: "added to kit",
		})
		return entry, err
	})
}

// RemoveConsumable returns qty stowed units of a kit balance to the free stock.
func (s *KitService) RemoveConsumable(ctx context.Context, actor roles.Actor, kitID, balanceID, qty int) (*models.MovementLog, error) {
	return s.run(ctx, func(tx *goqu.TxDatabase) (*models.MovementLog, error) {
		kit, err := s.lockKit(ctx, tx, actor, roles.CapManageKits, kitID)
		if err != nil {
			return nil, err
		}
		if err := requireStowed(kit); err != nil {
			return nil, err
		}
		balance, err := s.deps.Balances.GetBalance(ctx, tx, balanceID)
		if err != nil {
			return nil, err
		}
		if !balance.InKit(kit.ID) {
			return nil, custom_error.Invariant("%s is not part of kit %s", balance.Nomenclature.Label(), kit.Name)
		}
		if balance.Location != models.AtWarehouse(kit.WarehouseID) {
			return nil, custom_error.Invariant("%s must be returned before it can leave the kit", balance.Nomenclature.Label())
		}
		nomenclature := balance.Nomenclature
		if _, err := s.deps.Relocator.ReleaseQuantity(ctx, tx, balance, qty, kit.WarehouseID); err != nil {
			return nil, err
		}

		entry := &models.MovementLog{ActionType: metadata.ActionKitEdit, Comment: "removed from kit", Quantity: qty}
		entry.SetSource(models.InKit(kit.ID))
		entry.SetTarget(models.AtWarehouse(kit.WarehouseID))
		if err := s.deps.Ledger.Record(ctx, tx, entry, models.SnapshotSource{Initiator: &actor, Nomenclature: &nomenclature, Kit: kit}); err != nil {
			return nil, err
		}
		return entry, nil
	})
}

// Issue hands the kit to a holder. Selected tools and balances go with the holder and stay
// bound to the kit; everything else is put back on the home shelf. Unselected tools still
// out with someone are taken back with their own RETURN row.
func (s *KitService) Issue(ctx context.Context, actor roles.Actor, kitID int, req models.KitIssueRequest) (*models.MovementLog, error) {
	var recalled []*models.MovementLog
	entry, err := s.run(ctx, func(tx *goqu.TxDatabase) (*models.MovementLog, error) {
		recalled = nil
		kit, err := s.lockKit(ctx, tx, actor, roles.CapIssueKits, kitID)
		if err != nil {
			return nil, err
		}
		if kit.IsIssued() {
			return nil, custom_error.Invariant("kit %s is already issued", kit.Name)
		}
		holder, err := s.activeUser(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		crew, names, err := s.crew(ctx, req.CoWorkerIDs, holder.ID)
		if err != nil {
			return nil, err
		}

		home := models.AtWarehouse(kit.WarehouseID)
		toHolder := models.WithHolder(holder.ID)
		var items []string

		kitTools, err := s.deps.Tools.ListTools(ctx, tx, models.ToolFilter{KitID: &kit.ID})
		if err != nil {
			return nil, err
		}
		if err := checkSelection(req.ToolIDs, toolIDs(kitTools), "tool", kit.Name); err != nil {
			return nil, err
		}
		for _, tool := range kitTools {
			if !slices.Contains(req.ToolIDs, tool.ID) {
				continue
			}
			if tool.IsBroken() {
				return nil, custom_error.Invariant("tool %s is broken and cannot be issued", tool.InventoryID)
			}
			if tool.Location != home && tool.Location != toHolder {
				return nil, custom_error.Invariant("tool %s is out at %s and cannot be issued with the kit", tool.InventoryID, tool.Location)
			}
		}
		for i := range kitTools {
			tool := &kitTools[i]
			if !slices.Contains(req.ToolIDs, tool.ID) {
				if tool.Location == home {
					continue
				}
				back, err := s.deps.Relocator.MoveTool(ctx, tx, tool, home, placement.Move{
					Actor:   actor,
					Action:  metadata.ActionReturn,
					Comment: fmt.Sprintf("taken back into kit %s on issue", kit.Name),
				})
				if err != nil {
					return nil, err
				}
				recalled = append(recalled, back)
				continue
			}
			if tool.Location != toHolder {
				if err := s.deps.Relocator.PlaceTool(ctx, tx, tool, toHolder); err != nil {
					return nil, err
				}
			}
			items = append(items, toolLine(*tool))
		}

		balances, err := s.deps.Balances.ListBalances(ctx, tx, models.BalanceFilter{KitID: &kit.ID})
		if err != nil {
			return nil, err
		}
		if err := checkSelection(req.BalanceIDs, balanceIDs(balances), "consumable balance", kit.Name); err != nil {
			return nil, err
		}
		for i := range balances {
			balance := &balances[i]
			dest := home
			if slices.Contains(req.BalanceIDs, balance.ID) {
				dest = toHolder
				items = append(items, balanceLine(*balance, balance.Quantity))
			}
			if balance.Location == dest {
				continue
			}
			if _, err := s.deps.Relocator.TransferQuantity(ctx, tx, balance, balance.Quantity, dest); err != nil {
				return nil, err
			}
		}

		kit.Status = metadata.KitIssued
		kit.HolderID = &holder.ID
		kit.CoWorkerIDs = crew
		if err := s.deps.Kits.UpdateKit(ctx, tx, kit); err != nil {
			return nil, err
		}

		entry := &models.MovementLog{
			ActionType:  metadata.ActionKitIssue,
			Comment:     req.Comment,
			Composition: composition(items, crewLine("crew", names)),
		}
		entry.SetSource(home)
		entry.SetTarget(toHolder)
		return s.record(ctx, tx, actor, kit, entry)
	})
	if err != nil {
		return nil, err
	}
	s.deps.Ledger.Announce(recalled...)
	return entry, nil
}

// Return brings the kit home. Kit tools whose last ledger row is a direct ISSUE made after
// the kit went out were handed out personally and stay with the holder.
func (s *KitService) Return(ctx context.Context, actor roles.Actor, kitID int, comment string) (*models.MovementLog, error) {
	return s.run(ctx, func(tx *goqu.TxDatabase) (*models.MovementLog, error) {
		kit, err := s.deps.Kits.GetKit(ctx, tx, kitID)
		if err != nil {
			return nil, err
		}
		if !kit.IsIssued() || kit.HolderID == nil {
			return nil, custom_error.Invariant("kit %s is not issued", kit.Name)
		}
		holderID := *kit.HolderID
		if !roles.Can(actor, roles.CapIssueKits, roles.WarehouseScope(kit.WarehouseID)) &&
			actor.UserID != holderID && !kit.HasCoWorker(actor.UserID) {
			return nil, custom_error.Forbidden("%s is not allowed to return kit %s", actor.DisplayName(), kit.Name)
		}

		home := models.AtWarehouse(kit.WarehouseID)
		var items []string

		kitTools, err := s.deps.Tools.ListTools(ctx, tx, models.ToolFilter{KitID: &kit.ID, HolderID: &holderID})
		if err != nil {
			return nil, err
		}
		for i := range kitTools {
			tool := &kitTools[i]
			last, err := s.deps.Ledger.LastToolAction(ctx, tx, tool.ID)
			if err != nil {
				return nil, err
			}
			if last == metadata.ActionIssue {
				personal, err := s.deps.Ledger.IssuedSinceKitIssue(ctx, tx, tool.ID, kit.ID)
				if err != nil {
					return nil, err
				}
				if personal {
					continue
				}
			}
			if err := s.deps.Relocator.PlaceTool(ctx, tx, tool, home); err != nil {
				return nil, err
			}
			items = append(items, toolLine(*tool))
		}

		balances, err := s.deps.Balances.ListBalances(ctx, tx, models.BalanceFilter{KitID: &kit.ID, HolderID: &holderID})
		if err != nil {
			return nil, err
		}
		for i := range balances {
			qty := balances[i].Quantity
			if _, err := s.deps.Relocator.TransferQuantity(ctx, tx, &balances[i], qty, home); err != nil {
				return nil, err
			}
			items = append(items, balanceLine(balances[i], qty))
		}

		_, names, err := s.crew(ctx, kit.CoWorkerIDs, holderID)
		if err != nil {
			return nil, err
		}
		kit.Status = metadata.KitInStock
		kit.HolderID = nil
		kit.CoWorkerIDs = nil
		if err := s.deps.Kits.UpdateKit(ctx, tx, kit); err != nil {
			return nil, err
		}

		if actor.UserID != holderID {
			comment = strings.TrimSpace(comment + " (accepted by " + actor.DisplayName() + ")")
		}
		entry := &models.MovementLog{
			ActionType:  metadata.ActionKitReturn,
			Comment:     comment,
			Composition: composition(items, crewLine("returned by crew", names)),
		}
		entry.SetSource(models.WithHolder(holderID))
		entry.SetTarget(home)
		return s.record(ctx, tx, actor, kit, entry)
	})
}

func (s *KitService) activeUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.deps.Users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, custom_error.Invariant("user %s is inactive and cannot hold items", user.DisplayName())
	}
	return user, nil
}

// crew deduplicates co-workers, drops the holder and resolves display names.
func (s *KitService) crew(ctx context.Context, ids []int, holderID int) ([]int, []string, error) {
	var crew []int
	var names []string
	for _, id := range ids {
		if id == holderID || slices.Contains(crew, id) {
			continue
		}
		user, err := s.deps.Users.GetUser(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		crew = append(crew, id)
		names = append(names, user.DisplayName())
	}
	return crew, names, nil
}

func (s *KitService) Get(ctx context.Context, actor roles.Actor, id int) (*models.KitContents, error) {
	kit, err := s.deps.Kits.GetKit(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, kit) {
		return nil, custom_error.Forbidden("%s is not allowed to view kit %s", actor.DisplayName(), kit.Name)
	}
	kitTools, err := s.deps.Tools.ListTools(ctx, nil, models.ToolFilter{KitID: &kit.ID})
	if err != nil {
		return nil, err
	}
	balances, err := s.deps.Balances.ListBalances(ctx, nil, models.BalanceFilter{KitID: &kit.ID})
	if err != nil {
		return nil, err
	}
	return &models.KitContents{ToolKit: *kit, Tools: kitTools, Consumables: balances}, nil
}

func canView(actor roles.Actor, kit *models.ToolKit) bool {
	if kit.HeldBy(actor.UserID) || kit.HasCoWorker(actor.UserID) {
		return true
	}
	allowed := actor.AllowedWarehouses()
	return allowed == nil || slices.Contains(allowed, kit.WarehouseID)
}

// List returns kits at the warehouses the actor may use plus the kits they carry.
func (s *KitService) List(ctx context.Context, actor roles.Actor, filter models.KitFilter) ([]models.ToolKit, error) {
	kits, err := s.deps.Kits.ListKits(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list kits: %w", err)
	}
	visible := make([]models.ToolKit, 0, len(kits))
	for i := range kits {
		if canView(actor, &kits[i]) {
			visible = append(visible, kits[i])
		}
	}
	return visible, nil
}

// Available lists the free stock at the kit's home that can be added to it.
func (s *KitService) Available(ctx context.Context, actor roles.Actor, id int) (*models.KitContents, error) {
	kit, err := s.deps.Kits.GetKit(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := roles.Require(actor, roles.CapManageKits, roles.WarehouseScope(kit.WarehouseID)); err != nil {
		return nil, err
	}
	inStock := metadata.ToolInStock
	free, err := s.deps.Tools.ListTools(ctx, nil, models.ToolFilter{
		WarehouseIDs: []int{kit.WarehouseID}, Status: &inStock, FreeOnly: true,
	})
	if err != nil {
		return nil, err
	}
	balances, err := s.deps.Balances.ListBalances(ctx, nil, models.BalanceFilter{
		WarehouseIDs: []int{kit.WarehouseID}, FreeOnly: true,
	})
	if err != nil {
		return nil, err
	}
	return &models.KitContents{ToolKit: *kit, Tools: free, Consumables: balances}, nil
}

func checkSelection(selected, members []int, what, kitName string) error {
	for _, id := range selected {
		if !slices.Contains(members, id) {
			return custom_error.Invariant("%s %d is not part of kit %s", what, id, kitName)
		}
	}
	return nil
}

func toolIDs(list []models.ToolInstance) []int {
	ids := make([]int, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	return ids
}

func balanceIDs(list []models.ConsumableBalance) []int {
	ids := make([]int, 0, len(list))
	for _, b := range list {
		ids = append(ids, b.ID)
	}
	return ids
}

func toolLine(t models.ToolInstance) string {
	return fmt.Sprintf("%s #%s", t.Nomenclature.Label(), t.InventoryID)
}

func balanceLine(b models.ConsumableBalance, qty int) string {
	return fmt.Sprintf("%s x%d", b.Nomenclature.Label(), qty)
}

func crewLine(prefix string, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	return []string{prefix + ": " + strings.Join(names, ", ")}
}

// composition renders the ledger snapshot of what moved with a kit.
func composition(items []string, extra []string) string {
	if len(items) == 0 {
		items = []string{"empty kit"}
	}
	return strings.Join(append(items, extra...), "\n")
}
