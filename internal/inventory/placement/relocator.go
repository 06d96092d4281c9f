package placement

import (
	"context"
	"fmt"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/consumables"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/tools"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

type Recorder interface {
	Record(ctx context.Context, tx *goqu.TxDatabase, entry *models.MovementLog, src models.SnapshotSource) error
}

type KitFinder interface {
	GetKit(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ToolKit, error)
}

// Move describes who performs a relocation and how it is labelled in the ledger.
type Move struct {
	Actor   roles.Actor
	Action  metadata.ActionType
	Comment string
}

// Relocator is the only code that changes where a tool or a consumable balance lives.
// Every method expects to run inside the caller's transaction with the entity locked.
type Relocator struct {
	tools    tools.Repository
	balances consumables.Repository
	kits     KitFinder
	ledger   Recorder
}

func NewRelocator(tr tools.Repository, br consumables.Repository, kits KitFinder, ledger Recorder) *Relocator {
	return &Relocator{tools: tr, balances: br, kits: kits, ledger: ledger}
}

// target is a resolved destination: the persisted placement plus the kit binding.
type target struct {
	physical models.Location
	kitID    *int
	kit      *models.ToolKit
}

func (r *Relocator) resolve(ctx context.Context, tx *goqu.TxDatabase, currentKit *int, dest models.Location, what string) (target, error) {
	switch dest.Kind {
	case models.LocationWarehouse:
		if currentKit != nil {
			kit, err := r.kits.GetKit(ctx, tx, *currentKit)
			if err != nil {
				return target{}, err
			}
			if kit.WarehouseID != dest.ID {
				return target{}, custom_error.Invariant(
					"%s belongs to kit %s stored at warehouse %d and cannot be placed at warehouse %d",
					what, kit.Name, kit.WarehouseID, dest.ID,
				)
			}
		}
		return target{physical: dest, kitID: currentKit}, nil
	case models.LocationHolder:
		return target{physical: dest, kitID: currentKit}, nil
	case models.LocationVehicle:
		if currentKit != nil {
			return target{}, custom_error.Invariant("%s belongs to a kit and cannot be loaded into a vehicle", what)
		}
		return target{physical: dest}, nil
	case models.LocationKit:
		if currentKit != nil && *currentKit != dest.ID {
			return target{}, custom_error.Invariant("%s is already bound to another kit", what)
		}
		kit, err := r.kits.GetKit(ctx, tx, dest.ID)
		if err != nil {
			return target{}, err
		}
		if kit.IsIssued() {
			return target{}, custom_error.Invariant("kit %s is issued and its contents cannot change", kit.Name)
		}
		kitID := kit.ID
		return target{physical: models.AtWarehouse(kit.WarehouseID), kitID: &kitID, kit: kit}, nil
	default:
		return target{}, custom_error.Invariant("destination is required")
	}
}

func sameKit(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// PlaceTool applies dest to the tool and persists it without writing a ledger row.
func (r *Relocator) PlaceTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance, dest models.Location) error {
	_, err := r.placeTool(ctx, tx, tool, dest)
	return err
}

func (r *Relocator) placeTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance, dest models.Location) (target, error) {
	what := "tool " + tool.InventoryID
	if !dest.Is(models.LocationWarehouse) && tool.IsBroken() {
		return target{}, custom_error.Invariant("%s is broken and cannot be issued or put into a kit", what)
	}

	t, err := r.resolve(ctx, tx, tool.KitID, dest, what)
	if err != nil {
		return target{}, err
	}
	if t.physical == tool.Location && sameKit(t.kitID, tool.KitID) {
		return target{}, custom_error.Invariant("%s is already at %s", what, dest)
	}

	switch {
	case !t.physical.Is(models.LocationWarehouse):
		tool.Status = metadata.ToolIssued
	case tool.IsBroken():
		tool.Status = metadata.ToolBroken
	default:
		tool.Status = metadata.ToolInStock
	}
	tool.Location = t.physical
	tool.KitID = t.kitID

	if err := r.tools.UpdateTool(ctx, tx, tool); err != nil {
		return target{}, err
	}
	return t, nil
}

// MoveTool relocates a tool and appends exactly one ledger row describing the move.
func (r *Relocator) MoveTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance, dest models.Location, move Move) (*models.MovementLog, error) {
	source := tool.Location
	t, err := r.placeTool(ctx, tx, tool, dest)
	if err != nil {
		return nil, err
	}

	entry := &models.MovementLog{ActionType: move.Action, Comment: move.Comment}
	entry.SetSource(source)
	entry.SetTarget(dest)
	if err := r.ledger.Record(ctx, tx, entry, models.SnapshotSource{
		Initiator: &move.Actor,
		Tool:      tool,
		Kit:       t.kit,
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

func checkQuantity(balance *models.ConsumableBalance, qty int) error {
	if qty <= 0 {
		return custom_error.Invariant("quantity must be positive")
	}
	if qty > balance.Quantity {
		return custom_error.Invariant(
			"insufficient quantity of %s: %d available, %d requested",
			balance.Nomenclature.Label(), balance.Quantity, qty,
		)
	}
	return nil
}

// TransferQuantity moves qty units of a balance to dest. The destination balance with the
// same nomenclature, placement and kit binding absorbs the units if it exists; a source
// row that reaches zero is deleted. The returned balance is the one holding the units now.
func (r *Relocator) TransferQuantity(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance, qty int, dest models.Location) (*models.ConsumableBalance, error) {
	moved, _, err := r.transferQuantity(ctx, tx, balance, qty, dest)
	return moved, err
}

func (r *Relocator) transferQuantity(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance, qty int, dest models.Location) (*models.ConsumableBalance, target, error) {
	if err := checkQuantity(balance, qty); err != nil {
		return nil, target{}, err
	}
	t, err := r.resolve(ctx, tx, balance.KitID, dest, balance.Nomenclature.Label())
	if err != nil {
		return nil, target{}, err
	}
	if t.physical == balance.Location && sameKit(t.kitID, balance.KitID) {
		return nil, target{}, custom_error.Invariant("%s is already at %s", balance.Nomenclature.Label(), dest)
	}
	moved, err := r.shift(ctx, tx, balance, qty, t)
	return moved, t, err
}

// shift moves qty units to an already validated target.
func (r *Relocator) shift(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance, qty int, t target) (*models.ConsumableBalance, error) {
	existing, err := r.balances.FindBalance(ctx, tx, balance.Nomenclature.ID, t.physical, t.kitID)
	if err != nil {
		return nil, err
	}

	if existing == nil && qty == balance.Quantity {
		balance.Location = t.physical
		balance.KitID = t.kitID
		if err := r.balances.UpdateBalance(ctx, tx, balance); err != nil {
			return nil, err
		}
		return balance, nil
	}

	if err := r.decrease(ctx, tx, balance, qty); err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Quantity += qty
		if err := r.balances.UpdateBalance(ctx, tx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	created := &models.ConsumableBalance{
		Nomenclature: balance.Nomenclature,
		Quantity:     qty,
		Location:     t.physical,
		KitID:        t.kitID,
	}
	if err := r.balances.InsertBalance(ctx, tx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Relocator) decrease(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance, qty int) error {
	balance.Quantity -= qty
	if balance.Quantity == 0 {
		return r.balances.DeleteBalance(ctx, tx, balance)
	}
	return r.balances.UpdateBalance(ctx, tx, balance)
}

// MoveQuantity is TransferQuantity followed by one ledger row carrying the quantity.
func (r *Relocator) MoveQuantity(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance, qty int, dest models.Location, move Move) (*models.ConsumableBalance, *models.MovementLog, error) {
	source := balance.Location
	nomenclature := balance.Nomenclature

	moved, t, err := r.transferQuantity(ctx, tx, balance, qty, dest)
	if err != nil {
		return nil, nil, err
	}

	entry := &models.MovementLog{ActionType: move.Action, Comment: move.Comment, Quantity: qty}
	entry.SetSource(source)
	entry.SetTarget(dest)
	if err := r.ledger.Record(ctx, tx, entry, models.SnapshotSource{
		Initiator:    &move.Actor,
		Nomenclature: &nomenclature,
		Kit:          t.kit,
	}); err != nil {
		return nil, nil, err
	}
	return moved, entry, nil
}

// Deposit adds qty units of a nomenclature to the free stock at a warehouse, merging into
// the existing balance. It does not write a ledger row.
func (r *Relocator) Deposit(ctx context.Context, tx *goqu.TxDatabase, nomenclature models.Nomenclature, qty int, warehouseID int) (*models.ConsumableBalance, error) {
	if qty <= 0 {
		return nil, custom_error.Invariant("quantity must be positive")
	}
	if nomenclature.ItemType != metadata.ItemConsumable {
		return nil, custom_error.Invariant("%s is not a consumable", nomenclature.Label())
	}

	dest := models.AtWarehouse(warehouseID)
	existing, err := r.balances.FindBalance(ctx, tx, nomenclature.ID, dest, nil)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Quantity += qty
		if err := r.balances.UpdateBalance(ctx, tx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	created := &models.ConsumableBalance{Nomenclature: nomenclature, Quantity: qty, Location: dest}
	if err := r.balances.InsertBalance(ctx, tx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// WriteOffTool records the terminal WRITEOFF row and then removes the tool. The row keeps
// the serial and nomenclature snapshots after the tool is gone.
func (r *Relocator) WriteOffTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance, move Move) (*models.MovementLog, error) {
	entry := &models.MovementLog{ActionType: metadata.ActionWriteOff, Comment: move.Comment}
	entry.SetSource(tool.Location)
	if err := r.ledger.Record(ctx, tx, entry, models.SnapshotSource{Initiator: &move.Actor, Tool: tool}); err != nil {
		return nil, err
	}
	if err := r.tools.DeleteTool(ctx, tx, tool.ID); err != nil {
		return nil, fmt.Errorf("failed to remove written off tool: %w", err)
	}
	return entry, nil
}

func (r *Relocator) WriteOffQuantity(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance, qty int, move Move) (*models.MovementLog, error) {
	if err := checkQuantity(balance, qty); err != nil {
		return nil, err
	}

	entry := &models.MovementLog{ActionType: metadata.ActionWriteOff, Comment: move.Comment, Quantity: qty}
	entry.SetSource(balance.Location)
	if err := r.ledger.Record(ctx, tx, entry, models.SnapshotSource{
		Initiator:    &move.Actor,
		Nomenclature: &balance.Nomenclature,
	}); err != nil {
		return nil, err
	}
	if err := r.decrease(ctx, tx, balance, qty); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReleaseTool unbinds a tool from its kit and stores it free at a warehouse. The caller
// writes the ledger row.
func (r *Relocator) ReleaseTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance, warehouseID int) error {
	if tool.KitID == nil {
		return custom_error.Invariant("tool %s is not bound to a kit", tool.InventoryID)
	}
	tool.KitID = nil
	tool.Location = models.AtWarehouse(warehouseID)
	if tool.IsBroken() {
		tool.Status = metadata.ToolBroken
	} else {
		tool.Status = metadata.ToolInStock
	}
	return r.tools.UpdateTool(ctx, tx, tool)
}

// ReleaseQuantity unbinds qty units of a kit balance into the free stock of a warehouse,
// merging with what is already there.
func (r *Relocator) ReleaseQuantity(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance, qty int, warehouseID int) (*models.ConsumableBalance, error) {
	if balance.KitID == nil {
		return nil, custom_error.Invariant("%s is not bound to a kit", balance.Nomenclature.Label())
	}
	if err := checkQuantity(balance, qty); err != nil {
		return nil, err
	}
	return r.shift(ctx, tx, balance, qty, target{physical: models.AtWarehouse(warehouseID)})
}
