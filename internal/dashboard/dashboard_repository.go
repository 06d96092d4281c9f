package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type Repository interface {
	// CountMovements counts log entries in [from, to). An empty include list means every action.
	CountMovements(ctx context.Context, from, to time.Time, include, exclude []metadata.ActionType) (int, error)
	CountActiveUsers(ctx context.Context, from, to time.Time) (int, error)
	CountWarehousesWithTools(ctx context.Context) (int, error)
	CountActiveHolders(ctx context.Context) (int, error)
	CountKits(ctx context.Context, status metadata.KitStatus) (int, error)
	CountCars(ctx context.Context, status metadata.CarStatus) (int, error)
	LowStock(ctx context.Context) ([]models.LowStockItem, error)
}

type DashboardRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *DashboardRepository {
	return &DashboardRepository{repository: r}
}

func actionStrings(actions []metadata.ActionType) []string {
	values := make([]string, 0, len(actions))
	for _, a := range actions {
		values = append(values, string(a))
	}
	return values
}

func periodWhere(from, to time.Time) []exp.Expression {
	return []exp.Expression{
		goqu.C("created_at").Gte(from),
		goqu.C("created_at").Lt(to),
	}
}

func (r *DashboardRepository) CountMovements(ctx context.Context, from, to time.Time, include, exclude []metadata.ActionType) (int, error) {
	where := periodWhere(from, to)
	if len(include) > 0 {
		where = append(where, goqu.C("action_type").In(actionStrings(include)))
	}
	if len(exclude) > 0 {
		where = append(where, goqu.C("action_type").NotIn(actionStrings(exclude)))
	}

	count, err := r.repository.GoquDBWrapper.From("movement_logs").Where(where...).CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count movements: %w", err)
	}
	return int(count), nil
}

func (r *DashboardRepository) CountActiveUsers(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	where := append(periodWhere(from, to), goqu.C("initiator_id").IsNotNull())
	_, err := r.repository.GoquDBWrapper.From("movement_logs").
		Select(goqu.COUNT(goqu.DISTINCT("initiator_id"))).
		Where(where...).
		Executor().
		ScanValContext(ctx, &count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return count, nil
}

func (r *DashboardRepository) CountWarehousesWithTools(ctx context.Context) (int, error) {
	var count int
	_, err := r.repository.GoquDBWrapper.From("tool_instances").
		Select(goqu.COUNT(goqu.DISTINCT("warehouse_id"))).
		Where(goqu.C("warehouse_id").IsNotNull()).
		Executor().
		ScanValContext(ctx, &count)
	if err != nil {
		return 0, fmt.Errorf("failed to count warehouses with tools: %w", err)
	}
	return count, nil
}

// CountActiveHolders counts employees holding at least one tool or consumable.
func (r *DashboardRepository) CountActiveHolders(ctx context.Context) (int, error) {
	db := r.repository.GoquDBWrapper
	holders := db.From("tool_instances").
		Select("holder_id").
		Where(goqu.C("holder_id").IsNotNull()).
		Union(db.From("consumable_balances").
			Select("holder_id").
			Where(goqu.C("holder_id").IsNotNull(), goqu.C("quantity").Gt(0)))

	count, err := db.From(holders.As("h")).CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count holders: %w", err)
	}
	return int(count), nil
}

func (r *DashboardRepository) CountKits(ctx context.Context, status metadata.KitStatus) (int, error) {
	count, err := r.repository.GoquDBWrapper.From("tool_kits").
		Where(goqu.Ex{"status": string(status)}).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count kits: %w", err)
	}
	return int(count), nil
}

func (r *DashboardRepository) CountCars(ctx context.Context, status metadata.CarStatus) (int, error) {
	count, err := r.repository.GoquDBWrapper.From("cars").
		Where(goqu.Ex{"status": string(status)}).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count cars: %w", err)
	}
	return int(count), nil
}

// LowStock sums free warehouse balances of consumables with a minimum set, keeping the
// ones at or below it, plus consumables no warehouse stocks at all.
func (r *DashboardRepository) LowStock(ctx context.Context) ([]models.LowStockItem, error) {
	db := r.repository.GoquDBWrapper
	var low []models.LowStockItem
	err := db.From(goqu.T("consumable_balances").As("b")).
		Join(goqu.T("nomenclatures").As("n"), goqu.On(goqu.Ex{"n.id": goqu.I("b.nomenclature_id")})).
		Join(goqu.T("warehouses").As("w"), goqu.On(goqu.Ex{"w.id": goqu.I("b.warehouse_id")})).
		Select(
			goqu.I("w.id").As("warehouse_id"),
			goqu.I("w.name").As("warehouse_name"),
			goqu.I("n.id").As("nomenclature_id"),
			goqu.I("n.name").As("name"),
			goqu.I("n.article").As("article"),
			goqu.I("n.minimum_stock").As("minimum_stock"),
			goqu.SUM("b.quantity").As("quantity"),
		).
		Where(goqu.I("n.minimum_stock").Gt(0), goqu.I("b.kit_id").IsNull()).
		GroupBy("w.id", "w.name", "n.id", "n.name", "n.article", "n.minimum_stock").
		Having(goqu.SUM("b.quantity").Lte(goqu.I("n.minimum_stock"))).
		Order(goqu.I("w.name").Asc(), goqu.I("n.name").Asc()).
		ScanStructsContext(ctx, &low)
	if err != nil {
		return nil, fmt.Errorf("failed to get low stock: %w", err)
	}

	stocked := db.From(goqu.T("consumable_balances").As("b")).
		Select(goqu.L("1")).
		Where(
			goqu.Ex{"b.nomenclature_id": goqu.I("n.id")},
			goqu.I("b.warehouse_id").IsNotNull(),
			goqu.I("b.kit_id").IsNull(),
		)
	var missing []models.LowStockItem
	err = db.From(goqu.T("nomenclatures").As("n")).
		Select(
			goqu.I("n.id").As("nomenclature_id"),
			goqu.I("n.name").As("name"),
			goqu.I("n.article").As("article"),
			goqu.I("n.minimum_stock").As("minimum_stock"),
			goqu.L("0").As("quantity"),
		).
		Where(
			goqu.I("n.minimum_stock").Gt(0),
			goqu.I("n.item_type").Eq(string(metadata.ItemConsumable)),
			goqu.L("NOT EXISTS ?", stocked),
		).
		Order(goqu.I("n.name").Asc()).
		ScanStructsContext(ctx, &missing)
	if err != nil {
		return nil, fmt.Errorf("failed to get missing stock: %w", err)
	}

	return append(low, missing...), nil
}
