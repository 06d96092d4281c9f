package consumables

import (
	"context"
	"fmt"

	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type Repository interface {
	GetBalance(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ConsumableBalance, error)
	// FindBalance returns nil without an error when no balance exists for the key.
	FindBalance(ctx context.Context, tx *goqu.TxDatabase, nomenclatureID int, loc models.Location, kitID *int) (*models.ConsumableBalance, error)
	InsertBalance(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance) error
	UpdateBalance(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance) error
	DeleteBalance(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance) error
	ListBalances(ctx context.Context, tx *goqu.TxDatabase, filter models.BalanceFilter) ([]models.ConsumableBalance, error)
}

type BalanceRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *BalanceRepository {
	return &BalanceRepository{repository: r}
}

type balanceRecord struct {
	ID                  int               `db:"id"`
	NomenclatureID      int               `db:"nomenclature_id"`
	NomenclatureName    string            `db:"nomenclature_name"`
	NomenclatureArticle string            `db:"nomenclature_article"`
	NomenclatureType    metadata.ItemType `db:"nomenclature_item_type"`
	MinimumStock        int               `db:"nomenclature_minimum_stock"`
	Quantity            int               `db:"quantity"`
	WarehouseID         *int              `db:"warehouse_id"`
	HolderID            *int              `db:"holder_id"`
	CarID               *int              `db:"car_id"`
	KitID               *int              `db:"kit_id"`
	Version             int               `db:"version"`
}

func (r *BalanceRepository) GetBalance(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ConsumableBalance, error) {
	balance, err := r.selectOne(ctx, tx, goqu.Ex{"b.id": id})
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, custom_error.NotFound("consumable balance %d not found", id)
	}
	return balance, nil
}

func (r *BalanceRepository) FindBalance(ctx context.Context, tx *goqu.TxDatabase, nomenclatureID int, loc models.Location, kitID *int) (*models.ConsumableBalance, error) {
	if _, err := repository.PlacementColumns(loc); err != nil {
		return nil, err
	}
	return r.selectOne(ctx, tx,
		goqu.Ex{"b.nomenclature_id": nomenclatureID},
		repository.NullableEq("b.warehouse_id", loc.WarehouseID()),
		repository.NullableEq("b.holder_id", loc.HolderID()),
		repository.NullableEq("b.car_id", loc.VehicleID()),
		repository.NullableEq("b.kit_id", kitID),
	)
}

func (r *BalanceRepository) selectOne(ctx context.Context, tx *goqu.TxDatabase, where ...exp.Expression) (*models.ConsumableBalance, error) {
	query := r.getBalanceQuery(r.repository.Q(tx)).Where(where...)
	if tx != nil {
		query = query.ForUpdate(exp.Wait, goqu.T("b"))
	}

	var record balanceRecord
	found, err := query.Executor().ScanStructContext(ctx, &record)
	if err != nil {
		return nil, fmt.Errorf("unable to select consumable balance: %w", err)
	}
	if !found {
		return nil, nil
	}
	return transformToBalance(record)
}

func (r *BalanceRepository) InsertBalance(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance) error {
	record, err := repository.PlacementColumns(balance.Location)
	if err != nil {
		return err
	}
	record["nomenclature_id"] = balance.Nomenclature.ID
	record["quantity"] = balance.Quantity
	record["kit_id"] = balance.KitID

	var inserted struct {
		ID      int `db:"id"`
		Version int `db:"version"`
	}
	query := r.repository.Q(tx).Insert("consumable_balances").Rows(record).Returning("id", "version")
	if _, err := query.Executor().ScanStructContext(ctx, &inserted); err != nil {
		return repository.MapError(err, "Balance already exists at this location")
	}
	balance.ID = inserted.ID
	balance.Version = inserted.Version

	return nil
}

func (r *BalanceRepository) UpdateBalance(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance) error {
	record, err := repository.PlacementColumns(balance.Location)
	if err != nil {
		return err
	}
	record["quantity"] = balance.Quantity
	record["kit_id"] = balance.KitID
	record["version"] = goqu.L("version + 1")

	result, err := r.repository.Q(tx).Update("consumable_balances").
		Set(record).
		Where(goqu.Ex{"id": balance.ID, "version": balance.Version}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to update consumable balance")
	}
	if err := repository.CheckAffected(result, "consumable balance", balance.ID); err != nil {
		return err
	}
	balance.Version++

	return nil
}

func (r *BalanceRepository) DeleteBalance(ctx context.Context, tx *goqu.TxDatabase, balance *models.ConsumableBalance) error {
	result, err := r.repository.Q(tx).Delete("consumable_balances").
		Where(goqu.Ex{"id": balance.ID, "version": balance.Version}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to delete consumable balance")
	}
	return repository.CheckAffected(result, "consumable balance", balance.ID)
}

func (r *BalanceRepository) ListBalances(ctx context.Context, tx *goqu.TxDatabase, filter models.BalanceFilter) ([]models.ConsumableBalance, error) {
	aliases := map[string]string{
		"ids":             "b.id",
		"warehouse_ids":   "b.warehouse_id",
		"holder_id":       "b.holder_id",
		"car_id":          "b.car_id",
		"kit_id":          "b.kit_id",
		"nomenclature_id": "b.nomenclature_id",
	}

	conditions := repository.NewQueryBuilder()
	if filter.IDs != nil {
		conditions.AddCondition("ids", filter.IDs)
	}
	if filter.WarehouseIDs != nil {
		conditions.AddCondition("warehouse_ids", filter.WarehouseIDs)
	}
	if filter.HolderID != nil {
		conditions.AddCondition("holder_id", *filter.HolderID)
	}
	if filter.CarID != nil {
		conditions.AddCondition("car_id", *filter.CarID)
	}
	if filter.KitID != nil {
		conditions.AddCondition("kit_id", *filter.KitID)
	}
	if filter.NomenclatureID != nil {
		conditions.AddCondition("nomenclature_id", *filter.NomenclatureID)
	}
	if filter.FreeOnly {
		conditions.AddExpression(goqu.I("b.kit_id").IsNull())
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conditions.AddExpression(goqu.Or(
			goqu.I("n.name").ILike(pattern),
			goqu.I("n.article").ILike(pattern),
		))
	}

	query := r.getBalanceQuery(r.repository.Q(tx)).
		Where(conditions.BuildConditions(aliases)).
		Where(conditions.Expressions()...).
		Order(goqu.I("n.name").Asc(), goqu.I("b.id").Asc())
	if tx != nil {
		query = query.ForUpdate(exp.Wait, goqu.T("b"))
	}

	var records []balanceRecord
	if err := query.Executor().ScanStructsContext(ctx, &records); err != nil {
		return nil, fmt.Errorf("unable to select consumable balances: %w", err)
	}

	balances := make([]models.ConsumableBalance, 0, len(records))
	for _, record := range records {
		balance, err := transformToBalance(record)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *balance)
	}

	return balances, nil
}

func (r *BalanceRepository) getBalanceQuery(q repository.Querier) *goqu.SelectDataset {
	return q.From(goqu.T("consumable_balances").As("b")).
		Select(
			goqu.I("b.id").As("id"),
			goqu.I("n.id").As("nomenclature_id"),
			goqu.I("n.name").As("nomenclature_name"),
			goqu.I("n.article").As("nomenclature_article"),
			goqu.I("n.item_type").As("nomenclature_item_type"),
			goqu.I("n.minimum_stock").As("nomenclature_minimum_stock"),
			goqu.I("b.quantity").As("quantity"),
			goqu.I("b.warehouse_id").As("warehouse_id"),
			goqu.I("b.holder_id").As("holder_id"),
			goqu.I("b.car_id").As("car_id"),
			goqu.I("b.kit_id").As("kit_id"),
			goqu.I("b.version").As("version"),
		).
		InnerJoin(
			goqu.T("nomenclatures").As("n"),
			goqu.On(goqu.Ex{"b.nomenclature_id": goqu.I("n.id")}),
		)
}

func transformToBalance(record balanceRecord) (*models.ConsumableBalance, error) {
	location, err := models.LocationFromColumns(record.WarehouseID, record.HolderID, record.CarID)
	if err != nil {
		return nil, fmt.Errorf("consumable balance %d: %w", record.ID, err)
	}

	return &models.ConsumableBalance{
		ID: record.ID,
		Nomenclature: models.Nomenclature{
			ID:           record.NomenclatureID,
			Name:         record.NomenclatureName,
			Article:      record.NomenclatureArticle,
			ItemType:     record.NomenclatureType,
			MinimumStock: record.MinimumStock,
		},
		Quantity: record.Quantity,
		Location: location,
		KitID:    record.KitID,
		Version:  record.Version,
	}, nil
}
