package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// Repository persists tool instances. Reads inside a transaction lock the row.
type Repository interface {
	GetTool(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ToolInstance, error)
	GetToolByInventoryID(ctx context.Context, tx *goqu.TxDatabase, inventoryID string) (*models.ToolInstance, error)
	InsertTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance) error
	UpdateTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance) error
	DeleteTool(ctx context.Context, tx *goqu.TxDatabase, id int) error
	ListTools(ctx context.Context, tx *goqu.TxDatabase, filter models.ToolFilter) ([]models.ToolInstance, error)
}

type ToolRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *ToolRepository {
	return &ToolRepository{repository: r}
}

type toolRecord struct {
	ID                   int                 `db:"id"`
	NomenclatureID       int                 `db:"nomenclature_id"`
	NomenclatureName     string              `db:"nomenclature_name"`
	NomenclatureArticle  string              `db:"nomenclature_article"`
	NomenclatureItemType metadata.ItemType   `db:"nomenclature_item_type"`
	MinimumStock         int                 `db:"nomenclature_minimum_stock"`
	InventoryID          string              `db:"inventory_id"`
	Condition            metadata.Condition  `db:"condition"`
	Status               metadata.ToolStatus `db:"status"`
	PurchaseDate         *time.Time          `db:"purchase_date"`
	WarehouseID          *int                `db:"warehouse_id"`
	HolderID             *int                `db:"holder_id"`
	CarID                *int                `db:"car_id"`
	KitID                *int                `db:"kit_id"`
	Version              int                 `db:"version"`
	CreatedAt            time.Time           `db:"created_at"`
}

func (r *ToolRepository) GetTool(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ToolInstance, error) {
	return r.getOne(ctx, tx, goqu.Ex{"t.id": id}, fmt.Sprintf("tool %d not found", id))
}

func (r *ToolRepository) GetToolByInventoryID(ctx context.Context, tx *goqu.TxDatabase, inventoryID string) (*models.ToolInstance, error) {
	return r.getOne(ctx, tx, goqu.Ex{"t.inventory_id": inventoryID}, fmt.Sprintf("tool with inventory number %s not found", inventoryID))
}

func (r *ToolRepository) getOne(ctx context.Context, tx *goqu.TxDatabase, where goqu.Ex, notFound string) (*models.ToolInstance, error) {
	query := r.getToolQuery(r.repository.Q(tx)).Where(where)
	if tx != nil {
		query = query.ForUpdate(exp.Wait, goqu.T("t"))
	}

	var record toolRecord
	found, err := query.Executor().ScanStructContext(ctx, &record)
	if err != nil {
		return nil, fmt.Errorf("unable to select tool from database: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("%s", notFound)
	}

	return transformToTool(record)
}

func (r *ToolRepository) InsertTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance) error {
	record, err := repository.PlacementColumns(tool.Location)
	if err != nil {
		return err
	}
	record["nomenclature_id"] = tool.Nomenclature.ID
	record["inventory_id"] = tool.InventoryID
	record["condition"] = string(tool.Condition)
	record["status"] = string(tool.Status)
	record["purchase_date"] = tool.PurchaseDate
	record["kit_id"] = tool.KitID

	var inserted struct {
		ID        int       `db:"id"`
		Version   int       `db:"version"`
		CreatedAt time.Time `db:"created_at"`
	}
	query := r.repository.Q(tx).Insert("tool_instances").Rows(record).Returning("id", "version", "created_at")
	if _, err := query.Executor().ScanStructContext(ctx, &inserted); err != nil {
		return repository.MapError(err, "Tool with this inventory number already registered")
	}
	tool.ID = inserted.ID
	tool.Version = inserted.Version
	tool.CreatedAt = inserted.CreatedAt

	return nil
}

// UpdateTool writes every mutable column guarded by the version read earlier.
func (r *ToolRepository) UpdateTool(ctx context.Context, tx *goqu.TxDatabase, tool *models.ToolInstance) error {
	record, err := repository.PlacementColumns(tool.Location)
	if err != nil {
		return err
	}
	record["inventory_id"] = tool.InventoryID
	record["condition"] = string(tool.Condition)
	record["status"] = string(tool.Status)
	record["purchase_date"] = tool.PurchaseDate
	record["kit_id"] = tool.KitID
	record["version"] = goqu.L("version + 1")

	result, err := r.repository.Q(tx).Update("tool_instances").
		Set(record).
		Where(goqu.Ex{"id": tool.ID, "version": tool.Version}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to update tool")
	}
	if err := repository.CheckAffected(result, "tool", tool.ID); err != nil {
		return err
	}
	tool.Version++

	return nil
}

func (r *ToolRepository) DeleteTool(ctx context.Context, tx *goqu.TxDatabase, id int) error {
	result, err := r.repository.Q(tx).Delete("tool_instances").
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to delete tool")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("tool %d not found", id)
	}

	return nil
}

func (r *ToolRepository) ListTools(ctx context.Context, tx *goqu.TxDatabase, filter models.ToolFilter) ([]models.ToolInstance, error) {
	aliases := map[string]string{
		"ids":             "t.id",
		"warehouse_ids":   "t.warehouse_id",
		"holder_id":       "t.holder_id",
		"car_id":          "t.car_id",
		"kit_id":          "t.kit_id",
		"nomenclature_id": "t.nomenclature_id",
		"status":          "t.status",
		"condition":       "t.condition",
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
	if filter.Status != nil {
		conditions.AddCondition("status", string(*filter.Status))
	}
	if filter.Condition != nil {
		conditions.AddCondition("condition", string(*filter.Condition))
	}
	if filter.FreeOnly {
		conditions.AddExpression(goqu.I("t.kit_id").IsNull())
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conditions.AddExpression(goqu.Or(
			goqu.I("n.name").ILike(pattern),
			goqu.I("n.article").ILike(pattern),
			goqu.I("t.inventory_id").ILike(pattern),
		))
	}

	query := r.getToolQuery(r.repository.Q(tx)).
		Where(conditions.BuildConditions(aliases)).
		Where(conditions.Expressions()...).
		Order(goqu.I("n.name").Asc(), goqu.I("t.inventory_id").Asc())
	if tx != nil {
		query = query.ForUpdate(exp.Wait, goqu.T("t"))
	}

	var records []toolRecord
	if err := query.Executor().ScanStructsContext(ctx, &records); err != nil {
		return nil, fmt.Errorf("unable to select tools from database: %w", err)
	}

	tools := make([]models.ToolInstance, 0, len(records))
	for _, record := range records {
		tool, err := transformToTool(record)
		if err != nil {
			return nil, err
		}
		tools = append(tools, *tool)
	}

	return tools, nil
}

func (r *ToolRepository) getToolQuery(q repository.Querier) *goqu.SelectDataset {
	return q.From(goqu.T("tool_instances").As("t")).
		Select(
			goqu.I("t.id").As("id"),
			goqu.I("n.id").As("nomenclature_id"),
			goqu.I("n.name").As("nomenclature_name"),
			goqu.I("n.article").As("nomenclature_article"),
			goqu.I("n.item_type").As("nomenclature_item_type"),
			goqu.I("n.minimum_stock").As("nomenclature_minimum_stock"),
			goqu.I("t.inventory_id").As("inventory_id"),
			goqu.I("t.condition").As("condition"),
			goqu.I("t.status").As("status"),
			goqu.I("t.purchase_date").As("purchase_date"),
			goqu.I("t.warehouse_id").As("warehouse_id"),
			goqu.I("t.holder_id").As("holder_id"),
			goqu.I("t.car_id").As("car_id"),
			goqu.I("t.kit_id").As("kit_id"),
			goqu.I("t.version").As("version"),
			goqu.I("t.created_at").As("created_at"),
		).
		InnerJoin(
			goqu.T("nomenclatures").As("n"),
			goqu.On(goqu.Ex{"t.nomenclature_id": goqu.I("n.id")}),
		)
}

func transformToTool(record toolRecord) (*models.ToolInstance, error) {
	location, err := models.LocationFromColumns(record.WarehouseID, record.HolderID, record.CarID)
	if err != nil {
		return nil, fmt.Errorf("tool %d: %w", record.ID, err)
	}

	return &models.ToolInstance{
		ID: record.ID,
		Nomenclature: models.Nomenclature{
			ID:           record.NomenclatureID,
			Name:         record.NomenclatureName,
			Article:      record.NomenclatureArticle,
			ItemType:     record.NomenclatureItemType,
			MinimumStock: record.MinimumStock,
		},
		InventoryID:  record.InventoryID,
		Condition:    record.Condition,
		Status:       record.Status,
		PurchaseDate: record.PurchaseDate,
		Location:     location,
		KitID:        record.KitID,
		Version:      record.Version,
		CreatedAt:    record.CreatedAt,
	}, nil
}
