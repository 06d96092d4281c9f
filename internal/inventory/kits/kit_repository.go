package kits

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
	GetKit(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ToolKit, error)
	InsertKit(ctx context.Context, tx *goqu.TxDatabase, kit *models.ToolKit) error
	UpdateKit(ctx context.Context, tx *goqu.TxDatabase, kit *models.ToolKit) error
	DeleteKit(ctx context.Context, tx *goqu.TxDatabase, id int) error
	ListKits(ctx context.Context, filter models.KitFilter) ([]models.ToolKit, error)
}

type KitRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *KitRepository {
	return &KitRepository{repository: r}
}

type kitRecord struct {
	ID          int                `db:"id"`
	Name        string             `db:"name"`
	WarehouseID int                `db:"warehouse_id"`
	Status      metadata.KitStatus `db:"status"`
	HolderID    *int               `db:"holder_id"`
	Description *string            `db:"description"`
	Version     int                `db:"version"`
}

type coWorkerRecord struct {
	KitID  int `db:"kit_id"`
	UserID int `db:"user_id"`
}

func (r *KitRepository) GetKit(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ToolKit, error) {
	query := r.repository.Q(tx).From(goqu.T("tool_kits").As("k")).
		Select("k.id", "k.name", "k.warehouse_id", "k.status", "k.holder_id", "k.description", "k.version").
		Where(goqu.Ex{"k.id": id})
	if tx != nil {
		query = query.ForUpdate(exp.Wait)
	}

	var record kitRecord
	found, err := query.Executor().ScanStructContext(ctx, &record)
	if err != nil {
		return nil, fmt.Errorf("unable to select kit: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("kit %d not found", id)
	}

	coWorkers, err := r.getCoWorkers(ctx, tx, []int{id})
	if err != nil {
		return nil, err
	}

	kit := transformToKit(record)
	kit.CoWorkerIDs = coWorkers[id]
	return &kit, nil
}

func (r *KitRepository) InsertKit(ctx context.Context, tx *goqu.TxDatabase, kit *models.ToolKit) error {
	var inserted struct {
		ID      int `db:"id"`
		Version int `db:"version"`
	}
	query := r.repository.Q(tx).Insert("tool_kits").Rows(goqu.Record{
		"name":         kit.Name,
		"warehouse_id": kit.WarehouseID,
		"status":       string(kit.Status),
		"holder_id":    kit.HolderID,
		"description":  kit.Description,
	}).Returning("id", "version")
	if _, err := query.Executor().ScanStructContext(ctx, &inserted); err != nil {
		return repository.MapError(err, "Kit with this name already exists")
	}
	kit.ID = inserted.ID
	kit.Version = inserted.Version

	return r.replaceCoWorkers(ctx, tx, kit.ID, kit.CoWorkerIDs)
}

// UpdateKit persists the kit row guarded by its version and replaces the co-worker set.
func (r *KitRepository) UpdateKit(ctx context.Context, tx *goqu.TxDatabase, kit *models.ToolKit) error {
	result, err := r.repository.Q(tx).Update("tool_kits").
		Set(goqu.Record{
			"name":         kit.Name,
			"warehouse_id": kit.WarehouseID,
			"status":       string(kit.Status),
			"holder_id":    kit.HolderID,
			"description":  kit.Description,
			"version":      goqu.L("version + 1"),
		}).
		Where(goqu.Ex{"id": kit.ID, "version": kit.Version}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to update kit")
	}
	if err := repository.CheckAffected(result, "kit", kit.ID); err != nil {
		return err
	}
	kit.Version++

	return r.replaceCoWorkers(ctx, tx, kit.ID, kit.CoWorkerIDs)
}

func (r *KitRepository) replaceCoWorkers(ctx context.Context, tx *goqu.TxDatabase, kitID int, userIDs []int) error {
	q := r.repository.Q(tx)
	if _, err := q.Delete("kit_co_workers").Where(goqu.Ex{"kit_id": kitID}).Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to clear kit co-workers: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, coWorkerRecord{KitID: kitID, UserID: userID})
	}
	if _, err := q.Insert("kit_co_workers").Rows(rows...).Executor().ExecContext(ctx); err != nil {
		return repository.MapError(err, "failed to store kit co-workers")
	}
	return nil
}

func (r *KitRepository) DeleteKit(ctx context.Context, tx *goqu.TxDatabase, id int) error {
	result, err := r.repository.Q(tx).Delete("tool_kits").
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to delete kit")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("kit %d not found", id)
	}
	return nil
}

func (r *KitRepository) ListKits(ctx context.Context, filter models.KitFilter) ([]models.ToolKit, error) {
	aliases := map[string]string{
		"warehouse_ids": "k.warehouse_id",
		"status":        "k.status",
		"holder_id":     "k.holder_id",
	}
	conditions := repository.NewQueryBuilder()
	if filter.WarehouseIDs != nil {
		conditions.AddCondition("warehouse_ids", filter.WarehouseIDs)
	}
	if filter.Status != nil {
		conditions.AddCondition("status", string(*filter.Status))
	}
	if filter.HolderID != nil {
		conditions.AddCondition("holder_id", *filter.HolderID)
	}

	var records []kitRecord
	err := r.repository.GoquDBWrapper.From(goqu.T("tool_kits").As("k")).
		Select("k.id", "k.name", "k.warehouse_id", "k.status", "k.holder_id", "k.description", "k.version").
		Where(conditions.BuildConditions(aliases)).
		Order(goqu.I("k.name").Asc()).
		Executor().
		ScanStructsContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("unable to select kits: %w", err)
	}

	ids := make([]int, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	coWorkers, err := r.getCoWorkers(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	kits := make([]models.ToolKit, 0, len(records))
	for _, record := range records {
		kit := transformToKit(record)
		kit.CoWorkerIDs = coWorkers[record.ID]
		kits = append(kits, kit)
	}
	return kits, nil
}

func (r *KitRepository) getCoWorkers(ctx context.Context, tx *goqu.TxDatabase, kitIDs []int) (map[int][]int, error) {
	result := make(map[int][]int)
	if len(kitIDs) == 0 {
		return result, nil
	}

	var records []coWorkerRecord
	err := r.repository.Q(tx).From("kit_co_workers").
		Select("kit_id", "user_id").
		Where(goqu.Ex{"kit_id": kitIDs}).
		Order(goqu.I("user_id").Asc()).
		Executor().
		ScanStructsContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("unable to select kit co-workers: %w", err)
	}
	for _, record := range records {
		result[record.KitID] = append(result[record.KitID], record.UserID)
	}
	return result, nil
}

func transformToKit(record kitRecord) models.ToolKit {
	return models.ToolKit{
		ID:          record.ID,
		Name:        record.Name,
		WarehouseID: record.WarehouseID,
		Status:      record.Status,
		HolderID:    record.HolderID,
		Description: record.Description,
		Version:     record.Version,
	}
}
