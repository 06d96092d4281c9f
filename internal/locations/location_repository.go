package locations

import (
	"context"
	"fmt"

	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type Repository interface {
	GetWarehouse(ctx context.Context, id int) (*models.Warehouse, error)
	ListWarehouses(ctx context.Context, ids []int) ([]models.Warehouse, error)
	InsertWarehouse(ctx context.Context, w *models.Warehouse) error
	UpdateWarehouse(ctx context.Context, w *models.Warehouse) error
	DeleteWarehouse(ctx context.Context, id int) error
}

type LocationRepository struct {
	Repository *repository.Repository
}

func NewLocationRepository(r *repository.Repository) *LocationRepository {
	return &LocationRepository{Repository: r}
}

func (r *LocationRepository) GetWarehouse(ctx context.Context, id int) (*models.Warehouse, error) {
	var w models.Warehouse
	found, err := r.Repository.GoquDBWrapper.From("warehouses").
		Select("id", "name", "address").
		Where(goqu.Ex{"id": id}).
		Executor().
		ScanStructContext(ctx, &w)
	if err != nil {
		return nil, fmt.Errorf("unable to select warehouse: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("warehouse %d not found", id)
	}
	return &w, nil
}

// ListWarehouses returns every warehouse when ids is nil.
func (r *LocationRepository) ListWarehouses(ctx context.Context, ids []int) ([]models.Warehouse, error) {
	query := r.Repository.GoquDBWrapper.From("warehouses").
		Select("id", "name", "address").
		Order(goqu.I("name").Asc())
	if ids != nil {
		query = query.Where(goqu.Ex{"id": ids})
	}

	warehouses := []models.Warehouse{}
	if err := query.Executor().ScanStructsContext(ctx, &warehouses); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return warehouses, nil
}

func (r *LocationRepository) InsertWarehouse(ctx context.Context, w *models.Warehouse) error {
	query := r.Repository.GoquDBWrapper.Insert("warehouses").
		Rows(goqu.Record{
			"name":    w.Name,
			"address": w.Address,
		}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &w.ID); err != nil {
		return repository.MapError(err, "Warehouse with this name already exists")
	}
	return nil
}

func (r *LocationRepository) UpdateWarehouse(ctx context.Context, w *models.Warehouse) error {
	result, err := r.Repository.GoquDBWrapper.Update("warehouses").
		Set(goqu.Record{
			"name":    w.Name,
			"address": w.Address,
		}).
		Where(goqu.Ex{"id": w.ID}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "Warehouse with this name already exists")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("warehouse %d not found", w.ID)
	}
	return nil
}

// DeleteWarehouse relies on the stock and kit foreign keys: a referenced warehouse comes back
// as a conflict. Access grants to it are dropped with it.
func (r *LocationRepository) DeleteWarehouse(ctx context.Context, id int) error {
	result, err := r.Repository.GoquDBWrapper.Delete("warehouses").
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "Warehouse still holds stock or kits")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("warehouse %d not found", id)
	}
	return nil
}
