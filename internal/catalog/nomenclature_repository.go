package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type Repository interface {
	GetNomenclature(ctx context.Context, id int) (*models.Nomenclature, error)
	ListNomenclatures(ctx context.Context, filter models.NomenclatureFilter) ([]models.Nomenclature, error)
	InsertNomenclature(ctx context.Context, n *models.Nomenclature) error
	UpdateNomenclature(ctx context.Context, n *models.Nomenclature) error
	DeleteNomenclature(ctx context.Context, id int) error
	HasStock(ctx context.Context, id int) (bool, error)
}

type NomenclatureRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *NomenclatureRepository {
	return &NomenclatureRepository{repository: r}
}

var nomenclatureColumns = []interface{}{"id", "name", "article", "item_type", "minimum_stock", "description", "created_at"}

func (r *NomenclatureRepository) GetNomenclature(ctx context.Context, id int) (*models.Nomenclature, error) {
	var n models.Nomenclature
	found, err := r.repository.GoquDBWrapper.From("nomenclatures").
		Select(nomenclatureColumns...).
		Where(goqu.Ex{"id": id}).
		Executor().
		ScanStructContext(ctx, &n)
	if err != nil {
		return nil, fmt.Errorf("unable to select nomenclature: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("nomenclature %d not found", id)
	}
	return &n, nil
}

func (r *NomenclatureRepository) ListNomenclatures(ctx context.Context, filter models.NomenclatureFilter) ([]models.Nomenclature, error) {
	query := r.repository.GoquDBWrapper.From("nomenclatures").
		Select(nomenclatureColumns...).
		Order(goqu.I("name").Asc(), goqu.I("article").Asc())
	if filter.ItemType != nil {
		query = query.Where(goqu.Ex{"item_type": string(*filter.ItemType)})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(goqu.Or(
			goqu.I("name").ILike(pattern),
			goqu.I("article").ILike(pattern),
		))
	}

	nomenclatures := []models.Nomenclature{}
	if err := query.Executor().ScanStructsContext(ctx, &nomenclatures); err != nil {
		return nil, fmt.Errorf("unable to select nomenclatures: %w", err)
	}
	return nomenclatures, nil
}

func (r *NomenclatureRepository) InsertNomenclature(ctx context.Context, n *models.Nomenclature) error {
	query := r.repository.GoquDBWrapper.Insert("nomenclatures").
		Rows(goqu.Record{
			"name":          n.Name,
			"article":       n.Article,
			"item_type":     string(n.ItemType),
			"minimum_stock": n.MinimumStock,
			"description":   n.Description,
		}).
		Returning("id", "created_at")

	var inserted struct {
		ID        int       `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if _, err := query.Executor().ScanStructContext(ctx, &inserted); err != nil {
		return repository.MapError(err, "Nomenclature with this name and article already exists")
	}
	n.ID = inserted.ID
	n.CreatedAt = inserted.CreatedAt
	return nil
}

func (r *NomenclatureRepository) UpdateNomenclature(ctx context.Context, n *models.Nomenclature) error {
	result, err := r.repository.GoquDBWrapper.Update("nomenclatures").
		Set(goqu.Record{
			"name":          n.Name,
			"article":       n.Article,
			"item_type":     string(n.ItemType),
			"minimum_stock": n.MinimumStock,
			"description":   n.Description,
		}).
		Where(goqu.Ex{"id": n.ID}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "Nomenclature with this name and article already exists")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("nomenclature %d not found", n.ID)
	}
	return nil
}

func (r *NomenclatureRepository) DeleteNomenclature(ctx context.Context, id int) error {
	result, err := r.repository.GoquDBWrapper.Delete("nomenclatures").
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "Nomenclature is still referenced by stock")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("nomenclature %d not found", id)
	}
	return nil
}

// HasStock reports whether any tool or balance still uses the nomenclature.
func (r *NomenclatureRepository) HasStock(ctx context.Context, id int) (bool, error) {
	db := r.repository.GoquDBWrapper
	tools := db.From("tool_instances").Select(goqu.L("1")).Where(goqu.Ex{"nomenclature_id": id})
	balances := db.From("consumable_balances").Select(goqu.L("1")).Where(goqu.Ex{"nomenclature_id": id})

	var exists bool
	_, err := db.Select(goqu.Or(
		goqu.Func("EXISTS", tools),
		goqu.Func("EXISTS", balances),
	)).Executor().ScanValContext(ctx, &exists)
	if err != nil {
		return false, fmt.Errorf("unable to check nomenclature usage: %w", err)
	}
	return exists, nil
}
