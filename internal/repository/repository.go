package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
)

type Repository struct {
	DB            *sql.DB
	GoquDBWrapper *goqu.Database
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DB:            db,
		GoquDBWrapper: goqu.New("postgres", db),
	}
}

// Querier is the part of goqu shared by *goqu.Database and *goqu.TxDatabase.
type Querier interface {
	From(from ...interface{}) *goqu.SelectDataset
	Select(cols ...interface{}) *goqu.SelectDataset
	Insert(table interface{}) *goqu.InsertDataset
	Update(table interface{}) *goqu.UpdateDataset
	Delete(table interface{}) *goqu.DeleteDataset
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Q returns tx when the caller runs inside a transaction and the pooled database otherwise.
func (r *Repository) Q(tx *goqu.TxDatabase) Querier {
	if tx != nil {
		return tx
	}
	return r.GoquDBWrapper
}

// InTransaction runs fn in a transaction on the repository database.
func (r *Repository) InTransaction(ctx context.Context, fn func(tx *goqu.TxDatabase) error) error {
	return WithTransaction(ctx, r.GoquDBWrapper, fn)
}

func WithTransaction(ctx context.Context, db *goqu.Database, fn func(tx *goqu.TxDatabase) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return
}

// MapError turns pq constraint errors into custom_error values and wraps the rest.
func MapError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return custom_error.WrapDBError(message, string(pqErr.Code))
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CheckAffected reports a stale version as a conflict when an optimistic update touched no row.
func CheckAffected(result sql.Result, entity string, id int) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.Conflict("%s %d was modified by another operation, reload and retry", entity, id)
	}
	return nil
}
