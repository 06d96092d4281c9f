package users

import (
	"context"
	"fmt"

	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

type UserRepository interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	PersistUser(ctx context.Context, user *models.User, warehouseIDs []int) error
	UpdateUser(ctx context.Context, user *models.User) error
	SetGrants(ctx context.Context, userID int, grants []roles.Capability) error
	SetWarehouses(ctx context.Context, userID int, warehouseIDs []int) error
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}

type userRecord struct {
	ID           int    `db:"id"`
	Username     string `db:"username"`
	Fullname     string `db:"fullname"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	IsActive     bool   `db:"is_active"`
}

func (u userRecord) toUser() models.User {
	return models.User{
		ID:           u.ID,
		Username:     u.Username,
		Fullname:     u.Fullname,
		PasswordHash: u.PasswordHash,
		Role:         roles.Role(u.Role),
		IsActive:     u.IsActive,
	}
}

var userColumns = []interface{}{"id", "username", "fullname", "password_hash", "role", "is_active"}

func (r *userRepositoryImpl) GetUser(ctx context.Context, id int) (*models.User, error) {
	return r.getUser(ctx, goqu.Ex{"id": id}, fmt.Sprintf("user %d not found", id))
}

func (r *userRepositoryImpl) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, goqu.Ex{"username": username}, fmt.Sprintf("user %s not found", username))
}

func (r *userRepositoryImpl) getUser(ctx context.Context, where goqu.Ex, missing string) (*models.User, error) {
	var record userRecord
	found, err := r.repository.GoquDBWrapper.From("users").
		Select(userColumns...).
		Where(where).
		Executor().
		ScanStructContext(ctx, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("%s", missing)
	}

	user := record.toUser()
	if err := r.loadAccess(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepositoryImpl) loadAccess(ctx context.Context, user *models.User) error {
	var grants []string
	err := r.repository.GoquDBWrapper.From("user_capabilities").
		Select("capability").
		Where(goqu.Ex{"user_id": user.ID}).
		Order(goqu.I("capability").Asc()).
		Executor().
		ScanValsContext(ctx, &grants)
	if err != nil {
		return fmt.Errorf("failed to get user capabilities: %w", err)
	}
	user.Grants = make([]roles.Capability, 0, len(grants))
	for _, g := range grants {
		user.Grants = append(user.Grants, roles.Capability(g))
	}

	user.Warehouses = []int{}
	err = r.repository.GoquDBWrapper.From("user_warehouses").
		Select("warehouse_id").
		Where(goqu.Ex{"user_id": user.ID}).
		Order(goqu.I("warehouse_id").Asc()).
		Executor().
		ScanValsContext(ctx, &user.Warehouses)
	if err != nil {
		return fmt.Errorf("failed to get user warehouses: %w", err)
	}
	return nil
}

// GetUsers lists users without their grants.
func (r *userRepositoryImpl) GetUsers(ctx context.Context) ([]models.User, error) {
	var records []userRecord
	err := r.repository.GoquDBWrapper.From("users").
		Select(userColumns...).
		Order(goqu.I("fullname").Asc(), goqu.I("username").Asc()).
		Executor().
		ScanStructsContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	users := make([]models.User, 0, len(records))
	for _, record := range records {
		users = append(users, record.toUser())
	}
	return users, nil
}

func (r *userRepositoryImpl) PersistUser(ctx context.Context, user *models.User, warehouseIDs []int) error {
	return r.repository.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		query := tx.Insert("users").
			Rows(goqu.Record{
				"username":      user.Username,
				"fullname":      user.Fullname,
				"password_hash": user.PasswordHash,
				"role":          string(user.Role),
				"is_active":     user.IsActive,
			}).
			Returning("id")
		if _, err := query.Executor().ScanValContext(ctx, &user.ID); err != nil {
			return repository.MapError(err, "User with this username already exists")
		}

		user.Grants = []roles.Capability{}
		user.Warehouses = warehouseIDs
		return replaceWarehouses(ctx, tx, user.ID, warehouseIDs)
	})
}

func (r *userRepositoryImpl) UpdateUser(ctx context.Context, user *models.User) error {
	result, err := r.repository.GoquDBWrapper.Update("users").
		Set(goqu.Record{
			"fullname":      user.Fullname,
			"password_hash": user.PasswordHash,
			"role":          string(user.Role),
			"is_active":     user.IsActive,
		}).
		Where(goqu.Ex{"id": user.ID}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to update user")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("user %d not found", user.ID)
	}
	return nil
}

func (r *userRepositoryImpl) SetGrants(ctx context.Context, userID int, grants []roles.Capability) error {
	return r.repository.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		if _, err := tx.Delete("user_capabilities").Where(goqu.Ex{"user_id": userID}).Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to clear user capabilities: %w", err)
		}
		if len(grants) == 0 {
			return nil
		}

		rows := make([]interface{}, 0, len(grants))
		for _, g := range grants {
			rows = append(rows, goqu.Record{"user_id": userID, "capability": string(g)})
		}
		if _, err := tx.Insert("user_capabilities").Rows(rows...).Executor().ExecContext(ctx); err != nil {
			return repository.MapError(err, "failed to grant capabilities")
		}
		return nil
	})
}

func (r *userRepositoryImpl) SetWarehouses(ctx context.Context, userID int, warehouseIDs []int) error {
	return r.repository.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		return replaceWarehouses(ctx, tx, userID, warehouseIDs)
	})
}

func replaceWarehouses(ctx context.Context, tx *goqu.TxDatabase, userID int, warehouseIDs []int) error {
	if _, err := tx.Delete("user_warehouses").Where(goqu.Ex{"user_id": userID}).Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to clear user warehouses: %w", err)
	}
	if len(warehouseIDs) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(warehouseIDs))
	for _, id := range warehouseIDs {
		rows = append(rows, goqu.Record{"user_id": userID, "warehouse_id": id})
	}
	if _, err := tx.Insert("user_warehouses").Rows(rows...).Executor().ExecContext(ctx); err != nil {
		return repository.MapError(err, "Unknown warehouse in access list")
	}
	return nil
}
