package movements

import (
	"context"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/consumables"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/placement"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/tools"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

type Transactor interface {
	InTransaction(ctx context.Context, fn func(tx *goqu.TxDatabase) error) error
}

type Ledger interface {
	placement.Recorder
	Announce(entries ...*models.MovementLog)
}

type UserFinder interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

type WarehouseFinder interface {
	GetWarehouse(ctx context.Context, id int) (*models.Warehouse, error)
}

type NomenclatureFinder interface {
	GetNomenclature(ctx context.Context, id int) (*models.Nomenclature, error)
}

type CarFinder interface {
	GetCar(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.Car, error)
}

type Dependencies struct {
	Transactor         Transactor
	Tools              tools.Repository
	Balances           consumables.Repository
	Kits               placement.KitFinder
	Relocator          *placement.Relocator
	Ledger             Ledger
	Users              UserFinder
	Warehouses         WarehouseFinder
	Catalog            NomenclatureFinder
	Cars               CarFinder
	DefaultWarehouseID int
}

// activeHolder loads a user that is allowed to receive items.
func activeHolder(ctx context.Context, users UserFinder, id int) (*models.User, error) {
	user, err := users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, custom_error.Invariant("user %s is inactive and cannot hold items", user.DisplayName())
	}
	return user, nil
}

// scopeOf narrows a capability check to the warehouse of a location, if it has one.
func scopeOf(loc models.Location) roles.Scope {
	if id := loc.WarehouseID(); id != nil {
		return roles.WarehouseScope(*id)
	}
	return roles.AnyScope()
}
