package repository

import (
	"fmt"

	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// PlacementColumns maps a physical location onto the warehouse/holder/car columns. Every
// column is written so that a move always clears the previous placement.
func PlacementColumns(loc models.Location) (goqu.Record, error) {
	switch loc.Kind {
	case models.LocationWarehouse, models.LocationHolder, models.LocationVehicle:
	default:
		return nil, fmt.Errorf("location %s cannot be stored on a stock row", loc)
	}
	return goqu.Record{
		"warehouse_id": loc.WarehouseID(),
		"holder_id":    loc.HolderID(),
		"car_id":       loc.VehicleID(),
	}, nil
}

// NullableEq compares a column with a value that may be absent.
func NullableEq(column string, value *int) exp.Expression {
	if value == nil {
		return goqu.I(column).IsNull()
	}
	return goqu.I(column).Eq(*value)
}
