package models

import (
	"fmt"
	"strings"
)

type LocationKind string

const (
	LocationNone      LocationKind = ""
	LocationWarehouse LocationKind = "warehouse"
	LocationHolder    LocationKind = "holder"
	LocationKit       LocationKind = "kit"
	LocationVehicle   LocationKind = "vehicle"
)

// Location is the single place a stock entity currently occupies. Only one kind can be
// set at a time, so two simultaneous locations cannot be represented.
type Location struct {
	Kind LocationKind `json:"kind"`
	ID   int          `json:"id"`
}

func AtWarehouse(id int) Location { return Location{Kind: LocationWarehouse, ID: id} }
func WithHolder(id int) Location  { return Location{Kind: LocationHolder, ID: id} }
func InKit(id int) Location       { return Location{Kind: LocationKit, ID: id} }
func InVehicle(id int) Location   { return Location{Kind: LocationVehicle, ID: id} }

func NewLocation(kind string, id int) (Location, error) {
	loc := Location{Kind: LocationKind(strings.ToLower(strings.TrimSpace(kind))), ID: id}
	switch loc.Kind {
	case LocationWarehouse, LocationHolder, LocationKit, LocationVehicle:
	default:
		return Location{}, fmt.Errorf("invalid location kind: %s", kind)
	}
	if id <= 0 {
		return Location{}, fmt.Errorf("invalid %s id: %d", loc.Kind, id)
	}
	return loc, nil
}

// LocationFromColumns rebuilds the variant from the nullable placement columns of a row.
func LocationFromColumns(warehouseID, holderID, carID *int) (Location, error) {
	var loc Location
	set := 0
	if warehouseID != nil {
		loc, set = AtWarehouse(*warehouseID), set+1
	}
	if holderID != nil {
		loc, set = WithHolder(*holderID), set+1
	}
	if carID != nil {
		loc, set = InVehicle(*carID), set+1
	}
	if set > 1 {
		return Location{}, fmt.Errorf("row has %d locations set", set)
	}
	return loc, nil
}

func (l Location) IsNone() bool {
	return l.Kind == LocationNone
}

func (l Location) Is(kind LocationKind) bool {
	return l.Kind == kind
}

func (l Location) idFor(kind LocationKind) *int {
	if l.Kind != kind {
		return nil
	}
	id := l.ID
	return &id
}

func (l Location) WarehouseID() *int { return l.idFor(LocationWarehouse) }
func (l Location) HolderID() *int    { return l.idFor(LocationHolder) }
func (l Location) KitID() *int       { return l.idFor(LocationKit) }
func (l Location) VehicleID() *int   { return l.idFor(LocationVehicle) }

func (l Location) String() string {
	if l.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%s:%d", l.Kind, l.ID)
}

type Warehouse struct {
	ID      int     `json:"id" db:"id"`
	Name    string  `json:"name" db:"name"`
	Address *string `json:"address" db:"address"`
}

type WarehouseRequest struct {
	Name    string  `json:"name" binding:"required"`
	Address *string `json:"address"`
}

// WarehouseItems is everything physically stored at a warehouse, kit contents included.
type WarehouseItems struct {
	Warehouse   Warehouse           `json:"warehouse"`
	Tools       []ToolInstance      `json:"tools"`
	Consumables []ConsumableBalance `json:"consumables"`
}
