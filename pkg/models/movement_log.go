package models

import (
	"time"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
)

// MovementLog is one append-only ledger row. Snapshot fields are filled once when the row
// is recorded and stay readable after the referenced rows change or disappear.
type MovementLog struct {
	ID             int                 `json:"id"`
	CreatedAt      time.Time           `json:"created_at"`
	InitiatorID    *int                `json:"initiator_id"`
	ActionType     metadata.ActionType `json:"action_type"`
	NomenclatureID *int                `json:"nomenclature_id"`
	ToolID         *int                `json:"tool_instance_id"`
	KitID          *int                `json:"kit_id"`
	CarID          *int                `json:"car_id"`

	SourceWarehouseID *int `json:"source_warehouse_id"`
	SourceUserID      *int `json:"source_user_id"`
	SourceKitID       *int `json:"source_kit_id"`
	SourceCarID       *int `json:"source_car_id"`
	TargetWarehouseID *int `json:"target_warehouse_id"`
	TargetUserID      *int `json:"target_user_id"`
	TargetKitID       *int `json:"target_kit_id"`
	TargetCarID       *int `json:"target_car_id"`

	Quantity    int    `json:"quantity"`
	Comment     string `json:"comment"`
	Composition string `json:"composition"`
	TripMileage *int   `json:"trip_mileage,omitempty"`
	FuelAdded   *int   `json:"fuel_added,omitempty"`

	InitiatorName       string `json:"initiator_name"`
	NomenclatureName    string `json:"nomenclature_name"`
	NomenclatureArticle string `json:"nomenclature_article"`
	SerialNumber        string `json:"serial_number"`
	KitName             string `json:"kit_name"`
	CarName             string `json:"car_name"`
}

// SetSource records where the moved item was before the operation.
func (m *MovementLog) SetSource(l Location) {
	m.SourceWarehouseID = l.WarehouseID()
	m.SourceUserID = l.HolderID()
	m.SourceKitID = l.KitID()
	m.SourceCarID = l.VehicleID()
}

func (m *MovementLog) SetTarget(l Location) {
	m.TargetWarehouseID = l.WarehouseID()
	m.TargetUserID = l.HolderID()
	m.TargetKitID = l.KitID()
	m.TargetCarID = l.VehicleID()
}

// TargetMatches reports whether the row's target points at the given location.
func (m MovementLog) TargetMatches(l Location) bool {
	var id *int
	switch l.Kind {
	case LocationWarehouse:
		id = m.TargetWarehouseID
	case LocationHolder:
		id = m.TargetUserID
	case LocationKit:
		id = m.TargetKitID
	case LocationVehicle:
		id = m.TargetCarID
	default:
		return false
	}
	return id != nil && *id == l.ID
}

// SnapshotSource carries the referenced rows whose identity is copied into a ledger row.
type SnapshotSource struct {
	Initiator    *roles.Actor
	Nomenclature *Nomenclature
	Tool         *ToolInstance
	Kit          *ToolKit
	Car          *Car
}

func (m *MovementLog) CaptureSnapshots(src SnapshotSource) {
	if src.Tool != nil {
		m.ToolID = intPtr(src.Tool.ID)
		m.SerialNumber = src.Tool.InventoryID
		if src.Nomenclature == nil && src.Tool.Nomenclature.ID != 0 {
			src.Nomenclature = &src.Tool.Nomenclature
		}
	}
	if src.Nomenclature != nil {
		m.NomenclatureID = intPtr(src.Nomenclature.ID)
		m.NomenclatureName = src.Nomenclature.Name
		m.NomenclatureArticle = src.Nomenclature.Article
	}
	if src.Kit != nil {
		m.KitID = intPtr(src.Kit.ID)
		m.KitName = src.Kit.Name
	}
	if src.Car != nil {
		m.CarID = intPtr(src.Car.ID)
		m.CarName = src.Car.Descriptor()
	}
	if src.Initiator != nil {
		m.InitiatorID = intPtr(src.Initiator.UserID)
		m.InitiatorName = src.Initiator.DisplayName()
	}
}

func intPtr(v int) *int {
	return &v
}

type HistoryFilter struct {
	From           *time.Time
	To             *time.Time
	UserID         *int
	CarID          *int
	ToolID         *int
	Search         string
	IncludeActions []metadata.ActionType
	ExcludeActions []metadata.ActionType
	Page           int
	PageSize       int
}

const DefaultPageSize = 10

// Normalize clamps paging to sane values and returns the row offset.
func (f *HistoryFilter) Normalize() int {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 500 {
		f.PageSize = DefaultPageSize
	}
	return (f.Page - 1) * f.PageSize
}

type HistoryPage struct {
	Items    []MovementLog `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}
