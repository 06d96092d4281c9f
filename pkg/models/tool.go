package models

import (
	"time"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
)

// ToolInstance is one serialized physical unit of a TOOL or EQUIPMENT nomenclature.
type ToolInstance struct {
	ID           int                 `json:"id"`
	Nomenclature Nomenclature        `json:"nomenclature"`
	InventoryID  string              `json:"inventory_id"`
	Condition    metadata.Condition  `json:"condition"`
	Status       metadata.ToolStatus `json:"status"`
	PurchaseDate *time.Time          `json:"purchase_date,omitempty"`
	Location     Location            `json:"location"`
	KitID        *int                `json:"kit_id"`
	Version      int                 `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (t ToolInstance) IsBroken() bool {
	return t.Condition == metadata.ConditionBroken || t.Status == metadata.ToolBroken
}

func (t ToolInstance) InKit(kitID int) bool {
	return t.KitID != nil && *t.KitID == kitID
}

type ToolFilter struct {
	IDs            []int
	WarehouseIDs   []int
	HolderID       *int
	CarID          *int
	KitID          *int
	NomenclatureID *int
	Status         *metadata.ToolStatus
	Condition      *metadata.Condition
	FreeOnly       bool
	Search         string
}
