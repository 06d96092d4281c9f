package models

import "time"

// LocationRequest names a destination as it arrives over the wire.
type LocationRequest struct {
	Kind string `json:"kind" binding:"required,oneof=warehouse holder kit vehicle"`
	ID   int    `json:"id" binding:"required,min=1"`
}

func (r LocationRequest) Location() (Location, error) {
	return NewLocation(r.Kind, r.ID)
}

type ReceiveToolRequest struct {
	NomenclatureID int        `json:"nomenclature_id" binding:"required"`
	InventoryID    string     `json:"inventory_id" binding:"required"`
	WarehouseID    *int       `json:"warehouse_id"`
	Condition      string     `json:"condition"`
	PurchaseDate   *time.Time `json:"purchase_date"`
	Comment        string     `json:"comment"`
}

type IssueToolRequest struct {
	ToolID  int    `json:"tool_id" binding:"required"`
	UserID  int    `json:"user_id" binding:"required"`
	Comment string `json:"comment"`
}

type ReturnToolRequest struct {
	ToolID      int     `json:"tool_id" binding:"required"`
	WarehouseID *int    `json:"warehouse_id"`
	Condition   *string `json:"condition"`
	Comment     string  `json:"comment"`
}

type RelocateRequest struct {
	Target   LocationRequest `json:"target" binding:"required"`
	Quantity int             `json:"quantity"`
	Comment  string          `json:"comment"`
}

type WriteOffRequest struct {
	Quantity int    `json:"quantity"`
	Comment  string `json:"comment"`
}

type EditToolRequest struct {
	InventoryID  *string    `json:"inventory_id"`
	Condition    *string    `json:"condition"`
	Status       *string    `json:"status"`
	PurchaseDate *time.Time `json:"purchase_date"`
}

type ReceiveConsumableRequest struct {
	NomenclatureID int    `json:"nomenclature_id" binding:"required"`
	WarehouseID    *int   `json:"warehouse_id"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	Comment        string `json:"comment"`
}

type IssueConsumableRequest struct {
	BalanceID int    `json:"balance_id" binding:"required"`
	UserID    int    `json:"user_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Comment   string `json:"comment"`
}

type ReturnConsumableRequest struct {
	BalanceID   int    `json:"balance_id" binding:"required"`
	WarehouseID *int   `json:"warehouse_id"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	Comment     string `json:"comment"`
}

type ConsumableQuantity struct {
	BalanceID int `json:"balance_id" binding:"required"`
	Quantity  int `json:"quantity" binding:"required,min=1"`
}

type BulkIssueRequest struct {
	UserID      int                  `json:"user_id" binding:"required"`
	ToolIDs     []int                `json:"tool_ids"`
	Consumables []ConsumableQuantity `json:"consumables" binding:"dive"`
	Comment     string               `json:"comment"`
}

type QuickReturnRequest struct {
	WarehouseID *int     `json:"warehouse_id"`
	Serials     []string `json:"serials" binding:"required,min=1"`
	Comment     string   `json:"comment"`
}

type SkippedItem struct {
	Serial string `json:"serial"`
	Reason string `json:"reason"`
}

type QuickReturnResult struct {
	Returned []string      `json:"returned"`
	Skipped  []SkippedItem `json:"skipped"`
}

// SelfServiceRequest is used both for taking items from a warehouse and for bringing
// them back. WarehouseID is only read on return.
type SelfServiceRequest struct {
	WarehouseID *int                 `json:"warehouse_id"`
	ToolIDs     []int                `json:"tool_ids"`
	Consumables []ConsumableQuantity `json:"consumables" binding:"dive"`
	Comment     string               `json:"comment"`
}
