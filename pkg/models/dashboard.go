package models

type Dashboard struct {
	OperationsToday      int `json:"operations_today"`
	OperationsYesterday  int `json:"operations_yesterday"`
	ReceiptsToday        int `json:"receipts_today"`
	ReceiptsYesterday    int `json:"receipts_yesterday"`
	ActiveUsersToday     int `json:"active_users_today"`
	ActiveUsersYesterday int `json:"active_users_yesterday"`
	WarehousesWithTools  int `json:"warehouses_with_tools"`
	ActiveHolders        int `json:"active_holders"`
	IssuedKits           int `json:"issued_kits"`
	CarsOnRoute          int `json:"cars_on_route"`

	CarAlerts []CarAlert      `json:"car_alerts,omitempty"`
	LowStock  []LowStockGroup `json:"low_stock,omitempty"`
}

// LowStockItem is a consumable whose free stock at one warehouse is at or below its minimum.
type LowStockItem struct {
	WarehouseID    *int   `json:"-" db:"warehouse_id"`
	WarehouseName  string `json:"-" db:"warehouse_name"`
	NomenclatureID int    `json:"nomenclature_id" db:"nomenclature_id"`
	Name           string `json:"name" db:"name"`
	Article        string `json:"article" db:"article"`
	Quantity       int    `json:"quantity" db:"quantity"`
	MinimumStock   int    `json:"minimum_stock" db:"minimum_stock"`
}

// LowStockGroup collects low items per warehouse. A nil warehouse groups consumables
// that are not stocked anywhere.
type LowStockGroup struct {
	WarehouseID *int           `json:"warehouse_id"`
	Warehouse   string         `json:"warehouse"`
	Items       []LowStockItem `json:"items"`
}
