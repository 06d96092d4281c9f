package models

// ConsumableBalance is a quantity of one CONSUMABLE nomenclature at one location. A kit
// binding travels with the balance.
type ConsumableBalance struct {
	ID           int          `json:"id"`
	Nomenclature Nomenclature `json:"nomenclature"`
	Quantity     int          `json:"quantity"`
	Location     Location     `json:"location"`
	KitID        *int         `json:"kit_id"`
	Version      int          `json:"version"`
}

func (b ConsumableBalance) InKit(kitID int) bool {
	return b.KitID != nil && *b.KitID == kitID
}

type BalanceFilter struct {
	IDs            []int
	WarehouseIDs   []int
	HolderID       *int
	CarID          *int
	KitID          *int
	NomenclatureID *int
	FreeOnly       bool
	Search         string
}
