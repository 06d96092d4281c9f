package models

import (
	"time"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
)

type Nomenclature struct {
	ID           int               `json:"id" db:"id"`
	Name         string            `json:"name" db:"name"`
	Article      string            `json:"article" db:"article"`
	ItemType     metadata.ItemType `json:"item_type" db:"item_type"`
	MinimumStock int               `json:"minimum_stock" db:"minimum_stock"`
	Description  *string           `json:"description" db:"description"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

func (n Nomenclature) Label() string {
	if n.Article == "" {
		return n.Name
	}
	return n.Name + " (" + n.Article + ")"
}

type NomenclatureRequest struct {
	Name         string  `json:"name" binding:"required"`
	Article      string  `json:"article"`
	ItemType     string  `json:"item_type" binding:"required"`
	MinimumStock int     `json:"minimum_stock" binding:"min=0"`
	Description  *string `json:"description"`
}

type NomenclatureFilter struct {
	ItemType *metadata.ItemType
	Search   string
}
