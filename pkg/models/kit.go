package models

import "github.com/novozhilovsergeydisk/tool-system/pkg/metadata"

type ToolKit struct {
	ID          int                `json:"id"`
	Name        string             `json:"name"`
	WarehouseID int                `json:"warehouse_id"`
	Status      metadata.KitStatus `json:"status"`
	HolderID    *int               `json:"holder_id"`
	CoWorkerIDs []int              `json:"co_worker_ids"`
	Description *string            `json:"description"`
	Version     int                `json:"version"`
}

func (k ToolKit) IsIssued() bool {
	return k.Status == metadata.KitIssued
}

func (k ToolKit) HeldBy(userID int) bool {
	return k.HolderID != nil && *k.HolderID == userID
}

func (k ToolKit) HasCoWorker(userID int) bool {
	for _, id := range k.CoWorkerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// KitContents is a kit together with everything bound to it.
type KitContents struct {
	ToolKit
	Tools       []ToolInstance      `json:"tools"`
	Consumables []ConsumableBalance `json:"consumables"`
}

type KitFilter struct {
	WarehouseIDs []int
	Status       *metadata.KitStatus
	HolderID     *int
}

type KitRequest struct {
	Name        string  `json:"name" binding:"required"`
	WarehouseID int     `json:"warehouse_id" binding:"required"`
	Description *string `json:"description"`
}

type KitIssueRequest struct {
	UserID      int    `json:"user_id" binding:"required"`
	ToolIDs     []int  `json:"tool_ids"`
	BalanceIDs  []int  `json:"balance_ids"`
	CoWorkerIDs []int  `json:"co_worker_ids"`
	Comment     string `json:"comment"`
}

type KitReturnRequest struct {
	Comment string `json:"comment"`
}

type KitToolRequest struct {
	ToolID int `json:"tool_id" binding:"required"`
}

type KitConsumableRequest struct {
	BalanceID int `json:"balance_id" binding:"required"`
	Quantity  int `json:"quantity" binding:"required,min=1"`
}
