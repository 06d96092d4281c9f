package models

import "github.com/novozhilovsergeydisk/tool-system/pkg/roles"

type User struct {
	ID           int                `json:"id"`
	Username     string             `json:"username"`
	Fullname     string             `json:"fullname"`
	PasswordHash string             `json:"-"`
	Role         roles.Role         `json:"role"`
	IsActive     bool               `json:"is_active"`
	Grants       []roles.Capability `json:"capabilities"`
	Warehouses   []int              `json:"allowed_warehouses"`
}

func (u User) DisplayName() string {
	if u.Fullname != "" {
		return u.Fullname
	}
	return u.Username
}

func (u User) Actor() roles.Actor {
	return roles.Actor{
		UserID:     u.ID,
		Username:   u.Username,
		Fullname:   u.Fullname,
		Role:       u.Role,
		Grants:     u.Grants,
		Warehouses: u.Warehouses,
	}
}

// HolderItems lists everything currently carried by one person.
type HolderItems struct {
	User        User                `json:"user"`
	Tools       []ToolInstance      `json:"tools"`
	Consumables []ConsumableBalance `json:"consumables"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Fullname string `json:"fullname"`
	Role     string `json:"role" binding:"required"`
}

// UpdateUserRequest carries only the fields being changed.
type UpdateUserRequest struct {
	Fullname *string `json:"fullname"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

type UserGrantsRequest struct {
	Capabilities []string `json:"capabilities" binding:"required"`
}

type UserWarehousesRequest struct {
	WarehouseIDs []int `json:"warehouse_ids" binding:"required,dive,min=1"`
}
