package roles

import (
	"fmt"
	"slices"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
)

type Capability string

const (
	CapReceive          Capability = "receive"
	CapIssue            Capability = "issue"
	CapReturn           Capability = "return"
	CapWriteOff         Capability = "writeoff"
	CapRelocate         Capability = "relocate"
	CapSelfService      Capability = "self_service"
	CapManageKits       Capability = "manage_kits"
	CapIssueKits        Capability = "issue_kits"
	CapManageFleet      Capability = "manage_fleet"
	CapOperateFleet     Capability = "operate_fleet"
	CapManageCatalog    Capability = "manage_catalog"
	CapManageWarehouses Capability = "manage_warehouses"
	CapViewHistory      Capability = "view_history"
	CapViewAlerts       Capability = "view_alerts"
)

var allCapabilities = []Capability{
	CapReceive, CapIssue, CapReturn, CapWriteOff, CapRelocate, CapSelfService,
	CapManageKits, CapIssueKits, CapManageFleet, CapOperateFleet,
	CapManageCatalog, CapManageWarehouses, CapViewHistory, CapViewAlerts,
}

var roleDefaults = map[Role][]Capability{
	User: {CapSelfService, CapViewHistory},
	Moderator: {
		CapSelfService, CapViewHistory, CapReceive, CapIssue, CapReturn,
		CapRelocate, CapIssueKits, CapOperateFleet, CapViewAlerts,
	},
}

func NewCapability(value string) (Capability, error) {
	capability := Capability(value)
	if !slices.Contains(allCapabilities, capability) {
		return "", fmt.Errorf("invalid capability: %s", value)
	}
	return capability, nil
}

// Scope narrows a capability check to a warehouse. The zero value means "any place".
type Scope struct {
	WarehouseID *int
}

func AnyScope() Scope {
	return Scope{}
}

func WarehouseScope(warehouseID int) Scope {
	return Scope{WarehouseID: &warehouseID}
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID     int          `json:"id"`
	Username   string       `json:"username"`
	Fullname   string       `json:"fullname"`
	Role       Role         `json:"role"`
	Grants     []Capability `json:"capabilities"`
	Warehouses []int        `json:"allowed_warehouses"`
}

func (a Actor) IsStaff() bool {
	return a.Role == Admin
}

func (a Actor) DisplayName() string {
	if a.Fullname != "" {
		return a.Fullname
	}
	return a.Username
}

func (a Actor) HasCapability(c Capability) bool {
	return slices.Contains(roleDefaults[a.Role], c) || slices.Contains(a.Grants, c)
}

// AllowedWarehouses returns nil for staff, meaning no restriction.
func (a Actor) AllowedWarehouses() []int {
	if a.IsStaff() {
		return nil
	}
	if a.Warehouses == nil {
		return []int{}
	}
	return a.Warehouses
}

// Can is the single permission check used by every transition before it mutates state.
func Can(a Actor, c Capability, s Scope) bool {
	if a.IsStaff() {
		return true
	}
	if !a.HasCapability(c) {
		return false
	}
	if s.WarehouseID != nil && !slices.Contains(a.Warehouses, *s.WarehouseID) {
		return false
	}
	return true
}

// Require checks the capability against every scope and reports the first denial as a
// forbidden error. Without scopes the capability is checked for any place.
func Require(a Actor, c Capability, scopes ...Scope) error {
	if len(scopes) == 0 {
		scopes = []Scope{AnyScope()}
	}
	for _, s := range scopes {
		if Can(a, c, s) {
			continue
		}
		if s.WarehouseID != nil {
			return custom_error.Forbidden("%s is not allowed to %s at warehouse %d", a.DisplayName(), c, *s.WarehouseID)
		}
		return custom_error.Forbidden("%s is not allowed to %s", a.DisplayName(), c)
	}
	return nil
}
