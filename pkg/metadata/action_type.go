package metadata

import (
	"fmt"
	"strings"
)

type ActionType string

const (
	ActionReceipt      ActionType = "RECEIPT"
	ActionIssue        ActionType = "ISSUE"
	ActionReturn       ActionType = "RETURN"
	ActionWriteOff     ActionType = "WRITEOFF"
	ActionKitIssue     ActionType = "KIT_ISSUE"
	ActionKitReturn    ActionType = "KIT_RETURN"
	ActionKitEdit      ActionType = "KIT_EDIT"
	ActionCarIssue     ActionType = "CAR_ISSUE"
	ActionCarReturn    ActionType = "CAR_RETURN"
	ActionCarToMaint   ActionType = "CAR_TO_MAINT"
	ActionCarFromMaint ActionType = "CAR_FROM_MAINT"
	ActionCarToTI      ActionType = "CAR_TO_TI"
	ActionCarFromTI    ActionType = "CAR_FROM_TI"
)

var allActions = []ActionType{
	ActionReceipt, ActionIssue, ActionReturn, ActionWriteOff,
	ActionKitIssue, ActionKitReturn, ActionKitEdit,
	ActionCarIssue, ActionCarReturn, ActionCarToMaint, ActionCarFromMaint, ActionCarToTI, ActionCarFromTI,
}

func NewActionType(value string) (ActionType, error) {
	action := ActionType(normalize(value))
	for _, known := range allActions {
		if known == action {
			return action, nil
		}
	}
	return "", fmt.Errorf("invalid action type: %s", value)
}

// IsVehicle reports whether the action belongs to the fleet history.
func (a ActionType) IsVehicle() bool {
	return strings.HasPrefix(string(a), "CAR_")
}

func VehicleActions() []ActionType {
	var actions []ActionType
	for _, a := range allActions {
		if a.IsVehicle() {
			actions = append(actions, a)
		}
	}
	return actions
}

func TripActions() []ActionType {
	return []ActionType{ActionCarIssue, ActionCarReturn}
}

func MaintenanceActions() []ActionType {
	return []ActionType{ActionCarToMaint, ActionCarFromMaint, ActionCarToTI, ActionCarFromTI}
}
