package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewToolStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ToolStatus
		wantErr bool
	}{
		{"in stock", "IN_STOCK", ToolInStock, false},
		{"lower case issued", " issued ", ToolIssued, false},
		{"lost", "LOST", ToolLost, false},
		{"unknown", "MISSING", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewToolStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCondition(t *testing.T) {
	got, err := NewCondition("used")
	assert.NoError(t, err)
	assert.Equal(t, ConditionUsed, got)

	_, err = NewCondition("scratched")
	assert.Error(t, err)
}

func TestItemTypeIsSerialized(t *testing.T) {
	assert.True(t, ItemTool.IsSerialized())
	assert.True(t, ItemEquipment.IsSerialized())
	assert.False(t, ItemConsumable.IsSerialized())
}

func TestActionTypeIsVehicle(t *testing.T) {
	assert.True(t, ActionCarFromTI.IsVehicle())
	assert.False(t, ActionKitIssue.IsVehicle())
	assert.Len(t, VehicleActions(), 6)
	assert.ElementsMatch(t, append(TripActions(), MaintenanceActions()...), VehicleActions())
}

func TestNewActionType(t *testing.T) {
	got, err := NewActionType("kit_return")
	assert.NoError(t, err)
	assert.Equal(t, ActionKitReturn, got)

	_, err = NewActionType("MOVE")
	assert.Error(t, err)
}
