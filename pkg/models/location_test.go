package models

import (
	"testing"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
	"github.com/stretchr/testify/assert"
)

func TestLocationFromColumns(t *testing.T) {
	one, two := 1, 2

	loc, err := LocationFromColumns(&one, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, AtWarehouse(1), loc)

	loc, err = LocationFromColumns(nil, nil, &two)
	assert.NoError(t, err)
	assert.Equal(t, InVehicle(2), loc)

	loc, err = LocationFromColumns(nil, nil, nil)
	assert.NoError(t, err)
	assert.True(t, loc.IsNone())

	_, err = LocationFromColumns(&one, &two, nil)
	assert.Error(t, err)
}

func TestNewLocation(t *testing.T) {
	loc, err := NewLocation("Holder", 5)
	assert.NoError(t, err)
	assert.Equal(t, WithHolder(5), loc)

	_, err = NewLocation("shelf", 5)
	assert.Error(t, err)

	_, err = NewLocation("kit", 0)
	assert.Error(t, err)
}

func TestMovementLogEndpoints(t *testing.T) {
	var entry MovementLog
	entry.SetSource(AtWarehouse(1))
	entry.SetTarget(WithHolder(9))

	assert.Equal(t, 1, *entry.SourceWarehouseID)
	assert.Nil(t, entry.SourceUserID)
	assert.Nil(t, entry.TargetWarehouseID)
	assert.True(t, entry.TargetMatches(WithHolder(9)))
	assert.False(t, entry.TargetMatches(WithHolder(8)))
	assert.False(t, entry.TargetMatches(AtWarehouse(1)))
}

func TestCaptureSnapshots(t *testing.T) {
	drill := Nomenclature{ID: 4, Name: "Drill", Article: "D-200", ItemType: metadata.ItemTool}
	tool := ToolInstance{ID: 11, Nomenclature: drill, InventoryID: "SN-001"}
	kit := ToolKit{ID: 2, Name: "Electrician Case"}
	initiator := roles.Actor{UserID: 1, Username: "petrov", Fullname: "Petrov P."}

	var entry MovementLog
	entry.CaptureSnapshots(SnapshotSource{Initiator: &initiator, Tool: &tool, Kit: &kit})

	assert.Equal(t, "Drill", entry.NomenclatureName)
	assert.Equal(t, "D-200", entry.NomenclatureArticle)
	assert.Equal(t, "SN-001", entry.SerialNumber)
	assert.Equal(t, "Electrician Case", entry.KitName)
	assert.Equal(t, "Petrov P.", entry.InitiatorName)
	assert.Equal(t, 11, *entry.ToolID)
	assert.Equal(t, 4, *entry.NomenclatureID)

	tool.InventoryID = "SN-999"
	drill.Name = "Hammer drill"
	assert.Equal(t, "SN-001", entry.SerialNumber)
	assert.Equal(t, "Drill", entry.NomenclatureName)
}

func TestHistoryFilterNormalize(t *testing.T) {
	f := HistoryFilter{Page: 3}
	assert.Equal(t, 20, f.Normalize())
	assert.Equal(t, DefaultPageSize, f.PageSize)

	f = HistoryFilter{Page: 0, PageSize: 50}
	assert.Equal(t, 0, f.Normalize())
	assert.Equal(t, 1, f.Page)
}
