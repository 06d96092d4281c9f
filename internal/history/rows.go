package history

import (
	"strconv"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/ledger"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
)

var Headers = []string{"Date", "Action", "Subject", "Quantity", "From", "To", "Initiator", "Comment"}

const dateLayout = "2006-01-02 15:04"

// Row flattens one ledger entry into the export columns.
func Row(entry models.MovementLog) []interface{} {
	var quantity interface{} = ""
	if entry.Quantity > 0 {
		quantity = entry.Quantity
	}
	return []interface{}{
		entry.CreatedAt.Format(dateLayout),
		ledger.ActionLabel(entry.ActionType),
		ledger.Subject(entry),
		quantity,
		place(entry.SourceWarehouseID, entry.SourceUserID, entry.SourceKitID, entry.SourceCarID),
		place(entry.TargetWarehouseID, entry.TargetUserID, entry.TargetKitID, entry.TargetCarID),
		entry.InitiatorName,
		entry.Comment,
	}
}

func place(warehouseID, userID, kitID, carID *int) string {
	switch {
	case warehouseID != nil:
		return "warehouse #" + strconv.Itoa(*warehouseID)
	case userID != nil:
		return "employee #" + strconv.Itoa(*userID)
	case kitID != nil:
		return "kit #" + strconv.Itoa(*kitID)
	case carID != nil:
		return "vehicle #" + strconv.Itoa(*carID)
	default:
		return ""
	}
}

func headerRow() []interface{} {
	row := make([]interface{}, len(Headers))
	for i, h := range Headers {
		row[i] = h
	}
	return row
}
