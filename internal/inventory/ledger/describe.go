package ledger

import (
	"fmt"
	"strings"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
)

var actionLabels = map[metadata.ActionType]string{
	metadata.ActionReceipt:      "Receipt",
	metadata.ActionIssue:        "Issue",
	metadata.ActionReturn:       "Return",
	metadata.ActionWriteOff:     "Write-off",
	metadata.ActionKitIssue:     "Kit issue",
	metadata.ActionKitReturn:    "Kit return",
	metadata.ActionKitEdit:      "Kit change",
	metadata.ActionCarIssue:     "Vehicle dispatched",
	metadata.ActionCarReturn:    "Vehicle returned",
	metadata.ActionCarToMaint:   "Vehicle to maintenance",
	metadata.ActionCarFromMaint: "Vehicle from maintenance",
	metadata.ActionCarToTI:      "Vehicle to inspection",
	metadata.ActionCarFromTI:    "Vehicle from inspection",
}

func ActionLabel(action metadata.ActionType) string {
	if label, ok := actionLabels[action]; ok {
		return label
	}
	return string(action)
}

// Subject names what a row is about using only its snapshot fields.
func Subject(entry models.MovementLog) string {
	var parts []string
	if entry.NomenclatureName != "" {
		name := entry.NomenclatureName
		if entry.NomenclatureArticle != "" {
			name += " (" + entry.NomenclatureArticle + ")"
		}
		parts = append(parts, name)
	}
	if entry.SerialNumber != "" {
		parts = append(parts, "#"+entry.SerialNumber)
	}
	if entry.KitName != "" {
		parts = append(parts, "kit "+entry.KitName)
	}
	if entry.CarName != "" {
		parts = append(parts, entry.CarName)
	}
	return strings.Join(parts, ", ")
}

func Describe(entry models.MovementLog) string {
	text := ActionLabel(entry.ActionType)
	if subject := Subject(entry); subject != "" {
		text += ": " + subject
	}
	if entry.Quantity > 0 {
		text += fmt.Sprintf(" x%d", entry.Quantity)
	}
	return text
}
