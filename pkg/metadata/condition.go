package metadata

import "fmt"

type Condition string

const (
	ConditionNew    Condition = "NEW"
	ConditionUsed   Condition = "USED"
	ConditionBroken Condition = "BROKEN"
)

func NewCondition(value string) (Condition, error) {
	condition := Condition(normalize(value))
	switch condition {
	case ConditionNew, ConditionUsed, ConditionBroken:
		return condition, nil
	default:
		return "", fmt.Errorf(
			"value not valid, only valid values are: %s, %s, %s",
			ConditionNew, ConditionUsed, ConditionBroken,
		)
	}
}

type ItemType string

const (
	ItemTool       ItemType = "TOOL"
	ItemEquipment  ItemType = "EQUIPMENT"
	ItemConsumable ItemType = "CONSUMABLE"
)

func NewItemType(value string) (ItemType, error) {
	itemType := ItemType(normalize(value))
	switch itemType {
	case ItemTool, ItemEquipment, ItemConsumable:
		return itemType, nil
	default:
		return "", fmt.Errorf(
			"value not valid, only valid values are: %s, %s, %s",
			ItemTool, ItemEquipment, ItemConsumable,
		)
	}
}

// IsSerialized reports whether stock of this type is tracked per physical unit.
func (t ItemType) IsSerialized() bool {
	return t == ItemTool || t == ItemEquipment
}
