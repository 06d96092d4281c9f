package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

const table = "movement_logs"

type LedgerRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *LedgerRepository {
	return &LedgerRepository{repository: r}
}

type movementRecord struct {
	ID                  int                 `db:"id"`
	CreatedAt           time.Time           `db:"created_at"`
	InitiatorID         *int                `db:"initiator_id"`
	ActionType          metadata.ActionType `db:"action_type"`
	NomenclatureID      *int                `db:"nomenclature_id"`
	ToolID              *int                `db:"tool_instance_id"`
	KitID               *int                `db:"kit_id"`
	CarID               *int                `db:"car_id"`
	SourceWarehouseID   *int                `db:"source_warehouse_id"`
	SourceUserID        *int                `db:"source_user_id"`
	SourceKitID         *int                `db:"source_kit_id"`
	SourceCarID         *int                `db:"source_car_id"`
	TargetWarehouseID   *int                `db:"target_warehouse_id"`
	TargetUserID        *int                `db:"target_user_id"`
	TargetKitID         *int                `db:"target_kit_id"`
	TargetCarID         *int                `db:"target_car_id"`
	Quantity            int                 `db:"quantity"`
	Comment             string              `db:"comment"`
	Composition         string              `db:"composition"`
	TripMileage         *int                `db:"trip_mileage"`
	FuelAdded           *int                `db:"fuel_added"`
	InitiatorName       string              `db:"initiator_name"`
	NomenclatureName    string              `db:"nomenclature_name"`
	NomenclatureArticle string              `db:"nomenclature_article"`
	SerialNumber        string              `db:"serial_number"`
	KitName             string              `db:"kit_name"`
	CarName             string              `db:"car_name"`
}

func (r *LedgerRepository) Append(ctx context.Context, tx *goqu.TxDatabase, entry *models.MovementLog) error {
	query := r.repository.Q(tx).Insert(table).
		Rows(goqu.Record{
			"initiator_id":         entry.InitiatorID,
			"action_type":          string(entry.ActionType),
			"nomenclature_id":      entry.NomenclatureID,
			"tool_instance_id":     entry.ToolID,
			"kit_id":               entry.KitID,
			"car_id":               entry.CarID,
			"source_warehouse_id":  entry.SourceWarehouseID,
			"source_user_id":       entry.SourceUserID,
			"source_kit_id":        entry.SourceKitID,
			"source_car_id":        entry.SourceCarID,
			"target_warehouse_id":  entry.TargetWarehouseID,
			"target_user_id":       entry.TargetUserID,
			"target_kit_id":        entry.TargetKitID,
			"target_car_id":        entry.TargetCarID,
			"quantity":             entry.Quantity,
			"comment":              entry.Comment,
			"composition":          entry.Composition,
			"trip_mileage":         entry.TripMileage,
			"fuel_added":           entry.FuelAdded,
			"initiator_name":       entry.InitiatorName,
			"nomenclature_name":    entry.NomenclatureName,
			"nomenclature_article": entry.NomenclatureArticle,
			"serial_number":        entry.SerialNumber,
			"kit_name":             entry.KitName,
			"car_name":             entry.CarName,
		}).
		Returning("id", "created_at")

	var inserted struct {
		ID        int       `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if _, err := query.Executor().ScanStructContext(ctx, &inserted); err != nil {
		return repository.MapError(err, "failed to append movement log")
	}
	entry.ID = inserted.ID
	entry.CreatedAt = inserted.CreatedAt

	return nil
}

// LastToolAction returns the action of the newest ledger row for the tool, or "" when
// the tool has no history.
func (r *LedgerRepository) LastToolAction(ctx context.Context, tx *goqu.TxDatabase, toolID int) (metadata.ActionType, error) {
	var action string
	found, err := r.repository.Q(tx).
		From(table).
		Select("action_type").
		Where(goqu.Ex{"tool_instance_id": toolID}).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(1).
		Executor().
		ScanValContext(ctx, &action)
	if err != nil {
		return "", fmt.Errorf("failed to read last action of tool %d: %w", toolID, err)
	}
	if !found {
		return "", nil
	}

	return metadata.ActionType(action), nil
}

// IssuedSinceKitIssue reports whether the tool has a direct ISSUE row newer than the
// latest KIT_ISSUE row of the kit.
func (r *LedgerRepository) IssuedSinceKitIssue(ctx context.Context, tx *goqu.TxDatabase, toolID, kitID int) (bool, error) {
	q := r.repository.Q(tx)
	lastKitIssue := q.From(table).
		Select(goqu.COALESCE(goqu.MAX("id"), 0)).
		Where(goqu.Ex{"kit_id": kitID, "action_type": string(metadata.ActionKitIssue)})

	count, err := q.From(table).
		Where(
			goqu.Ex{"tool_instance_id": toolID, "action_type": string(metadata.ActionIssue)},
			goqu.I("id").Gt(lastKitIssue),
		).
		CountContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check direct issue of tool %d: %w", toolID, err)
	}
	return count > 0, nil
}

func (r *LedgerRepository) Find(ctx context.Context, filter models.HistoryFilter) ([]models.MovementLog, int, error) {
	offset := filter.Normalize()
	query := r.repository.GoquDBWrapper.From(table).Where(buildConditions(filter)...)

	total, err := query.CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count movement logs: %w", err)
	}

	var records []movementRecord
	err = query.
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Offset(uint(offset)).
		Limit(uint(filter.PageSize)).
		Executor().
		ScanStructsContext(ctx, &records)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to select movement logs from database: %w", err)
	}

	entries := make([]models.MovementLog, 0, len(records))
	for _, record := range records {
		entries = append(entries, transformToMovementLog(record))
	}

	return entries, int(total), nil
}

func buildConditions(filter models.HistoryFilter) []exp.Expression {
	conditions := repository.NewQueryBuilder()

	if filter.From != nil {
		conditions.AddExpression(goqu.C("created_at").Gte(*filter.From))
	}
	if filter.To != nil {
		conditions.AddExpression(goqu.C("created_at").Lt(*filter.To))
	}
	if filter.CarID != nil {
		conditions.AddCondition("car_id", *filter.CarID)
	}
	if filter.ToolID != nil {
		conditions.AddCondition("tool_instance_id", *filter.ToolID)
	}
	if filter.UserID != nil {
		conditions.AddExpression(goqu.Or(
			goqu.C("initiator_id").Eq(*filter.UserID),
			goqu.C("source_user_id").Eq(*filter.UserID),
			goqu.C("target_user_id").Eq(*filter.UserID),
		))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conditions.AddExpression(goqu.Or(
			goqu.C("nomenclature_name").ILike(pattern),
			goqu.C("nomenclature_article").ILike(pattern),
			goqu.C("serial_number").ILike(pattern),
			goqu.C("kit_name").ILike(pattern),
			goqu.C("car_name").ILike(pattern),
			goqu.C("comment").ILike(pattern),
		))
	}
	if len(filter.IncludeActions) > 0 {
		conditions.AddCondition("action_type", actionStrings(filter.IncludeActions))
	}
	if len(filter.ExcludeActions) > 0 {
		conditions.AddExpression(goqu.C("action_type").NotIn(actionStrings(filter.ExcludeActions)))
	}

	expressions := []exp.Expression{conditions.BuildConditions(nil)}
	return append(expressions, conditions.Expressions()...)
}

func actionStrings(actions []metadata.ActionType) []string {
	values := make([]string, 0, len(actions))
	for _, a := range actions {
		values = append(values, string(a))
	}
	return values
}

func transformToMovementLog(r movementRecord) models.MovementLog {
	return models.MovementLog{
		ID:                  r.ID,
		CreatedAt:           r.CreatedAt,
		InitiatorID:         r.InitiatorID,
		ActionType:          r.ActionType,
		NomenclatureID:      r.NomenclatureID,
		ToolID:              r.ToolID,
		KitID:               r.KitID,
		CarID:               r.CarID,
		SourceWarehouseID:   r.SourceWarehouseID,
		SourceUserID:        r.SourceUserID,
		SourceKitID:         r.SourceKitID,
		SourceCarID:         r.SourceCarID,
		TargetWarehouseID:   r.TargetWarehouseID,
		TargetUserID:        r.TargetUserID,
		TargetKitID:         r.TargetKitID,
		TargetCarID:         r.TargetCarID,
		Quantity:            r.Quantity,
		Comment:             r.Comment,
		Composition:         r.Composition,
		TripMileage:         r.TripMileage,
		FuelAdded:           r.FuelAdded,
		InitiatorName:       r.InitiatorName,
		NomenclatureName:    r.NomenclatureName,
		NomenclatureArticle: r.NomenclatureArticle,
		SerialNumber:        r.SerialNumber,
		KitName:             r.KitName,
		CarName:             r.CarName,
	}
}
