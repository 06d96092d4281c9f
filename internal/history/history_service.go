package history

import (
	"context"
	"io"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"go.uber.org/zap"
)

const (
	exportPageSize = 500
	maxExportRows  = 20000
)

type Ledger interface {
	Find(ctx context.Context, filter models.HistoryFilter) (*models.HistoryPage, error)
}

type SheetsExporter interface {
	AppendRows(ctx context.Context, rows [][]interface{}) (int, error)
}

type HistoryService struct {
	ledger Ledger
	sheets SheetsExporter
	logger *zap.Logger
}

// NewService accepts a nil exporter when Google Sheets is not configured.
func NewService(l Ledger, sheets SheetsExporter, logger *zap.Logger) *HistoryService {
	return &HistoryService{ledger: l, sheets: sheets, logger: logger}
}

// List returns one page of the general history. Vehicle rows live in the fleet history.
func (s *HistoryService) List(ctx context.Context, actor roles.Actor, filter models.HistoryFilter) (*models.HistoryPage, error) {
	if err := roles.Require(actor, roles.CapViewHistory); err != nil {
		return nil, err
	}
	filter.ExcludeActions = metadata.VehicleActions()
	filter.IncludeActions = nil
	filter.PageSize = models.DefaultPageSize
	return s.ledger.Find(ctx, filter)
}

func (s *HistoryService) Export(ctx context.Context, actor roles.Actor, filter models.HistoryFilter, w io.Writer) error {
	if err := roles.Require(actor, roles.CapViewHistory); err != nil {
		return err
	}
	entries, err := s.collect(ctx, filter)
	if err != nil {
		return err
	}
	return WriteWorkbook(w, entries)
}

func (s *HistoryService) SyncToSheets(ctx context.Context, actor roles.Actor, filter models.HistoryFilter) (int, error) {
	if err := roles.Require(actor, roles.CapViewHistory); err != nil {
		return 0, err
	}
	if !actor.Role.HasPermission(roles.Moderator) {
		return 0, custom_error.Forbidden("%s is not allowed to export to Google Sheets", actor.DisplayName())
	}
	if s.sheets == nil {
		return 0, custom_error.Invariant("Google Sheets export is not configured")
	}

	entries, err := s.collect(ctx, filter)
	if err != nil {
		return 0, err
	}
	rows := make([][]interface{}, 0, len(entries))
	// oldest first so repeated syncs read top to bottom
	for i := len(entries) - 1; i >= 0; i-- {
		rows = append(rows, Row(entries[i]))
	}

	appended, err := s.sheets.AppendRows(ctx, rows)
	if err != nil {
		return 0, err
	}
	s.logger.Info("History exported to Google Sheets", zap.Int("rows", appended), zap.String("initiator", actor.Username))
	return appended, nil
}

func (s *HistoryService) collect(ctx context.Context, filter models.HistoryFilter) ([]models.MovementLog, error) {
	filter.ExcludeActions = metadata.VehicleActions()
	filter.IncludeActions = nil
	filter.PageSize = exportPageSize

	var entries []models.MovementLog
	for page := 1; ; page++ {
		filter.Page = page
		result, err := s.ledger.Find(ctx, filter)
		if err != nil {
			return nil, err
		}
		entries = append(entries, result.Items...)
		if len(result.Items) < exportPageSize || len(entries) >= result.Total {
			break
		}
		if len(entries) >= maxExportRows {
			return nil, custom_error.Invariant("export is limited to %d rows, narrow the filter", maxExportRows)
		}
	}
	return entries, nil
}
