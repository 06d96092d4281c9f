package history

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/inventorytest"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/ledger"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeSheets struct {
	rows [][]interface{}
	err  error
}

func (f *fakeSheets) AppendRows(_ context.Context, rows [][]interface{}) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, rows...)
	return len(rows), nil
}

var (
	viewer    = roles.Actor{UserID: 3, Username: "viewer", Role: roles.User}
	moderator = roles.Actor{UserID: 2, Username: "shift", Role: roles.Moderator}
)

func seed(t *testing.T, store *inventorytest.MemStore, entries ...models.MovementLog) {
	t.Helper()
	for i := range entries {
		require.NoError(t, store.Append(context.Background(), nil, &entries[i]))
	}
}

func newStore() *inventorytest.MemStore {
	store := inventorytest.NewMemStore()
	store.Now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return store
}

func ledgerRows(n int) []models.MovementLog {
	rows := make([]models.MovementLog, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.MovementLog{ActionType: metadata.ActionReceipt, NomenclatureName: "Gloves", Quantity: 1})
	}
	return rows
}

func TestListExcludesVehicleActions(t *testing.T) {
	store := newStore()
	seed(t, store,
		models.MovementLog{ActionType: metadata.ActionIssue, NomenclatureName: "Drill", SerialNumber: "SN-1"},
		models.MovementLog{ActionType: metadata.ActionCarIssue, CarName: "GAZ Next (A123BC)"},
		models.MovementLog{ActionType: metadata.ActionReceipt, NomenclatureName: "Gloves", Quantity: 5},
	)
	service := NewService(ledger.New(store, nil, zap.NewNop()), nil, zap.NewNop())

	page, err := service.List(context.Background(), viewer, models.HistoryFilter{
		IncludeActions: []metadata.ActionType{metadata.ActionCarIssue},
		PageSize:       100,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, models.DefaultPageSize, page.PageSize)
	for _, entry := range page.Items {
		assert.False(t, entry.ActionType.IsVehicle())
	}
}

func TestListPaginatesByTen(t *testing.T) {
	store := newStore()
	seed(t, store, ledgerRows(12)...)
	service := NewService(ledger.New(store, nil, zap.NewNop()), nil, zap.NewNop())

	page, err := service.List(context.Background(), viewer, models.HistoryFilter{Page: 2})

	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Len(t, page.Items, 2)
}

func TestExportWritesWorkbook(t *testing.T) {
	store := newStore()
	seed(t, store,
		models.MovementLog{ActionType: metadata.ActionReceipt, NomenclatureName: "Gloves", NomenclatureArticle: "G-1", Quantity: 5, InitiatorName: "Store Keeper"},
		models.MovementLog{ActionType: metadata.ActionCarReturn, CarName: "GAZ Next (A123BC)"},
	)
	service := NewService(ledger.New(store, nil, zap.NewNop()), nil, zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, service.Export(context.Background(), viewer, models.HistoryFilter{}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "Receipt", rows[1][1])
	assert.Equal(t, "Gloves (G-1)", rows[1][2])
	assert.Equal(t, "5", rows[1][3])
	assert.Equal(t, "Store Keeper", rows[1][6])
}

func TestExportCollectsAllPages(t *testing.T) {
	store := newStore()
	seed(t, store, ledgerRows(exportPageSize+3)...)
	service := NewService(ledger.New(store, nil, zap.NewNop()), nil, zap.NewNop())

	entries, err := service.collect(context.Background(), models.HistoryFilter{})

	require.NoError(t, err)
	assert.Len(t, entries, exportPageSize+3)
}

func TestSyncToSheets(t *testing.T) {
	store := newStore()
	seed(t, store,
		models.MovementLog{ActionType: metadata.ActionReceipt, NomenclatureName: "Gloves", Quantity: 5},
		models.MovementLog{ActionType: metadata.ActionIssue, NomenclatureName: "Drill"},
	)
	l := ledger.New(store, nil, zap.NewNop())

	t.Run("appends oldest first", func(t *testing.T) {
		sheets := &fakeSheets{}
		service := NewService(l, sheets, zap.NewNop())

		n, err := service.SyncToSheets(context.Background(), moderator, models.HistoryFilter{})

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "Receipt", sheets.rows[0][1])
		assert.Equal(t, "Issue", sheets.rows[1][1])
	})

	t.Run("not configured", func(t *testing.T) {
		service := NewService(l, nil, zap.NewNop())
		_, err := service.SyncToSheets(context.Background(), moderator, models.HistoryFilter{})
		assert.ErrorIs(t, err, custom_error.ErrInvariant)
	})

	t.Run("plain users cannot export", func(t *testing.T) {
		service := NewService(l, &fakeSheets{}, zap.NewNop())
		_, err := service.SyncToSheets(context.Background(), viewer, models.HistoryFilter{})
		assert.ErrorIs(t, err, custom_error.ErrForbidden)
	})

	t.Run("sheets failure", func(t *testing.T) {
		service := NewService(l, &fakeSheets{err: errors.New("quota exceeded")}, zap.NewNop())
		_, err := service.SyncToSheets(context.Background(), moderator, models.HistoryFilter{})
		assert.ErrorContains(t, err, "quota exceeded")
	})
}
