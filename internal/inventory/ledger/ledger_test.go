package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, tx *goqu.TxDatabase, entry *models.MovementLog) error {
	args := m.Called(tx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) LastToolAction(ctx context.Context, tx *goqu.TxDatabase, toolID int) (metadata.ActionType, error) {
	args := m.Called(tx, toolID)
	return args.Get(0).(metadata.ActionType), args.Error(1)
}

func (m *MockLedgerRepository) IssuedSinceKitIssue(ctx context.Context, tx *goqu.TxDatabase, toolID, kitID int) (bool, error) {
	args := m.Called(tx, toolID, kitID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) Find(ctx context.Context, filter models.HistoryFilter) ([]models.MovementLog, int, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.MovementLog), args.Int(1), args.Error(2)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, entry *models.MovementLog) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}

func TestRecordCapturesSnapshotsBeforeAppend(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := New(repo, nil, zap.NewNop())

	tool := models.ToolInstance{
		ID:           5,
		InventoryID:  "SN-001",
		Nomenclature: models.Nomenclature{ID: 2, Name: "Drill", Article: "D-200"},
	}
	actor := roles.Actor{UserID: 1, Fullname: "Petrov P."}
	entry := &models.MovementLog{ActionType: metadata.ActionWriteOff, Comment: "lost"}

	repo.On("Append", (*goqu.TxDatabase)(nil), mock.MatchedBy(func(e *models.MovementLog) bool {
		return e.SerialNumber == "SN-001" && e.NomenclatureName == "Drill" && e.InitiatorName == "Petrov P."
	})).Return(nil).Once()

	err := l.Record(context.Background(), nil, entry, models.SnapshotSource{Initiator: &actor, Tool: &tool})

	assert.NoError(t, err)
	assert.Equal(t, 5, *entry.ToolID)
	repo.AssertExpectations(t)
}

func TestRecordRejectsUnknownAction(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := New(repo, nil, zap.NewNop())

	err := l.Record(context.Background(), nil, &models.MovementLog{ActionType: "TELEPORT"}, models.SnapshotSource{})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestRecordPropagatesAppendError(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := New(repo, nil, zap.NewNop())
	repo.On("Append", mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()

	err := l.Record(context.Background(), nil, &models.MovementLog{ActionType: metadata.ActionIssue}, models.SnapshotSource{})

	assert.EqualError(t, err, "insert failed")
}

func TestPublishAllContinuesAfterFailure(t *testing.T) {
	publisher := new(MockPublisher)
	l := New(new(MockLedgerRepository), publisher, zap.NewNop())

	first := &models.MovementLog{ID: 1, ActionType: metadata.ActionIssue}
	second := &models.MovementLog{ID: 2, ActionType: metadata.ActionReturn}
	publisher.On("Publish", first).Return(errors.New("broker down")).Once()
	publisher.On("Publish", second).Return(nil).Once()

	l.publishAll(context.Background(), []*models.MovementLog{first, second})

	publisher.AssertExpectations(t)
}

type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
	events  chan string
}

func (p *blockingPublisher) Publish(ctx context.Context, entry *models.MovementLog) error {
	close(p.started)
	<-p.release
	p.events <- "published"
	return nil
}

func (p *blockingPublisher) Close() error {
	p.events <- "closed"
	return nil
}

func TestCloseWaitsForPendingAnnouncements(t *testing.T) {
	publisher := &blockingPublisher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		events:  make(chan string, 2),
	}
	l := New(new(MockLedgerRepository), publisher, zap.NewNop())

	l.Announce(&models.MovementLog{ID: 1, ActionType: metadata.ActionIssue})
	<-publisher.started

	closed := make(chan error, 1)
	go func() { closed <- l.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a publish was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(publisher.release)
	require.NoError(t, <-closed)
	assert.Equal(t, "published", <-publisher.events)
	assert.Equal(t, "closed", <-publisher.events)
}

func TestFindWrapsPage(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := New(repo, nil, zap.NewNop())
	filter := models.HistoryFilter{Page: 2, PageSize: 10}
	repo.On("Find", filter).Return([]models.MovementLog{{ID: 11}}, 11, nil).Once()

	page, err := l.Find(context.Background(), filter)

	assert.NoError(t, err)
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 1)
}

func TestPartitionKey(t *testing.T) {
	toolID, kitID, carID := 3, 4, 5
	assert.Equal(t, "tool-3", PartitionKey(&models.MovementLog{ToolID: &toolID, KitID: &kitID}))
	assert.Equal(t, "kit-4", PartitionKey(&models.MovementLog{KitID: &kitID}))
	assert.Equal(t, "car-5", PartitionKey(&models.MovementLog{CarID: &carID}))
	assert.Equal(t, "movement-9", PartitionKey(&models.MovementLog{ID: 9}))
}

func TestDescribe(t *testing.T) {
	entry := models.MovementLog{
		ActionType:          metadata.ActionReceipt,
		NomenclatureName:    "Gloves",
		NomenclatureArticle: "G-100",
		Quantity:            5,
	}
	assert.Equal(t, "Receipt: Gloves (G-100) x5", Describe(entry))

	entry = models.MovementLog{ActionType: metadata.ActionKitIssue, KitName: "Electrician Case"}
	assert.Equal(t, "Kit issue: kit Electrician Case", Describe(entry))
	assert.Equal(t, "MOVE", ActionLabel("MOVE"))
}
