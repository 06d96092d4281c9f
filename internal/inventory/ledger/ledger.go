package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

type Repository interface {
	Append(ctx context.Context, tx *goqu.TxDatabase, entry *models.MovementLog) error
	LastToolAction(ctx context.Context, tx *goqu.TxDatabase, toolID int) (metadata.ActionType, error)
	IssuedSinceKitIssue(ctx context.Context, tx *goqu.TxDatabase, toolID, kitID int) (bool, error)
	Find(ctx context.Context, filter models.HistoryFilter) ([]models.MovementLog, int, error)
}

// Ledger is the only writer of movement logs. Rows are appended inside the caller's
// transaction and announced to the publisher once that transaction has committed.
type Ledger struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger

	inflight sync.WaitGroup
}

func New(repo Repository, publisher Publisher, logger *zap.Logger) *Ledger {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Ledger{repo: repo, publisher: publisher, logger: logger}
}

func (l *Ledger) Record(ctx context.Context, tx *goqu.TxDatabase, entry *models.MovementLog, src models.SnapshotSource) error {
	if _, err := metadata.NewActionType(string(entry.ActionType)); err != nil {
		return fmt.Errorf("refusing to record movement: %w", err)
	}
	entry.CaptureSnapshots(src)
	if err := l.repo.Append(ctx, tx, entry); err != nil {
		return err
	}
	return nil
}

func (l *Ledger) LastToolAction(ctx context.Context, tx *goqu.TxDatabase, toolID int) (metadata.ActionType, error) {
	return l.repo.LastToolAction(ctx, tx, toolID)
}

func (l *Ledger) IssuedSinceKitIssue(ctx context.Context, tx *goqu.TxDatabase, toolID, kitID int) (bool, error) {
	return l.repo.IssuedSinceKitIssue(ctx, tx, toolID, kitID)
}

func (l *Ledger) Find(ctx context.Context, filter models.HistoryFilter) (*models.HistoryPage, error) {
	filter.Normalize()
	entries, total, err := l.repo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &models.HistoryPage{Items: entries, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// Announce publishes committed rows in the background. Publishing failures never affect
// the operation that produced the rows.
func (l *Ledger) Announce(entries ...*models.MovementLog) {
	if len(entries) == 0 {
		return
	}
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		l.publishAll(context.Background(), entries)
	}()
}

func (l *Ledger) publishAll(ctx context.Context, entries []*models.MovementLog) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, entry := range entries {
		if err := l.publisher.Publish(ctx, entry); err != nil {
			l.logger.Warn("Unable to publish movement",
				zap.Int("movement_id", entry.ID),
				zap.String("action", string(entry.ActionType)),
				zap.Error(err),
			)
		}
	}
}

// Close waits for pending announcements and then releases the publisher.
func (l *Ledger) Close() error {
	l.inflight.Wait()
	return l.publisher.Close()
}
