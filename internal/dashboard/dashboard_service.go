package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"go.uber.org/zap"
)

const (
	summaryKey = "dashboard:summary"
	alertsKey  = "dashboard:alerts"
)

type AlertSource interface {
	Alerts(ctx context.Context, actor roles.Actor) ([]models.CarAlert, error)
}

type alerts struct {
	Cars     []models.CarAlert      `json:"cars"`
	LowStock []models.LowStockGroup `json:"low_stock"`
}

type DashboardService struct {
	repository Repository
	fleet      AlertSource
	cache      Cache
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(r Repository, fleet AlertSource, cache Cache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		repository: r,
		fleet:      fleet,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// Summary returns the shared counters and, for actors allowed to see them, the alerts.
func (s *DashboardService) Summary(ctx context.Context, actor roles.Actor) (*models.Dashboard, error) {
	var summary models.Dashboard
	if !s.cached(ctx, summaryKey, &summary) {
		counted, err := s.count(ctx)
		if err != nil {
			return nil, err
		}
		summary = *counted
		s.store(ctx, summaryKey, summary)
	}

	if !roles.Can(actor, roles.CapViewAlerts, roles.AnyScope()) {
		return &summary, nil
	}

	var current alerts
	if !s.cached(ctx, alertsKey, &current) {
		collected, err := s.collectAlerts(ctx, actor)
		if err != nil {
			return nil, err
		}
		current = *collected
		s.store(ctx, alertsKey, current)
	}
	summary.CarAlerts = current.Cars
	summary.LowStock = current.LowStock
	return &summary, nil
}

func (s *DashboardService) cached(ctx context.Context, key string, dest interface{}) bool {
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("Dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *DashboardService) store(ctx context.Context, key string, value interface{}) {
	if s.ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("Dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) count(ctx context.Context) (*models.Dashboard, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	receipts := []metadata.ActionType{metadata.ActionReceipt}
	notOperations := append(metadata.VehicleActions(), metadata.ActionReceipt)

	var summary models.Dashboard
	steps := []func() error{
		func() (err error) {
			summary.OperationsToday, err = s.repository.CountMovements(ctx, today, tomorrow, nil, notOperations)
			return
		},
		func() (err error) {
			summary.OperationsYesterday, err = s.repository.CountMovements(ctx, yesterday, today, nil, notOperations)
			return
		},
		func() (err error) {
			summary.ReceiptsToday, err = s.repository.CountMovements(ctx, today, tomorrow, receipts, nil)
			return
		},
		func() (err error) {
			summary.ReceiptsYesterday, err = s.repository.CountMovements(ctx, yesterday, today, receipts, nil)
			return
		},
		func() (err error) {
			summary.ActiveUsersToday, err = s.repository.CountActiveUsers(ctx, today, tomorrow)
			return
		},
		func() (err error) {
			summary.ActiveUsersYesterday, err = s.repository.CountActiveUsers(ctx, yesterday, today)
			return
		},
		func() (err error) {
			summary.WarehousesWithTools, err = s.repository.CountWarehousesWithTools(ctx)
			return
		},
		func() (err error) {
			summary.ActiveHolders, err = s.repository.CountActiveHolders(ctx)
			return
		},
		func() (err error) {
			summary.IssuedKits, err = s.repository.CountKits(ctx, metadata.KitIssued)
			return
		},
		func() (err error) {
			summary.CarsOnRoute, err = s.repository.CountCars(ctx, metadata.CarOnRoute)
			return
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return &summary, nil
}

func (s *DashboardService) collectAlerts(ctx context.Context, actor roles.Actor) (*alerts, error) {
	cars, err := s.fleet.Alerts(ctx, actor)
	if err != nil {
		return nil, err
	}
	items, err := s.repository.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	return &alerts{Cars: cars, LowStock: groupLowStock(items)}, nil
}

// groupLowStock keeps the repository order; unstocked consumables form the last group.
func groupLowStock(items []models.LowStockItem) []models.LowStockGroup {
	groups := []models.LowStockGroup{}
	index := map[int]int{}
	missing := -1
	for _, item := range items {
		if item.WarehouseID == nil {
			if missing < 0 {
				groups = append(groups, models.LowStockGroup{Warehouse: "Not in stock"})
				missing = len(groups) - 1
			}
			groups[missing].Items = append(groups[missing].Items, item)
			continue
		}

		i, ok := index[*item.WarehouseID]
		if !ok {
			groups = append(groups, models.LowStockGroup{WarehouseID: item.WarehouseID, Warehouse: item.WarehouseName})
			i = len(groups) - 1
			index[*item.WarehouseID] = i
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
