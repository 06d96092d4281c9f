package fleet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/consumables"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/placement"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/tools"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

type Transactor interface {
	InTransaction(ctx context.Context, fn func(tx *goqu.TxDatabase) error) error
}

type Ledger interface {
	placement.Recorder
	Announce(entries ...*models.MovementLog)
	Find(ctx context.Context, filter models.HistoryFilter) (*models.HistoryPage, error)
}

type UserFinder interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

type Dependencies struct {
	Transactor         Transactor
	Cars               Repository
	Tools              tools.Repository
	Balances           consumables.Repository
	Relocator          *placement.Relocator
	Ledger             Ledger
	Users              UserFinder
	DefaultWarehouseID int
	Now                func() time.Time
}

// FleetService drives the vehicle lifecycle. Each transition locks the car, changes its
// status and appends exactly one ledger row in the same transaction.
type FleetService struct {
	deps Dependencies
}

func NewService(deps Dependencies) *FleetService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &FleetService{deps: deps}
}

type transition func(ctx context.Context, tx *goqu.TxDatabase, car *models.Car) (*models.MovementLog, error)

// transit locks the car, checks its current status and records the row produced by fn.
func (s *FleetService) transit(ctx context.Context, actor roles.Actor, carID int, allowed []metadata.CarStatus, fn transition) (*models.MovementLog, error) {
	var entry *models.MovementLog
	err := s.deps.Transactor.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		car, err := s.deps.Cars.GetCar(ctx, tx, carID)
		if err != nil {
			return err
		}
		if !statusIn(car.Status, allowed) {
			return custom_error.Invariant("%s is %s", car.Descriptor(), strings.ToLower(string(car.Status)))
		}

		entry, err = fn(ctx, tx, car)
		if err != nil {
			return err
		}
		if err := s.deps.Cars.UpdateCar(ctx, tx, car); err != nil {
			return err
		}
		return s.deps.Ledger.Record(ctx, tx, entry, models.SnapshotSource{Initiator: &actor, Car: car})
	})
	if err != nil {
		return nil, err
	}
	s.deps.Ledger.Announce(entry)
	return entry, nil
}

func statusIn(status metadata.CarStatus, allowed []metadata.CarStatus) bool {
	for _, a := range allowed {
		if a == status {
			return true
		}
	}
	return false
}

// drive moves the odometer to the reported reading and returns the distance covered. A
// reading below the current one is ignored.
func drive(car *models.Car, mileage *int) int {
	if mileage == nil || *mileage <= car.CurrentMileage {
		return 0
	}
	trip := *mileage - car.CurrentMileage
	car.CurrentMileage = *mileage
	return trip
}

func vehicle(car *models.Car) models.Location {
	return models.InVehicle(car.ID)
}

func orDefault(comment, fallback string) string {
	if strings.TrimSpace(comment) == "" {
		return fallback
	}
	return comment
}

func (s *FleetService) Issue(ctx context.Context, actor roles.Actor, carID int, req models.CarIssueRequest) (*models.MovementLog, error) {
	if err := roles.Require(actor, roles.CapOperateFleet); err != nil {
		return nil, err
	}
	driver, err := s.deps.Users.GetUser(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if !driver.IsActive {
		return nil, custom_error.Invariant("user %s is inactive and cannot drive", driver.DisplayName())
	}

	return s.transit(ctx, actor, carID, []metadata.CarStatus{metadata.CarParked}, func(_ context.Context, _ *goqu.TxDatabase, car *models.Car) (*models.MovementLog, error) {
		car.Status = metadata.CarOnRoute
		car.DriverID = &driver.ID

		entry := &models.MovementLog{ActionType: metadata.ActionCarIssue, Comment: orDefault(req.Comment, "departure")}
		entry.SetTarget(models.WithHolder(driver.ID))
		entry.TargetCarID = &car.ID
		return entry, nil
	})
}

// Return closes a trip. The current driver may return the car without fleet rights.
func (s *FleetService) Return(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error) {
	return s.transit(ctx, actor, carID, []metadata.CarStatus{metadata.CarOnRoute}, func(_ context.Context, _ *goqu.TxDatabase, car *models.Car) (*models.MovementLog, error) {
		isDriver := car.DriverID != nil && *car.DriverID == actor.UserID
		if !isDriver {
			if err := roles.Require(actor, roles.CapOperateFleet); err != nil {
				return nil, err
			}
		}

		driverID := car.DriverID
		trip := drive(car, req.Mileage)
		car.Status = metadata.CarParked
		car.DriverID = nil

		entry := &models.MovementLog{
			ActionType:  metadata.ActionCarReturn,
			Comment:     orDefault(req.Comment, fmt.Sprintf("returned, trip %d km", trip)),
			TripMileage: &trip,
			FuelAdded:   &req.FuelAdded,
		}
		entry.SetSource(vehicle(car))
		entry.SourceUserID = driverID
		return entry, nil
	})
}

func (s *FleetService) StartMaintenance(ctx context.Context, actor roles.Actor, carID int, comment string) (*models.MovementLog, error) {
	return s.park(ctx, actor, carID, metadata.CarMaintenance, metadata.ActionCarToMaint, orDefault(comment, "sent to service"))
}

func (s *FleetService) StartInspection(ctx context.Context, actor roles.Actor, carID int, comment string) (*models.MovementLog, error) {
	return s.park(ctx, actor, carID, metadata.CarTechInspection, metadata.ActionCarToTI, orDefault(comment, "sent to technical inspection"))
}

// park takes a parked car out of service.
func (s *FleetService) park(ctx context.Context, actor roles.Actor, carID int, status metadata.CarStatus, action metadata.ActionType, comment string) (*models.MovementLog, error) {
	if err := roles.Require(actor, roles.CapManageFleet); err != nil {
		return nil, err
	}
	return s.transit(ctx, actor, carID, []metadata.CarStatus{metadata.CarParked}, func(_ context.Context, _ *goqu.TxDatabase, car *models.Car) (*models.MovementLog, error) {
		car.Status = status
		car.DriverID = nil

		entry := &models.MovementLog{ActionType: action, Comment: comment}
		entry.SetTarget(vehicle(car))
		return entry, nil
	})
}

// FinishMaintenance brings the car back from service and restarts the service interval
// at the reported mileage.
func (s *FleetService) FinishMaintenance(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error) {
	if err := roles.Require(actor, roles.CapManageFleet); err != nil {
		return nil, err
	}
	return s.transit(ctx, actor, carID, []metadata.CarStatus{metadata.CarMaintenance}, func(_ context.Context, _ *goqu.TxDatabase, car *models.Car) (*models.MovementLog, error) {
		trip := drive(car, req.Mileage)
		car.LastServiceMileage = car.CurrentMileage
		car.Status = metadata.CarParked

		entry := &models.MovementLog{
			ActionType:  metadata.ActionCarFromMaint,
			Comment:     orDefault(req.Works, "service completed"),
			TripMileage: &trip,
			FuelAdded:   &req.FuelAdded,
		}
		entry.SetSource(vehicle(car))
		return entry, nil
	})
}

func (s *FleetService) FinishInspection(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error) {
	if err := roles.Require(actor, roles.CapManageFleet); err != nil {
		return nil, err
	}
	return s.transit(ctx, actor, carID, []metadata.CarStatus{metadata.CarTechInspection}, func(_ context.Context, _ *goqu.TxDatabase, car *models.Car) (*models.MovementLog, error) {
		trip := drive(car, req.Mileage)
		y, m, d := s.deps.Now().Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		car.LastTIDate = &today
		car.Status = metadata.CarParked

		entry := &models.MovementLog{
			ActionType:  metadata.ActionCarFromTI,
			Comment:     orDefault(req.Comment, fmt.Sprintf("technical inspection passed, trip %d km", trip)),
			TripMileage: &trip,
			FuelAdded:   &req.FuelAdded,
		}
		entry.SetSource(vehicle(car))
		return entry, nil
	})
}

// MarkBroken takes a parked or driving car out of service. The driver is released.
func (s *FleetService) MarkBroken(ctx context.Context, actor roles.Actor, carID int, comment string) (*models.MovementLog, error) {
	if err := roles.Require(actor, roles.CapManageFleet); err != nil {
		return nil, err
	}
	allowed := []metadata.CarStatus{metadata.CarParked, metadata.CarOnRoute}
	return s.transit(ctx, actor, carID, allowed, func(_ context.Context, _ *goqu.TxDatabase, car *models.Car) (*models.MovementLog, error) {
		driverID := car.DriverID
		car.Status = metadata.CarBroken
		car.DriverID = nil

		entry := &models.MovementLog{ActionType: metadata.ActionCarToMaint, Comment: orDefault(comment, "vehicle marked broken")}
		entry.SetTarget(vehicle(car))
		entry.SourceUserID = driverID
		return entry, nil
	})
}

// MarkFixed parks a repaired car. The service interval is left as it was.
func (s *FleetService) MarkFixed(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error) {
	if err := roles.Require(actor, roles.CapManageFleet); err != nil {
		return nil, err
	}
	return s.transit(ctx, actor, carID, []metadata.CarStatus{metadata.CarBroken}, func(_ context.Context, _ *goqu.TxDatabase, car *models.Car) (*models.MovementLog, error) {
		trip := drive(car, req.Mileage)
		car.Status = metadata.CarParked

		entry := &models.MovementLog{
			ActionType:  metadata.ActionCarFromMaint,
			Comment:     orDefault(req.Works, "repair completed"),
			TripMileage: &trip,
			FuelAdded:   &req.FuelAdded,
		}
		entry.SetSource(vehicle(car))
		return entry, nil
	})
}

func (s *FleetService) Create(ctx context.Context, actor roles.Actor, req models.CarRequest) (*models.Car, error) {
	if err := roles.Require(actor, roles.CapManageFleet); err != nil {
		return nil, err
	}
	car := &models.Car{}
	if err := applyRequest(car, req); err != nil {
		return nil, err
	}

	err := s.deps.Transactor.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		return s.deps.Cars.InsertCar(ctx, tx, car)
	})
	if err != nil {
		return nil, err
	}
	return car, nil
}

// Update edits the car card. Status and driver only change through transitions, and the
// odometer cannot be wound back.
func (s *FleetService) Update(ctx context.Context, actor roles.Actor, id int, req models.CarRequest) (*models.Car, error) {
	if err := roles.Require(actor, roles.CapManageFleet); err != nil {
		return nil, err
	}

	var car *models.Car
	err := s.deps.Transactor.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		var err error
		car, err = s.deps.Cars.GetCar(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.CurrentMileage < car.CurrentMileage {
			return custom_error.Invariant("mileage of %s cannot go down from %d to %d", car.Descriptor(), car.CurrentMileage, req.CurrentMileage)
		}
		if err := applyRequest(car, req); err != nil {
			return err
		}
		return s.deps.Cars.UpdateCar(ctx, tx, car)
	})
	if err != nil {
		return nil, err
	}
	return car, nil
}

func applyRequest(car *models.Car, req models.CarRequest) error {
	lastTI, insurance, err := req.Dates()
	if err != nil {
		return custom_error.Invariant("%s", err.Error())
	}
	car.Brand = strings.TrimSpace(req.Brand)
	car.Model = strings.TrimSpace(req.Model)
	car.LicensePlate = strings.ToUpper(strings.TrimSpace(req.LicensePlate))
	car.IsTruck = req.IsTruck
	car.FuelType = req.FuelType
	car.CurrentMileage = req.CurrentMileage
	car.LastServiceMileage = req.LastServiceMileage
	car.LastTIDate = lastTI
	car.InsuranceExpiry = insurance
	car.Checklist = req.Checklist
	if car.Brand == "" || car.LicensePlate == "" {
		return custom_error.Invariant("brand and license plate are required")
	}
	return nil
}

// Delete removes a car. Whatever is still loaded in it goes back to the default warehouse,
// one RETURN row per tool or balance.
func (s *FleetService) Delete(ctx context.Context, actor roles.Actor, id int) error {
	if err := roles.Require(actor, roles.CapManageFleet); err != nil {
		return err
	}

	var entries []*models.MovementLog
	err := s.deps.Transactor.InTransaction(ctx, func(tx *goqu.TxDatabase) error {
		car, err := s.deps.Cars.GetCar(ctx, tx, id)
		if err != nil {
			return err
		}
		if car.Status == metadata.CarOnRoute {
			return custom_error.Invariant("%s is on route and cannot be removed", car.Descriptor())
		}

		home := models.AtWarehouse(s.deps.DefaultWarehouseID)
		move := placement.Move{Actor: actor, Action: metadata.ActionReturn, Comment: "unloaded from removed vehicle " + car.Descriptor()}

		loaded, err := s.deps.Tools.ListTools(ctx, tx, models.ToolFilter{CarID: &car.ID})
		if err != nil {
			return err
		}
		for i := range loaded {
			entry, err := s.deps.Relocator.MoveTool(ctx, tx, &loaded[i], home, move)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		balances, err := s.deps.Balances.ListBalances(ctx, tx, models.BalanceFilter{CarID: &car.ID})
		if err != nil {
			return err
		}
		for i := range balances {
			_, entry, err := s.deps.Relocator.MoveQuantity(ctx, tx, &balances[i], balances[i].Quantity, home, move)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		return s.deps.Cars.DeleteCar(ctx, tx, car.ID)
	})
	if err != nil {
		return err
	}
	s.deps.Ledger.Announce(entries...)
	return nil
}

func (s *FleetService) Get(ctx context.Context, id int) (*models.Car, error) {
	return s.deps.Cars.GetCar(ctx, nil, id)
}

func (s *FleetService) List(ctx context.Context, filter models.CarFilter) ([]models.Car, error) {
	return s.deps.Cars.ListCars(ctx, filter)
}

// History pages through the trip or the maintenance rows of one car.
func (s *FleetService) History(ctx context.Context, actor roles.Actor, carID int, kind models.CarHistoryKind, page int) (*models.HistoryPage, error) {
	if err := roles.Require(actor, roles.CapViewHistory); err != nil {
		return nil, err
	}
	if _, err := s.deps.Cars.GetCar(ctx, nil, carID); err != nil {
		return nil, err
	}
	return s.deps.Ledger.Find(ctx, models.HistoryFilter{
		CarID:          &carID,
		IncludeActions: kind.Actions(),
		Page:           page,
	})
}

// Alerts lists service, inspection and insurance warnings across the fleet.
func (s *FleetService) Alerts(ctx context.Context, actor roles.Actor) ([]models.CarAlert, error) {
	if err := roles.Require(actor, roles.CapViewAlerts); err != nil {
		return nil, err
	}
	cars, err := s.deps.Cars.ListCars(ctx, models.CarFilter{})
	if err != nil {
		return nil, err
	}

	now := s.deps.Now()
	alerts := []models.CarAlert{}
	for _, car := range cars {
		alerts = append(alerts, car.Alerts(now)...)
	}
	return alerts, nil
}
