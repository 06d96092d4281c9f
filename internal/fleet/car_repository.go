package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type Repository interface {
	GetCar(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.Car, error)
	InsertCar(ctx context.Context, tx *goqu.TxDatabase, car *models.Car) error
	UpdateCar(ctx context.Context, tx *goqu.TxDatabase, car *models.Car) error
	DeleteCar(ctx context.Context, tx *goqu.TxDatabase, id int) error
	ListCars(ctx context.Context, filter models.CarFilter) ([]models.Car, error)
}

type CarRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *CarRepository {
	return &CarRepository{repository: r}
}

type carRecord struct {
	ID                 int                `db:"id"`
	Brand              string             `db:"brand"`
	Model              string             `db:"model"`
	LicensePlate       string             `db:"license_plate"`
	IsTruck            bool               `db:"is_truck"`
	FuelType           string             `db:"fuel_type"`
	CurrentMileage     int                `db:"current_mileage"`
	LastServiceMileage int                `db:"last_service_mileage"`
	LastTIDate         *time.Time         `db:"last_ti_date"`
	InsuranceExpiry    *time.Time         `db:"insurance_expiry"`
	Status             metadata.CarStatus `db:"status"`
	DriverID           *int               `db:"driver_id"`
	Checklist          *string            `db:"checklist"`
	Version            int                `db:"version"`
}

var carColumns = []interface{}{
	"id", "brand", "model", "license_plate", "is_truck", "fuel_type", "current_mileage",
	"last_service_mileage", "last_ti_date", "insurance_expiry", "status", "driver_id",
	"checklist", "version",
}

func (r *CarRepository) GetCar(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.Car, error) {
	query := r.repository.Q(tx).From("cars").Select(carColumns...).Where(goqu.Ex{"id": id})
	if tx != nil {
		query = query.ForUpdate(exp.Wait)
	}

	var record carRecord
	found, err := query.Executor().ScanStructContext(ctx, &record)
	if err != nil {
		return nil, fmt.Errorf("unable to select car: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("car %d not found", id)
	}

	car := transformToCar(record)
	return &car, nil
}

func (r *CarRepository) InsertCar(ctx context.Context, tx *goqu.TxDatabase, car *models.Car) error {
	record := carValues(car)
	record["status"] = string(metadata.CarParked)

	var inserted struct {
		ID      int `db:"id"`
		Version int `db:"version"`
	}
	query := r.repository.Q(tx).Insert("cars").Rows(record).Returning("id", "version")
	if _, err := query.Executor().ScanStructContext(ctx, &inserted); err != nil {
		return repository.MapError(err, "Car with this license plate already exists")
	}
	car.ID = inserted.ID
	car.Version = inserted.Version
	car.Status = metadata.CarParked

	return nil
}

func (r *CarRepository) UpdateCar(ctx context.Context, tx *goqu.TxDatabase, car *models.Car) error {
	record := carValues(car)
	record["status"] = string(car.Status)
	record["version"] = goqu.L("version + 1")

	result, err := r.repository.Q(tx).Update("cars").
		Set(record).
		Where(goqu.Ex{"id": car.ID, "version": car.Version}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to update car")
	}
	if err := repository.CheckAffected(result, "car", car.ID); err != nil {
		return err
	}
	car.Version++

	return nil
}

func (r *CarRepository) DeleteCar(ctx context.Context, tx *goqu.TxDatabase, id int) error {
	result, err := r.repository.Q(tx).Delete("cars").
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return repository.MapError(err, "failed to delete car")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NotFound("car %d not found", id)
	}

	return nil
}

func (r *CarRepository) ListCars(ctx context.Context, filter models.CarFilter) ([]models.Car, error) {
	conditions := repository.NewQueryBuilder()
	if filter.Status != nil {
		conditions.AddCondition("status", string(*filter.Status))
	}
	if filter.DriverID != nil {
		conditions.AddCondition("driver_id", *filter.DriverID)
	}

	query := r.repository.GoquDBWrapper.From("cars").
		Select(carColumns...).
		Where(conditions.BuildConditions(nil)).
		Order(goqu.I("brand").Asc(), goqu.I("model").Asc(), goqu.I("id").Asc())

	var records []carRecord
	if err := query.Executor().ScanStructsContext(ctx, &records); err != nil {
		return nil, fmt.Errorf("unable to select cars: %w", err)
	}

	cars := make([]models.Car, 0, len(records))
	for _, record := range records {
		cars = append(cars, transformToCar(record))
	}
	return cars, nil
}

func carValues(car *models.Car) goqu.Record {
	return goqu.Record{
		"brand":                car.Brand,
		"model":                car.Model,
		"license_plate":        car.LicensePlate,
		"is_truck":             car.IsTruck,
		"fuel_type":            car.FuelType,
		"current_mileage":      car.CurrentMileage,
		"last_service_mileage": car.LastServiceMileage,
		"last_ti_date":         car.LastTIDate,
		"insurance_expiry":     car.InsuranceExpiry,
		"driver_id":            car.DriverID,
		"checklist":            car.Checklist,
	}
}

func transformToCar(record carRecord) models.Car {
	return models.Car{
		ID:                 record.ID,
		Brand:              record.Brand,
		Model:              record.Model,
		LicensePlate:       record.LicensePlate,
		IsTruck:            record.IsTruck,
		FuelType:           record.FuelType,
		CurrentMileage:     record.CurrentMileage,
		LastServiceMileage: record.LastServiceMileage,
		LastTIDate:         record.LastTIDate,
		InsuranceExpiry:    record.InsuranceExpiry,
		Status:             record.Status,
		DriverID:           record.DriverID,
		Checklist:          record.Checklist,
		Version:            record.Version,
	}
}
