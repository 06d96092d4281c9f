package models

import (
	"fmt"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
)

const (
	ServiceInterval       = 7500
	ServiceWarningKm      = 100
	InspectionPeriodDays  = 365
	InspectionWarningDays = 30
	InsuranceWarningDays  = 30
)

type AlertLevel string

const (
	AlertOK      AlertLevel = "ok"
	AlertWarning AlertLevel = "warning"
	AlertDanger  AlertLevel = "danger"
)

type Car struct {
	ID                 int                `json:"id"`
	Brand              string             `json:"brand"`
	Model              string             `json:"model"`
	LicensePlate       string             `json:"license_plate"`
	IsTruck            bool               `json:"is_truck"`
	FuelType           string             `json:"fuel_type"`
	CurrentMileage     int                `json:"current_mileage"`
	LastServiceMileage int                `json:"last_service_mileage"`
	LastTIDate         *time.Time         `json:"last_ti_date"`
	InsuranceExpiry    *time.Time         `json:"insurance_expiry"`
	Status             metadata.CarStatus `json:"status"`
	DriverID           *int               `json:"driver_id"`
	Checklist          *string            `json:"checklist"`
	Version            int                `json:"version"`
}

func (c Car) Descriptor() string {
	return fmt.Sprintf("%s %s (%s)", c.Brand, c.Model, c.LicensePlate)
}

func (c Car) NextServiceAt() int {
	return c.LastServiceMileage + ServiceInterval
}

func (c Car) KmToService() int {
	return c.NextServiceAt() - c.CurrentMileage
}

func (c Car) ServiceStatus() AlertLevel {
	km := c.KmToService()
	switch {
	case km < 0:
		return AlertDanger
	case km <= ServiceWarningKm:
		return AlertWarning
	default:
		return AlertOK
	}
}

func (c Car) NextInspection() *time.Time {
	if c.LastTIDate == nil {
		return nil
	}
	next := c.LastTIDate.AddDate(0, 0, InspectionPeriodDays)
	return &next
}

// InspectionStatus is only evaluated for trucks; other vehicles are always ok.
func (c Car) InspectionStatus(now time.Time) AlertLevel {
	next := c.NextInspection()
	if !c.IsTruck || next == nil {
		return AlertOK
	}
	return dateStatus(*next, now, InspectionWarningDays)
}

func (c Car) InsuranceStatus(now time.Time) AlertLevel {
	if c.InsuranceExpiry == nil {
		return AlertOK
	}
	return dateStatus(*c.InsuranceExpiry, now, InsuranceWarningDays)
}

func dateStatus(deadline, now time.Time, warningDays int) AlertLevel {
	today := truncateDay(now)
	deadline = truncateDay(deadline)
	switch {
	case deadline.Before(today):
		return AlertDanger
	case !deadline.After(today.AddDate(0, 0, warningDays)):
		return AlertWarning
	default:
		return AlertOK
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type CarAlert struct {
	CarID   int        `json:"car_id"`
	Car     string     `json:"car"`
	Kind    string     `json:"kind"`
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

// Alerts lists every non-ok maintenance, inspection and insurance status of the car.
func (c Car) Alerts(now time.Time) []CarAlert {
	var alerts []CarAlert
	if level := c.ServiceStatus(); level != AlertOK {
		alerts = append(alerts, CarAlert{
			CarID: c.ID, Car: c.Descriptor(), Kind: "service", Level: level,
			Message: fmt.Sprintf("service due in %d km", c.KmToService()),
		})
	}
	if level := c.InspectionStatus(now); level != AlertOK {
		alerts = append(alerts, CarAlert{
			CarID: c.ID, Car: c.Descriptor(), Kind: "inspection", Level: level,
			Message: "technical inspection due " + c.NextInspection().Format(time.DateOnly),
		})
	}
	if level := c.InsuranceStatus(now); level != AlertOK {
		alerts = append(alerts, CarAlert{
			CarID: c.ID, Car: c.Descriptor(), Kind: "insurance", Level: level,
			Message: "insurance expires " + c.InsuranceExpiry.Format(time.DateOnly),
		})
	}
	return alerts
}

type CarFilter struct {
	Status   *metadata.CarStatus
	DriverID *int
}

type CarRequest struct {
	Brand              string  `json:"brand" binding:"required"`
	Model              string  `json:"model" binding:"required"`
	LicensePlate       string  `json:"license_plate" binding:"required"`
	IsTruck            bool    `json:"is_truck"`
	FuelType           string  `json:"fuel_type"`
	CurrentMileage     int     `json:"current_mileage" binding:"min=0"`
	LastServiceMileage int     `json:"last_service_mileage" binding:"min=0"`
	LastTIDate         *string `json:"last_ti_date"`
	InsuranceExpiry    *string `json:"insurance_expiry"`
	Checklist          *string `json:"checklist"`
}

// Dates parses the optional YYYY-MM-DD fields of the request.
func (r CarRequest) Dates() (lastTI, insurance *time.Time, err error) {
	if lastTI, err = parseDate(r.LastTIDate, "last_ti_date"); err != nil {
		return nil, nil, err
	}
	if insurance, err = parseDate(r.InsuranceExpiry, "insurance_expiry"); err != nil {
		return nil, nil, err
	}
	return lastTI, insurance, nil
}

func parseDate(value *string, field string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, *value)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}

type CarIssueRequest struct {
	DriverID int    `json:"driver_id" binding:"required"`
	Comment  string `json:"comment"`
}

// CarTripRequest closes a trip, a service visit or a repair. Mileage defaults to the
// current odometer reading.
type CarTripRequest struct {
	Mileage   *int   `json:"mileage" binding:"omitempty,min=0"`
	FuelAdded int    `json:"fuel_added" binding:"min=0"`
	Works     string `json:"works"`
	Comment   string `json:"comment"`
}

type CarStatusRequest struct {
	Comment string `json:"comment"`
}

type CarHistoryKind string

const (
	CarHistoryTrips       CarHistoryKind = "trips"
	CarHistoryMaintenance CarHistoryKind = "maintenance"
)

func NewCarHistoryKind(value string) (CarHistoryKind, error) {
	switch kind := CarHistoryKind(value); kind {
	case CarHistoryTrips, CarHistoryMaintenance:
		return kind, nil
	case "":
		return CarHistoryTrips, nil
	default:
		return "", fmt.Errorf("invalid car history kind: %s", value)
	}
}

func (k CarHistoryKind) Actions() []metadata.ActionType {
	if k == CarHistoryMaintenance {
		return metadata.MaintenanceActions()
	}
	return metadata.TripActions()
}
