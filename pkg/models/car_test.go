package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCarServiceStatus(t *testing.T) {
	tests := []struct {
		name        string
		lastService int
		current     int
		wantKm      int
		want        AlertLevel
	}{
		{"fresh service", 10000, 10500, 7000, AlertOK},
		{"exactly at warning threshold", 10000, 17400, 100, AlertWarning},
		{"one km before warning", 10000, 17399, 101, AlertOK},
		{"due now", 10000, 17500, 0, AlertWarning},
		{"overdue", 10000, 17501, -1, AlertDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			car := Car{LastServiceMileage: tt.lastService, CurrentMileage: tt.current}
			assert.Equal(t, tt.wantKm, car.KmToService())
			assert.Equal(t, tt.want, car.ServiceStatus())
		})
	}
}

func TestCarInspectionStatus(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	date := func(y int, m time.Month, d int) *time.Time {
		v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	truck := Car{IsTruck: true, LastTIDate: date(2025, 8, 1)}
	assert.Equal(t, AlertOK, truck.InspectionStatus(now))

	truck.LastTIDate = date(2025, 7, 10)
	assert.Equal(t, AlertWarning, truck.InspectionStatus(now))

	truck.LastTIDate = date(2025, 6, 1)
	assert.Equal(t, AlertDanger, truck.InspectionStatus(now))

	passenger := Car{IsTruck: false, LastTIDate: date(2020, 1, 1)}
	assert.Equal(t, AlertOK, passenger.InspectionStatus(now))

	assert.Equal(t, AlertOK, Car{IsTruck: true}.InspectionStatus(now))
}

func TestCarInsuranceStatus(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	car := Car{InsuranceExpiry: &expiry}
	assert.Equal(t, AlertWarning, car.InsuranceStatus(now))

	expired := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	car.InsuranceExpiry = &expired
	assert.Equal(t, AlertDanger, car.InsuranceStatus(now))
}

func TestCarAlerts(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	lastTI := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	car := Car{
		ID: 3, Brand: "GAZ", Model: "Next", LicensePlate: "A123BC",
		IsTruck: true, LastServiceMileage: 0, CurrentMileage: 8000, LastTIDate: &lastTI,
	}

	alerts := car.Alerts(now)

	assert.Len(t, alerts, 2)
	assert.Equal(t, "service", alerts[0].Kind)
	assert.Equal(t, AlertDanger, alerts[0].Level)
	assert.Equal(t, "inspection", alerts[1].Kind)
	assert.Equal(t, "GAZ Next (A123BC)", alerts[1].Car)
}
