package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
	Service
}

func (m *MockService) Return(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error) {
	args := m.Called(actor, carID, req)
	entry, _ := args.Get(0).(*models.MovementLog)
	return entry, args.Error(1)
}

func (m *MockService) MarkBroken(ctx context.Context, actor roles.Actor, carID int, comment string) (*models.MovementLog, error) {
	args := m.Called(actor, carID, comment)
	entry, _ := args.Get(0).(*models.MovementLog)
	return entry, args.Error(1)
}

func (m *MockService) List(ctx context.Context, filter models.CarFilter) ([]models.Car, error) {
	args := m.Called(filter)
	cars, _ := args.Get(0).([]models.Car)
	return cars, args.Error(1)
}

func (m *MockService) History(ctx context.Context, actor roles.Actor, carID int, kind models.CarHistoryKind, page int) (*models.HistoryPage, error) {
	args := m.Called(actor, carID, kind, page)
	history, _ := args.Get(0).(*models.HistoryPage)
	return history, args.Error(1)
}

func (m *MockService) Create(ctx context.Context, actor roles.Actor, req models.CarRequest) (*models.Car, error) {
	args := m.Called(actor, req)
	car, _ := args.Get(0).(*models.Car)
	return car, args.Error(1)
}

var dispatcher = roles.Actor{UserID: 2, Username: "dispatcher", Role: roles.Moderator}

func serve(service Service, method, path string, body any) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api", func(c *gin.Context) {
		security.SetActor(c, dispatcher)
		c.Next()
	})
	NewHandler(service).RegisterRoutes(group)

	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestReturnCarHandler(t *testing.T) {
	mileage := 10250
	tests := []struct {
		name           string
		body           any
		req            models.CarTripRequest
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "with mileage and fuel",
			body:           gin.H{"mileage": 10250, "fuel_added": 40},
			req:            models.CarTripRequest{Mileage: &mileage, FuelAdded: 40},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"ok"`,
		},
		{
			name:           "empty body",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "car is parked",
			err:            custom_error.Invariant("GAZ Next (A123BC) is parked"),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"message":"GAZ Next (A123BC) is parked"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			var entry *models.MovementLog
			if tt.err == nil {
				entry = &models.MovementLog{ID: 5, ActionType: metadata.ActionCarReturn}
			}
			service.On("Return", dispatcher, 3, tt.req).Return(entry, tt.err).Once()

			w := serve(service, http.MethodPost, "/api/cars/3/return", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestReturnCarHandlerRejectsNegativeFuel(t *testing.T) {
	service := new(MockService)

	w := serve(service, http.MethodPost, "/api/cars/3/return", gin.H{"fuel_added": -5})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "Return")
}

func TestMarkBrokenHandler(t *testing.T) {
	service := new(MockService)
	service.On("MarkBroken", dispatcher, 3, "engine smoke").Return(nil, custom_error.Forbidden("dispatcher is not allowed to manage_fleet")).Once()

	w := serve(service, http.MethodPost, "/api/cars/3/broken", models.CarStatusRequest{Comment: "engine smoke"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
	service.AssertExpectations(t)
}

func TestListCarsHandler(t *testing.T) {
	service := new(MockService)
	onRoute := metadata.CarOnRoute
	service.On("List", models.CarFilter{Status: &onRoute}).Return([]models.Car{{ID: 3, Brand: "GAZ"}}, nil).Once()

	w := serve(service, http.MethodGet, "/api/cars?status=on_route", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var cars []models.Car
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &cars))
	assert.Len(t, cars, 1)
}

func TestCarHistoryHandler(t *testing.T) {
	service := new(MockService)
	service.On("History", dispatcher, 3, models.CarHistoryMaintenance, 2).Return(&models.HistoryPage{Page: 2, PageSize: 10}, nil).Once()

	w := serve(service, http.MethodGet, "/api/cars/3/history?kind=maintenance&page=2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)

	w = serve(service, http.MethodGet, "/api/cars/3/history?kind=fuel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCarHandlerConflict(t *testing.T) {
	service := new(MockService)
	req := models.CarRequest{Brand: "GAZ", Model: "Next", LicensePlate: "A123BC"}
	service.On("Create", dispatcher, req).Return(nil, custom_error.WrapDBError("Car with this license plate already exists", "23505")).Once()

	w := serve(service, http.MethodPost, "/api/cars", req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Unable to create car")
}
