package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupRouter(repo *MockRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api", func(c *gin.Context) {
		security.SetActor(c, keeper)
		c.Next()
	})
	NewHandler(NewService(repo)).RegisterRoutes(group)
	return router
}

func TestListNomenclaturesHandler(t *testing.T) {
	repo := new(MockRepository)
	consumable := metadata.ItemConsumable
	repo.On("ListNomenclatures", models.NomenclatureFilter{ItemType: &consumable, Search: "glo"}).
		Return([]models.Nomenclature{{ID: 3, Name: "Gloves"}}, nil).Once()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/nomenclatures?item_type=consumable&search=glo", nil)
	setupRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gloves")
	repo.AssertExpectations(t)
}

func TestCreateNomenclatureHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		repoErr        error
		callsRepo      bool
		expectedStatus int
	}{
		{
			name:           "created",
			body:           models.NomenclatureRequest{Name: "Drill", ItemType: "TOOL"},
			callsRepo:      true,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing type",
			body:           gin.H{"name": "Drill"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "database failure",
			body:           models.NomenclatureRequest{Name: "Drill", ItemType: "TOOL"},
			repoErr:        errors.New("connection refused"),
			callsRepo:      true,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.callsRepo {
				repo.On("InsertNomenclature", mock.Anything).Return(tt.repoErr).Once()
			}

			payload, _ := json.Marshal(tt.body)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/api/nomenclatures", bytes.NewBuffer(payload))
			req.Header.Set("Content-Type", "application/json")
			setupRouter(repo).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
			repo.AssertExpectations(t)
		})
	}
}

func TestDeleteNomenclatureHandlerConflict(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetNomenclature", 7).Return(drill(), nil)
	repo.On("HasStock", 7).Return(true, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/nomenclatures/7", nil)
	setupRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Drill (D-200)")
}
