package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/dimitrije/atlas-api/pkg/dto"
	"github.com/dimitrije/atlas-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupStateTest(t *testing.T, user *models.User) (*testutil.MockStateService, http.Handler) {
	t.Helper()
	mockStateService := new(testutil.MockStateService)
	handler := NewStateHandler(mockStateService)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(asUser(user))
	app.Get("/state", handler.Get)
	app.Put("/template", handler.SaveTemplate)
	app.Put("/report", handler.SaveReport)
	app.Put("/settings", handler.SaveSettings)
	app.Post("/imports", handler.CreateImport)

	return mockStateService, app
}

func TestStateHandler_Get(t *testing.T) {
	user := testUser(rbac.RoleView)
	mockStateService, app := setupStateTest(t, user)

	state := &services.State{
		Configs: map[models.ConfigKind]*models.UserConfig{
			models.ConfigTemplate: {ID: uuid.New(), Name: "Default", Data: json.RawMessage(`{"lines":[]}`)},
		},
		Imports: []models.ImportRecord{{ID: uuid.New(), Name: "jan.csv", Kind: "csv", Status: "done", CreatedAt: time.Now()}},
	}
	mockStateService.On("Get", mock.Anything, user).Return(state, nil)

	rec := doJSON(app, http.MethodGet, "/state", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, "null", string(body["report"]))
	assert.JSONEq(t, "null", string(body["mapping"]))
	assert.JSONEq(t, "[]", string(body["snapshots"]))

	out := decode[dto.StateResponse](t, rec)
	require.NotNil(t, out.Template)
	assert.Equal(t, "Default", out.Template.Name)
	require.Len(t, out.Imports, 1)
	assert.Equal(t, "jan.csv", out.Imports[0].Name)
}

func TestStateHandler_SaveTemplate(t *testing.T) {
	user := testUser(rbac.RoleEdit)
	mockStateService, app := setupStateTest(t, user)

	saved := &models.UserConfig{ID: uuid.New(), Name: "Default", Data: json.RawMessage(`{"lines":[1]}`)}
	mockStateService.On("SaveTemplate", mock.Anything, user.ID, "Default", mock.Anything).Return(saved, nil)

	rec := doJSON(app, http.MethodPut, "/template", `{"name":"Default","data":{"lines":[1]}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, saved.ID, decode[dto.ConfigOut](t, rec).ID)
	mockStateService.AssertExpectations(t)
}

func TestStateHandler_SaveConfigKinds(t *testing.T) {
	user := testUser(rbac.RoleEdit)

	for path, kind := range map[string]models.ConfigKind{"/report": models.ConfigReport, "/settings": models.ConfigSettings} {
		t.Run(string(kind), func(t *testing.T) {
			mockStateService, app := setupStateTest(t, user)
			mockStateService.On("SaveConfig", mock.Anything, user.ID, kind, "v1", mock.Anything).
				Return(&models.UserConfig{ID: uuid.New(), Kind: kind, Name: "v1"}, nil)

			rec := doJSON(app, http.MethodPut, path, `{"name":"v1","data":{}}`)

			assert.Equal(t, http.StatusOK, rec.Code)
			mockStateService.AssertExpectations(t)
		})
	}
}

func TestStateHandler_SaveConfig_Validation(t *testing.T) {
	mockStateService, app := setupStateTest(t, testUser(rbac.RoleEdit))

	rec := doJSON(app, http.MethodPut, "/settings", `{"data":{}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
	mockStateService.AssertNotCalled(t, "SaveConfig", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStateHandler_CreateImport(t *testing.T) {
	user := testUser(rbac.RoleEdit)
	mockStateService, app := setupStateTest(t, user)

	rec := &models.ImportRecord{ID: uuid.New(), Name: "feb.csv", Kind: "csv", Status: "pending"}
	mockStateService.On("CreateImport", mock.Anything, user.ID, "feb.csv", "csv", "pending", mock.Anything).Return(rec, nil)

	resp := doJSON(app, http.MethodPost, "/imports", dto.CreateImportRequest{Name: "feb.csv", Kind: "csv", Status: "pending"})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "pending", decode[dto.ImportOut](t, resp).Status)
}
