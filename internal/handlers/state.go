package handlers

import (
	"net/http"

	"github.com/dimitrije/atlas-api/internal/middleware"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type StateHandler struct {
	stateService StateServiceInterface
}

func NewStateHandler(stateService StateServiceInterface) *StateHandler {
	return &StateHandler{stateService: stateService}
}

func (h *StateHandler) Get(c *drift.Context) {
	state, err := h.stateService.Get(c.Request.Context(), middleware.GetUser(c))
	if err != nil {
		respondError(c, err, "failed to load state")
		return
	}

	imports := make([]dto.ImportOut, 0, len(state.Imports))
	for i := range state.Imports {
		imports = append(imports, toImportOut(&state.Imports[i]))
	}

	_ = c.JSON(http.StatusOK, dto.StateResponse{
		Template:  toConfigOut(state.Configs[models.ConfigTemplate]),
		Mapping:   toConfigOut(state.Configs[models.ConfigMapping]),
		Report:    toConfigOut(state.Configs[models.ConfigReport]),
		Settings:  toConfigOut(state.Configs[models.ConfigSettings]),
		Imports:   imports,
		Snapshots: toSnapshotListOut(state.Snapshots),
	})
}

// SaveTemplate also replaces the mapping config.
func (h *StateHandler) SaveTemplate(c *drift.Context) {
	var req dto.ConfigPayload
	if !bindJSON(c, &req) {
		return
	}

	cfg, err := h.stateService.SaveTemplate(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Data)
	if err != nil {
		respondError(c, err, "failed to save template")
		return
	}
	_ = c.JSON(http.StatusOK, toConfigOut(cfg))
}

func (h *StateHandler) SaveReport(c *drift.Context) {
	h.saveConfig(c, models.ConfigReport)
}

func (h *StateHandler) SaveSettings(c *drift.Context) {
	h.saveConfig(c, models.ConfigSettings)
}

func (h *StateHandler) CreateImport(c *drift.Context) {
	var req dto.CreateImportRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.stateService.CreateImport(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Kind, req.Status, req.Metadata)
	if err != nil {
		respondError(c, err, "failed to record import")
		return
	}
	_ = c.JSON(http.StatusOK, toImportOut(rec))
}

func (h *StateHandler) saveConfig(c *drift.Context, kind models.ConfigKind) {
	var req dto.ConfigPayload
	if !bindJSON(c, &req) {
		return
	}

	cfg, err := h.stateService.SaveConfig(c.Request.Context(), middleware.GetUserID(c), kind, req.Name, req.Data)
	if err != nil {
		respondError(c, err, "failed to save "+string(kind))
		return
	}
	_ = c.JSON(http.StatusOK, toConfigOut(cfg))
}

func toConfigOut(cfg *models.UserConfig) *dto.ConfigOut {
	if cfg == nil {
		return nil
	}
	return &dto.ConfigOut{
		ID:        cfg.ID,
		Name:      cfg.Name,
		Data:      cfg.Data,
		CreatedAt: cfg.CreatedAt,
		UpdatedAt: cfg.UpdatedAt,
	}
}

func toImportOut(rec *models.ImportRecord) dto.ImportOut {
	return dto.ImportOut{
		ID:        rec.ID,
		Name:      rec.Name,
		Kind:      rec.Kind,
		Status:    rec.Status,
		Metadata:  rec.Metadata,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
