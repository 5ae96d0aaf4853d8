package handlers

import (
	"net/http"

	"github.com/dimitrije/atlas-api/internal/middleware"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// LedgerHandler serves the caller's transaction overrides, doctor rules and
// preferences. Every row is scoped to the caller.
type LedgerHandler struct {
	ledgerService LedgerServiceInterface
}

func NewLedgerHandler(ledgerService LedgerServiceInterface) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

func (h *LedgerHandler) ListOverrides(c *drift.Context) {
	overrides, err := h.ledgerService.ListOverrides(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to list overrides")
		return
	}
	_ = c.JSON(http.StatusOK, overrides)
}

func (h *LedgerHandler) UpsertOverride(c *drift.Context) {
	var req dto.TxnOverrideRequest
	if !bindJSON(c, &req) {
		return
	}

	saved, err := h.ledgerService.UpsertOverride(c.Request.Context(), middleware.GetUserID(c), models.TxnOverride{
		Source:     req.Source,
		DocumentID: req.DocumentID,
		LineItemID: req.LineItemID,
		Hash:       req.Hash,
		Treatment:  req.Treatment,
		Deferral:   toDeferral(req.Deferral),
	})
	if err != nil {
		respondError(c, err, "failed to save override")
		return
	}
	_ = c.JSON(http.StatusOK, saved)
}

func (h *LedgerHandler) DeleteOverride(c *drift.Context) {
	// an unparseable id cannot match a row, and deletes are idempotent
	if id, err := uuid.Parse(c.Param("id")); err == nil {
		if err := h.ledgerService.DeleteOverride(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
			respondError(c, err, "failed to delete override")
			return
		}
	}
	_ = c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

func (h *LedgerHandler) ListDoctorRules(c *drift.Context) {
	rules, err := h.ledgerService.ListDoctorRules(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to list doctor rules")
		return
	}
	_ = c.JSON(http.StatusOK, rules)
}

func (h *LedgerHandler) UpsertDoctorRule(c *drift.Context) {
	var req dto.DoctorRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	saved, err := h.ledgerService.UpsertDoctorRule(c.Request.Context(), middleware.GetUserID(c), models.DoctorRule{
		ContactID:        req.ContactID,
		DefaultTreatment: req.DefaultTreatment,
		Deferral:         toDeferral(req.Deferral),
		Enabled:          enabled,
	})
	if err != nil {
		respondError(c, err, "failed to save doctor rule")
		return
	}
	_ = c.JSON(http.StatusOK, saved)
}

func (h *LedgerHandler) DeleteDoctorRule(c *drift.Context) {
	if err := h.ledgerService.DeleteDoctorRule(c.Request.Context(), middleware.GetUserID(c), c.Param("contactId")); err != nil {
		respondError(c, err, "failed to delete doctor rule")
		return
	}
	_ = c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// GetPreference answers null when nothing is stored under the key.
func (h *LedgerHandler) GetPreference(c *drift.Context) {
	pref, err := h.ledgerService.GetPreference(c.Request.Context(), middleware.GetUserID(c), c.Param("key"))
	if err != nil {
		respondError(c, err, "failed to load preference")
		return
	}
	_ = c.JSON(http.StatusOK, pref)
}

func (h *LedgerHandler) SetPreference(c *drift.Context) {
	var req dto.PreferenceRequest
	if !bindJSON(c, &req) {
		return
	}

	pref, err := h.ledgerService.SetPreference(c.Request.Context(), middleware.GetUserID(c), c.Param("key"), req.ValueJSON)
	if err != nil {
		respondError(c, err, "failed to save preference")
		return
	}
	_ = c.JSON(http.StatusOK, pref)
}

func toDeferral(d dto.Deferral) models.Deferral {
	return models.Deferral{
		StartMonth:             d.StartMonth,
		Months:                 d.Months,
		IncludeInOperatingKPIs: d.IncludeInOperatingKPIs,
	}
}
