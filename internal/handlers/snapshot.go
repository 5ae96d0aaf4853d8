package handlers

import (
	"net/http"

	"github.com/dimitrije/atlas-api/internal/middleware"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/dimitrije/atlas-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// SnapshotHandler serves snapshots and their shares. Every route re-derives
// the caller's role through the access gate.
type SnapshotHandler struct {
	snapshotService SnapshotServiceInterface
	shareService    ShareServiceInterface
	gate            AccessGateInterface
}

func NewSnapshotHandler(snapshotService SnapshotServiceInterface, shareService ShareServiceInterface, gate AccessGateInterface) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
		shareService:    shareService,
		gate:            gate,
	}
}

func (h *SnapshotHandler) List(c *drift.Context) {
	listings, err := h.snapshotService.List(c.Request.Context(), middleware.GetUser(c))
	if err != nil {
		respondError(c, err, "failed to list snapshots")
		return
	}
	_ = c.JSON(http.StatusOK, toSnapshotListOut(listings))
}

func (h *SnapshotHandler) Create(c *drift.Context) {
	var req dto.CreateSnapshotRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, err := h.snapshotService.Create(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Payload.SchemaVersion, req.Payload.Data)
	if err != nil {
		respondError(c, err, "failed to create snapshot")
		return
	}
	_ = c.JSON(http.StatusOK, toSnapshotOut(snap, rbac.SnapshotOwner, true))
}

func (h *SnapshotHandler) Get(c *drift.Context) {
	snap, role, ok := h.authorize(c, rbac.SnapshotViewer)
	if !ok {
		return
	}
	_ = c.JSON(http.StatusOK, toSnapshotOut(snap, role, true))
}

func (h *SnapshotHandler) Update(c *drift.Context) {
	snap, role, ok := h.authorize(c, rbac.SnapshotEditor)
	if !ok {
		return
	}

	var req dto.UpdateSnapshotRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := services.SnapshotPatch{Name: req.Name}
	if req.Payload != nil {
		patch.SchemaVersion = req.Payload.SchemaVersion
		patch.Payload = req.Payload.Data
	}

	updated, err := h.snapshotService.Update(c.Request.Context(), snap.ID, patch)
	if err != nil {
		respondError(c, err, "failed to update snapshot")
		return
	}
	_ = c.JSON(http.StatusOK, toSnapshotOut(updated, role, false))
}

func (h *SnapshotHandler) Duplicate(c *drift.Context) {
	snap, _, ok := h.authorize(c, rbac.SnapshotViewer)
	if !ok {
		return
	}

	dup, err := h.snapshotService.Duplicate(c.Request.Context(), snap, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to duplicate snapshot")
		return
	}
	_ = c.JSON(http.StatusOK, toSnapshotOut(dup, rbac.SnapshotOwner, false))
}

func (h *SnapshotHandler) Delete(c *drift.Context) {
	id, ok := snapshotID(c)
	if !ok {
		return
	}

	snap, err := h.gate.AuthorizeDelete(c.Request.Context(), middleware.GetUser(c), id)
	if err != nil {
		respondError(c, err, "failed to delete snapshot")
		return
	}
	if err := h.snapshotService.Delete(c.Request.Context(), snap.ID); err != nil {
		respondError(c, err, "failed to delete snapshot")
		return
	}
	_ = c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

func (h *SnapshotHandler) ListShares(c *drift.Context) {
	snap, _, ok := h.authorize(c, rbac.SnapshotAdmin)
	if !ok {
		return
	}

	shares, err := h.shareService.ListBySnapshot(c.Request.Context(), snap.ID)
	if err != nil {
		respondError(c, err, "failed to list shares")
		return
	}

	out := make([]dto.ShareOut, 0, len(shares))
	for i := range shares {
		out = append(out, toShareOut(&shares[i]))
	}
	_ = c.JSON(http.StatusOK, out)
}

func (h *SnapshotHandler) CreateShare(c *drift.Context) {
	snap, _, ok := h.authorize(c, rbac.SnapshotAdmin)
	if !ok {
		return
	}

	var req dto.CreateShareRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := rbac.ParseShareRole(req.Role)
	if err != nil {
		c.BadRequest("Invalid role")
		return
	}

	share, err := h.shareService.Grant(c.Request.Context(), snap, req.Email, role)
	if err != nil {
		respondError(c, err, "failed to share snapshot")
		return
	}
	_ = c.JSON(http.StatusOK, toShareOut(share))
}

func (h *SnapshotHandler) UpdateShare(c *drift.Context) {
	snap, _, ok := h.authorize(c, rbac.SnapshotAdmin)
	if !ok {
		return
	}
	shareID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.NotFound("Share not found")
		return
	}

	var req dto.UpdateShareRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := rbac.ParseShareRole(req.Role)
	if err != nil {
		c.BadRequest("Invalid role")
		return
	}

	share, err := h.shareService.UpdateRole(c.Request.Context(), snap.ID, shareID, role)
	if err != nil {
		respondError(c, err, "failed to update share")
		return
	}
	_ = c.JSON(http.StatusOK, toShareOut(share))
}

func (h *SnapshotHandler) DeleteShare(c *drift.Context) {
	snap, _, ok := h.authorize(c, rbac.SnapshotAdmin)
	if !ok {
		return
	}
	shareID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.NotFound("Share not found")
		return
	}

	if err := h.shareService.Delete(c.Request.Context(), snap.ID, shareID); err != nil {
		respondError(c, err, "failed to delete share")
		return
	}
	_ = c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

// authorize loads the snapshot named in the path and checks the caller holds
// at least minimum on it, writing the error response when not.
func (h *SnapshotHandler) authorize(c *drift.Context, minimum rbac.SnapshotRole) (*models.Snapshot, rbac.SnapshotRole, bool) {
	id, ok := snapshotID(c)
	if !ok {
		return nil, rbac.NoAccess, false
	}

	snap, role, err := h.gate.Authorize(c.Request.Context(), middleware.GetUser(c), id, minimum)
	if err != nil {
		respondError(c, err, "failed to load snapshot")
		return nil, rbac.NoAccess, false
	}
	return snap, role, true
}

// malformed ids cannot name an existing snapshot
func snapshotID(c *drift.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.NotFound("Snapshot not found")
		return uuid.Nil, false
	}
	return id, true
}

func toSnapshotOut(s *models.Snapshot, role rbac.SnapshotRole, includePayload bool) dto.SnapshotOut {
	out := dto.SnapshotOut{
		ID:          s.ID,
		Name:        s.Name,
		OwnerUserID: s.OwnerUserID,
		OwnerEmail:  s.OwnerEmail,
		Role:        role.String(),
		Summary:     s.Summary(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if includePayload {
		out.Payload = &dto.SnapshotPayload{SchemaVersion: s.SchemaVersion, Data: s.Payload}
	}
	return out
}

func toSnapshotListOut(listings []models.SnapshotListing) []dto.SnapshotOut {
	out := make([]dto.SnapshotOut, 0, len(listings))
	for i := range listings {
		out = append(out, toSnapshotOut(&listings[i].Snapshot, listings[i].Role, false))
	}
	return out
}

func toShareOut(s *models.SnapshotShare) dto.ShareOut {
	return dto.ShareOut{
		ID:         s.ID,
		SnapshotID: s.SnapshotID,
		UserID:     s.UserID,
		UserEmail:  s.UserEmail,
		Role:       s.Role.String(),
	}
}
