package handlers

import (
	"net/http"

	"github.com/dimitrije/atlas-api/internal/middleware"
	"github.com/dimitrije/atlas-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

const xeroConnectedPage = `<html><body><h3>Xero connection successful. You can close this tab.</h3></body></html>`

type XeroHandler struct {
	xeroService XeroServiceInterface
}

func NewXeroHandler(xeroService XeroServiceInterface) *XeroHandler {
	return &XeroHandler{xeroService: xeroService}
}

func (h *XeroHandler) Status(c *drift.Context) {
	conn, err := h.xeroService.Connection(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to load xero connection")
		return
	}

	resp := dto.XeroStatusResponse{Connected: conn != nil}
	if conn != nil {
		resp.TenantID = conn.TenantID
		resp.ExpiresAt = &conn.ExpiresAt
	}
	_ = c.JSON(http.StatusOK, resp)
}

func (h *XeroHandler) Authorize(c *drift.Context) {
	url, err := h.xeroService.AuthorizeURL(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to start xero authorization")
		return
	}
	_ = c.JSON(http.StatusOK, dto.AuthorizeURLResponse{URL: url})
}

// Callback is reached by Xero's redirect, outside the session; the state
// identifies the user.
func (h *XeroHandler) Callback(c *drift.Context) {
	code := c.QueryParam("code")
	if code == "" {
		c.BadRequest("code is required")
		return
	}

	if _, err := h.xeroService.CompleteAuthorization(c.Request.Context(), code, c.QueryParam("state")); err != nil {
		respondError(c, err, "failed to complete xero authorization")
		return
	}
	_ = c.HTML(http.StatusOK, xeroConnectedPage)
}

func (h *XeroHandler) Tenants(c *drift.Context) {
	tenants, err := h.xeroService.Tenants(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to list xero tenants")
		return
	}
	_ = c.JSON(http.StatusOK, tenants)
}

func (h *XeroHandler) SetTenant(c *drift.Context) {
	var req dto.SetTenantRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.TenantID == "" {
		c.BadRequest("tenant_id is required")
		return
	}

	if err := h.xeroService.SetTenant(c.Request.Context(), middleware.GetUserID(c), req.TenantID); err != nil {
		respondError(c, err, "failed to set xero tenant")
		return
	}
	_ = c.JSON(http.StatusOK, dto.SetTenantResponse{OK: true, TenantID: req.TenantID})
}

func (h *XeroHandler) Sync(c *drift.Context) {
	var req dto.SyncRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.FromDate == "" || req.ToDate == "" {
		c.BadRequest("from_date and to_date are required")
		return
	}
	includeGL := req.IncludeGL == nil || *req.IncludeGL

	result, err := h.xeroService.Sync(c.Request.Context(), middleware.GetUserID(c), req.FromDate, req.ToDate, includeGL)
	if err != nil {
		respondError(c, err, "failed to sync from xero")
		return
	}
	_ = c.JSON(http.StatusOK, result)
}
