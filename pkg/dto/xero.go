package dto

import "time"

type XeroStatusResponse struct {
	Connected bool       `json:"connected"`
	TenantID  *string    `json:"tenantId"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type AuthorizeURLResponse struct {
	URL string `json:"url"`
}

type SetTenantRequest struct {
	TenantID string `json:"tenant_id"`
}

type SetTenantResponse struct {
	OK       bool   `json:"ok"`
	TenantID string `json:"tenantId"`
}

type SyncRequest struct {
	FromDate  string `json:"from_date" validate:"omitempty,datetime=2006-01-02"`
	ToDate    string `json:"to_date" validate:"omitempty,datetime=2006-01-02"`
	IncludeGL *bool  `json:"include_gl"`
}
