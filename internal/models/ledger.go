package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const TreatmentOperating = "OPERATING"

// Deferral spreads a transaction across months.
type Deferral struct {
	StartMonth             *string `json:"deferral_start_month"`
	Months                 *int    `json:"deferral_months"`
	IncludeInOperatingKPIs *bool   `json:"deferral_include_in_operating_kpis"`
}

type TxnOverride struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	UserID     uuid.UUID `json:"user_id"`
	Source     string    `json:"source"`
	DocumentID string    `json:"document_id"`
	LineItemID *string   `json:"line_item_id"`
	Hash       *string   `json:"hash"`
	Treatment  string    `json:"treatment"`
	Deferral
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DoctorRule struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	UserID           uuid.UUID `json:"user_id"`
	ContactID        string    `json:"contact_id"`
	DefaultTreatment string    `json:"default_treatment"`
	Deferral
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserPreference struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Key       string          `json:"key"`
	ValueJSON json.RawMessage `json:"value_json"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
