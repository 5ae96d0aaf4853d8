package dto

import "encoding/json"

type Deferral struct {
	StartMonth             *string `json:"deferral_start_month" validate:"omitempty,datetime=2006-01"`
	Months                 *int    `json:"deferral_months" validate:"omitempty,min=1"`
	IncludeInOperatingKPIs *bool   `json:"deferral_include_in_operating_kpis"`
}

type TxnOverrideRequest struct {
	Source     string  `json:"source" validate:"required"`
	DocumentID string  `json:"document_id" validate:"required"`
	LineItemID *string `json:"line_item_id"`
	Hash       *string `json:"hash"`
	Treatment  string  `json:"treatment"`
	Deferral
}

type DoctorRuleRequest struct {
	ContactID        string `json:"contact_id" validate:"required"`
	DefaultTreatment string `json:"default_treatment"`
	Deferral
	Enabled *bool `json:"enabled"`
}

type PreferenceRequest struct {
	ValueJSON json.RawMessage `json:"value_json"`
}
