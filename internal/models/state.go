package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ConfigKind names one of the per-user singleton configuration blobs.
type ConfigKind string

const (
	ConfigTemplate ConfigKind = "template"
	ConfigMapping  ConfigKind = "mapping"
	ConfigReport   ConfigKind = "report"
	ConfigSettings ConfigKind = "settings"
)

type UserConfig struct {
	ID          uuid.UUID       `json:"id"`
	OwnerUserID uuid.UUID       `json:"-"`
	Kind        ConfigKind      `json:"-"`
	Name        string          `json:"name"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ImportRecord struct {
	ID          uuid.UUID       `json:"id"`
	OwnerUserID uuid.UUID       `json:"-"`
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Metadata    json.RawMessage `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
