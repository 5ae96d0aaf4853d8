package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ConfigPayload struct {
	Name string          `json:"name" validate:"required"`
	Data json.RawMessage `json:"data" validate:"required"`
}

type ConfigOut struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateImportRequest struct {
	Name     string          `json:"name" validate:"required"`
	Kind     string          `json:"kind" validate:"required"`
	Status   string          `json:"status" validate:"required"`
	Metadata json.RawMessage `json:"metadata"`
}

type ImportOut struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Status    string          `json:"status"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type StateResponse struct {
	Template  *ConfigOut    `json:"template"`
	Mapping   *ConfigOut    `json:"mapping"`
	Report    *ConfigOut    `json:"report"`
	Settings  *ConfigOut    `json:"settings"`
	Imports   []ImportOut   `json:"imports"`
	Snapshots []SnapshotOut `json:"snapshots"`
}
