package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SnapshotPayload struct {
	SchemaVersion string          `json:"schema_version" validate:"required"`
	Data          json.RawMessage `json:"data" validate:"required"`
}

type CreateSnapshotRequest struct {
	Name    string           `json:"name" validate:"required,max=255"`
	Payload *SnapshotPayload `json:"payload" validate:"required"`
}

type UpdateSnapshotRequest struct {
	Name    *string          `json:"name" validate:"omitempty,max=255"`
	Payload *SnapshotPayload `json:"payload" validate:"omitempty"`
}

type SnapshotOut struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	OwnerUserID uuid.UUID        `json:"owner_user_id"`
	OwnerEmail  string           `json:"owner_email"`
	Role        string           `json:"role"`
	Payload     *SnapshotPayload `json:"payload"`
	Summary     json.RawMessage  `json:"summary"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type CreateShareRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

type UpdateShareRequest struct {
	Role string `json:"role" validate:"required"`
}

type ShareOut struct {
	ID         uuid.UUID `json:"id"`
	SnapshotID uuid.UUID `json:"snapshot_id"`
	UserID     uuid.UUID `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	Role       string    `json:"role"`
}
