package models

import (
	"encoding/json"
	"time"

	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/google/uuid"
)

type Snapshot struct {
	ID            uuid.UUID       `json:"id"`
	OwnerUserID   uuid.UUID       `json:"owner_user_id"`
	OwnerEmail    string          `json:"owner_email"`
	Name          string          `json:"name"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Summary returns payload.summary when it is a JSON object.
func (s *Snapshot) Summary() json.RawMessage {
	if len(s.Payload) == 0 {
		return nil
	}
	var body struct {
		Summary json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(s.Payload, &body); err != nil {
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body.Summary, &probe); err != nil || probe == nil {
		return nil
	}
	return body.Summary
}

// SnapshotListing is a snapshot as seen by one caller, without its payload.
type SnapshotListing struct {
	Snapshot
	Role rbac.SnapshotRole `json:"role"`
}

type SnapshotShare struct {
	ID         uuid.UUID         `json:"id"`
	SnapshotID uuid.UUID         `json:"snapshot_id"`
	UserID     uuid.UUID         `json:"user_id"`
	UserEmail  string            `json:"user_email"`
	Role       rbac.SnapshotRole `json:"role"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
