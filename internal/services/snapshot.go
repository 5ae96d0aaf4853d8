package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// snapshotSelect reads from a CTE or table aliased "s" and joins the owner.
const snapshotSelect = `
	SELECT s.id, s.owner_user_id, u.email, s.name, s.schema_version, s.payload, s.created_at, s.updated_at
	FROM s JOIN users u ON u.id = s.owner_user_id`

type SnapshotService struct {
	db *database.DB
}

func NewSnapshotService(db *database.DB) *SnapshotService {
	return &SnapshotService{db: db}
}

// List returns the snapshots user owns or has been shared, newest update
// first. Shares carrying a role outside the lattice are left out.
func (s *SnapshotService) List(ctx context.Context, user *models.User) ([]models.SnapshotListing, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT sn.id, sn.owner_user_id, u.email, sn.name, sn.schema_version, sn.payload,
		       sn.created_at, sn.updated_at, COALESCE(sh.role, '')
		FROM snapshots sn
		JOIN users u ON u.id = sn.owner_user_id
		LEFT JOIN snapshot_shares sh ON sh.snapshot_id = sn.id AND sh.user_id = $1
		WHERE sn.owner_user_id = $1 OR sh.user_id = $1
		ORDER BY sn.updated_at DESC
	`, user.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []models.SnapshotListing{}
	for rows.Next() {
		var l models.SnapshotListing
		var shareRole string
		if err := rows.Scan(
			&l.ID, &l.OwnerUserID, &l.OwnerEmail, &l.Name, &l.SchemaVersion, &l.Payload,
			&l.CreatedAt, &l.UpdatedAt, &shareRole,
		); err != nil {
			return nil, err
		}

		switch {
		case l.OwnerUserID == user.ID, user.Role.IsSuperAdmin():
			l.Role = rbac.SnapshotOwner
		default:
			role, err := rbac.ParseShareRole(shareRole)
			if err != nil {
				continue
			}
			l.Role = role
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *SnapshotService) Create(ctx context.Context, ownerID uuid.UUID, name, schemaVersion string, payload json.RawMessage) (*models.Snapshot, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	snap, err := scanSnapshot(s.db.Pool.QueryRow(ctx, `
		WITH s AS (
			INSERT INTO snapshots (owner_user_id, name, schema_version, payload)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		)`+snapshotSelect,
		ownerID, name, schemaVersion, payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	return snap, nil
}

func (s *SnapshotService) GetByID(ctx context.Context, id uuid.UUID) (*models.Snapshot, error) {
	snap, err := scanSnapshot(s.db.Pool.QueryRow(ctx, `
		WITH s AS (SELECT * FROM snapshots WHERE id = $1)`+snapshotSelect, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return snap, nil
}

// SnapshotPatch carries the optional parts of an update. A nil Payload keeps
// both the payload and its schema version.
type SnapshotPatch struct {
	Name          *string
	SchemaVersion string
	Payload       json.RawMessage
}

func (s *SnapshotService) Update(ctx context.Context, id uuid.UUID, patch SnapshotPatch) (*models.Snapshot, error) {
	var name, schemaVersion, payload any
	if patch.Name != nil && *patch.Name != "" {
		name = *patch.Name
	}
	if patch.Payload != nil {
		schemaVersion = patch.SchemaVersion
		payload = patch.Payload
	}

	snap, err := scanSnapshot(s.db.Pool.QueryRow(ctx, `
		WITH s AS (
			UPDATE snapshots SET
				name = COALESCE($2, name),
				schema_version = COALESCE($3, schema_version),
				payload = COALESCE($4::jsonb, payload),
				updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)`+snapshotSelect,
		id, name, schemaVersion, payload))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to update snapshot: %w", err)
	}
	return snap, nil
}

// Duplicate copies source into a new snapshot owned by ownerID.
func (s *SnapshotService) Duplicate(ctx context.Context, source *models.Snapshot, ownerID uuid.UUID) (*models.Snapshot, error) {
	return s.Create(ctx, ownerID, source.Name+" (Copy)", source.SchemaVersion, source.Payload)
}

func (s *SnapshotService) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

func scanSnapshot(row pgx.Row) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := row.Scan(
		&snap.ID, &snap.OwnerUserID, &snap.OwnerEmail, &snap.Name, &snap.SchemaVersion, &snap.Payload,
		&snap.CreatedAt, &snap.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &snap, nil
}
