package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const configColumns = `id, owner_user_id, kind, name, data, created_at, updated_at`

const upsertConfigSQL = `
	INSERT INTO user_configs (owner_user_id, kind, name, data)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (owner_user_id, kind)
	DO UPDATE SET name = EXCLUDED.name, data = EXCLUDED.data, updated_at = NOW()
	RETURNING ` + configColumns

// State is everything the client needs to restore a workspace in one call.
type State struct {
	Configs   map[models.ConfigKind]*models.UserConfig
	Imports   []models.ImportRecord
	Snapshots []models.SnapshotListing
}

// StateService stores the per-user singleton configuration blobs and import
// records.
type StateService struct {
	db        *database.DB
	snapshots *SnapshotService
}

func NewStateService(db *database.DB, snapshots *SnapshotService) *StateService {
	return &StateService{db: db, snapshots: snapshots}
}

func (s *StateService) Get(ctx context.Context, user *models.User) (*State, error) {
	configs, err := s.configs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	imports, err := s.ListImports(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.snapshots.List(ctx, user)
	if err != nil {
		return nil, err
	}
	return &State{Configs: configs, Imports: imports, Snapshots: snapshots}, nil
}

func (s *StateService) configs(ctx context.Context, ownerID uuid.UUID) (map[models.ConfigKind]*models.UserConfig, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+configColumns+` FROM user_configs WHERE owner_user_id = $1
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := make(map[models.ConfigKind]*models.UserConfig)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs[cfg.Kind] = cfg
	}
	return configs, rows.Err()
}

// SaveConfig upserts the single blob of kind for ownerID.
func (s *StateService) SaveConfig(ctx context.Context, ownerID uuid.UUID, kind models.ConfigKind, name string, data json.RawMessage) (*models.UserConfig, error) {
	cfg, err := scanConfig(s.db.Pool.QueryRow(ctx, upsertConfigSQL, ownerID, string(kind), name, data))
	if err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return cfg, nil
}

// SaveTemplate writes the layout template and mirrors it into the mapping
// config in the same transaction.
func (s *StateService) SaveTemplate(ctx context.Context, ownerID uuid.UUID, name string, data json.RawMessage) (*models.UserConfig, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	template, err := scanConfig(tx.QueryRow(ctx, upsertConfigSQL, ownerID, string(models.ConfigTemplate), name, data))
	if err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	if _, err := scanConfig(tx.QueryRow(ctx, upsertConfigSQL, ownerID, string(models.ConfigMapping), name, data)); err != nil {
		return nil, fmt.Errorf("failed to save mapping: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return template, nil
}

func (s *StateService) CreateImport(ctx context.Context, ownerID uuid.UUID, name, kind, status string, metadata json.RawMessage) (*models.ImportRecord, error) {
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}

	var rec models.ImportRecord
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO imports (owner_user_id, name, kind, status, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner_user_id, name, kind, status, metadata, created_at, updated_at
	`, ownerID, name, kind, status, metadata).Scan(
		&rec.ID, &rec.OwnerUserID, &rec.Name, &rec.Kind, &rec.Status, &rec.Metadata, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}
	return &rec, nil
}

func (s *StateService) ListImports(ctx context.Context, ownerID uuid.UUID) ([]models.ImportRecord, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, owner_user_id, name, kind, status, metadata, created_at, updated_at
		FROM imports WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	imports := []models.ImportRecord{}
	for rows.Next() {
		var rec models.ImportRecord
		if err := rows.Scan(&rec.ID, &rec.OwnerUserID, &rec.Name, &rec.Kind, &rec.Status, &rec.Metadata, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		imports = append(imports, rec)
	}
	return imports, rows.Err()
}

func scanConfig(row pgx.Row) (*models.UserConfig, error) {
	var cfg models.UserConfig
	var kind string
	if err := row.Scan(&cfg.ID, &cfg.OwnerUserID, &kind, &cfg.Name, &cfg.Data, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	cfg.Kind = models.ConfigKind(kind)
	return &cfg, nil
}
