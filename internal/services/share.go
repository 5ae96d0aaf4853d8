package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// shareSelect wraps a statement returning snapshot_shares rows in a CTE named
// "sh" and joins the grantee's email.
const shareSelect = `
	SELECT sh.id, sh.snapshot_id, sh.user_id, u.email, sh.role, sh.created_at, sh.updated_at
	FROM sh JOIN users u ON u.id = sh.user_id`

type ShareService struct {
	db *database.DB
}

func NewShareService(db *database.DB) *ShareService {
	return &ShareService{db: db}
}

// ShareRole implements rbac.ShareLookup.
func (s *ShareService) ShareRole(ctx context.Context, snapshotID, userID uuid.UUID) (rbac.SnapshotRole, bool, error) {
	var role string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT role FROM snapshot_shares WHERE snapshot_id = $1 AND user_id = $2
	`, snapshotID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.NoAccess, false, nil
		}
		return rbac.NoAccess, false, err
	}
	return rbac.SnapshotRole(role), true, nil
}

func (s *ShareService) ListBySnapshot(ctx context.Context, snapshotID uuid.UUID) ([]models.SnapshotShare, error) {
	rows, err := s.db.Pool.Query(ctx, `
		WITH sh AS (SELECT * FROM snapshot_shares WHERE snapshot_id = $1)
	`+shareSelect+`
		ORDER BY sh.created_at ASC
	`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shares := []models.SnapshotShare{}
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, *share)
	}
	return shares, rows.Err()
}

// Grant shares snapshot with the user registered under email. Granting to a
// user who already holds a share replaces the role.
func (s *ShareService) Grant(ctx context.Context, snapshot *models.Snapshot, email string, role rbac.SnapshotRole) (*models.SnapshotShare, error) {
	if _, err := rbac.ParseShareRole(string(role)); err != nil {
		return nil, err
	}

	var targetID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, NormalizeEmail(email)).Scan(&targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if targetID == snapshot.OwnerUserID {
		return nil, ErrOwnerHasAccess
	}

	share, err := scanShare(s.db.Pool.QueryRow(ctx, `
		WITH sh AS (
			INSERT INTO snapshot_shares (snapshot_id, user_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (snapshot_id, user_id)
			DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
			RETURNING *
		)`+shareSelect,
		snapshot.ID, targetID, string(role)))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert share: %w", err)
	}
	return share, nil
}

func (s *ShareService) UpdateRole(ctx context.Context, snapshotID, shareID uuid.UUID, role rbac.SnapshotRole) (*models.SnapshotShare, error) {
	if _, err := rbac.ParseShareRole(string(role)); err != nil {
		return nil, err
	}

	share, err := scanShare(s.db.Pool.QueryRow(ctx, `
		WITH sh AS (
			UPDATE snapshot_shares SET role = $3, updated_at = NOW()
			WHERE id = $1 AND snapshot_id = $2
			RETURNING *
		)`+shareSelect,
		shareID, snapshotID, string(role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to update share: %w", err)
	}
	return share, nil
}

func (s *ShareService) Delete(ctx context.Context, snapshotID, shareID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM snapshot_shares WHERE id = $1 AND snapshot_id = $2
	`, shareID, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrShareNotFound
	}
	return nil
}

func scanShare(row pgx.Row) (*models.SnapshotShare, error) {
	var share models.SnapshotShare
	var role string
	if err := row.Scan(&share.ID, &share.SnapshotID, &share.UserID, &share.UserEmail, &role, &share.CreatedAt, &share.UpdatedAt); err != nil {
		return nil, err
	}
	share.Role = rbac.SnapshotRole(role)
	return &share, nil
}
