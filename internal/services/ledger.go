package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Tenant and user are the same id in this deployment; every query filters on
// both so a later split only changes the callers.

const overrideColumns = `id, tenant_id, user_id, source, document_id, line_item_id, hash, treatment,
	deferral_start_month, deferral_months, deferral_include_in_operating_kpis, created_at, updated_at`

const doctorRuleColumns = `id, tenant_id, user_id, contact_id, default_treatment,
	deferral_start_month, deferral_months, deferral_include_in_operating_kpis, enabled, created_at, updated_at`

const preferenceColumns = `id, tenant_id, user_id, key, value_json, created_at, updated_at`

type LedgerService struct {
	db *database.DB
}

func NewLedgerService(db *database.DB) *LedgerService {
	return &LedgerService{db: db}
}

func (s *LedgerService) ListOverrides(ctx context.Context, userID uuid.UUID) ([]models.TxnOverride, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+overrideColumns+`
		FROM txn_overrides WHERE tenant_id = $1 AND user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := []models.TxnOverride{}
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, *o)
	}
	return overrides, rows.Err()
}

// UpsertOverride saves o keyed by (source, document_id, line_item_id, hash).
// Treatment defaults to OPERATING.
func (s *LedgerService) UpsertOverride(ctx context.Context, userID uuid.UUID, o models.TxnOverride) (*models.TxnOverride, error) {
	if o.Treatment == "" {
		o.Treatment = models.TreatmentOperating
	}

	saved, err := scanOverride(s.db.Pool.QueryRow(ctx, `
		INSERT INTO txn_overrides (
			tenant_id, user_id, source, document_id, line_item_id, hash, treatment,
			deferral_start_month, deferral_months, deferral_include_in_operating_kpis
		)
		VALUES ($1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, user_id, source, document_id, line_item_id, hash)
		DO UPDATE SET
			treatment = EXCLUDED.treatment,
			deferral_start_month = EXCLUDED.deferral_start_month,
			deferral_months = EXCLUDED.deferral_months,
			deferral_include_in_operating_kpis = EXCLUDED.deferral_include_in_operating_kpis,
			updated_at = NOW()
		RETURNING `+overrideColumns,
		userID, o.Source, o.DocumentID, derefString(o.LineItemID), derefString(o.Hash), o.Treatment,
		o.StartMonth, o.Months, o.IncludeInOperatingKPIs,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save override: %w", err)
	}
	return saved, nil
}

// DeleteOverride is idempotent; deleting a missing or foreign override is not
// an error.
func (s *LedgerService) DeleteOverride(ctx context.Context, userID, id uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx, `
		DELETE FROM txn_overrides WHERE id = $1 AND tenant_id = $2 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

func (s *LedgerService) ListDoctorRules(ctx context.Context, userID uuid.UUID) ([]models.DoctorRule, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+doctorRuleColumns+`
		FROM doctor_rules WHERE tenant_id = $1 AND user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []models.DoctorRule{}
	for rows.Next() {
		r, err := scanDoctorRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func (s *LedgerService) UpsertDoctorRule(ctx context.Context, userID uuid.UUID, r models.DoctorRule) (*models.DoctorRule, error) {
	if r.DefaultTreatment == "" {
		r.DefaultTreatment = models.TreatmentOperating
	}

	saved, err := scanDoctorRule(s.db.Pool.QueryRow(ctx, `
		INSERT INTO doctor_rules (
			tenant_id, user_id, contact_id, default_treatment,
			deferral_start_month, deferral_months, deferral_include_in_operating_kpis, enabled
		)
		VALUES ($1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, user_id, contact_id)
		DO UPDATE SET
			default_treatment = EXCLUDED.default_treatment,
			deferral_start_month = EXCLUDED.deferral_start_month,
			deferral_months = EXCLUDED.deferral_months,
			deferral_include_in_operating_kpis = EXCLUDED.deferral_include_in_operating_kpis,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
		RETURNING `+doctorRuleColumns,
		userID, r.ContactID, r.DefaultTreatment,
		r.StartMonth, r.Months, r.IncludeInOperatingKPIs, r.Enabled,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save doctor rule: %w", err)
	}
	return saved, nil
}

func (s *LedgerService) DeleteDoctorRule(ctx context.Context, userID uuid.UUID, contactID string) error {
	_, err := s.db.Pool.Exec(ctx, `
		DELETE FROM doctor_rules WHERE contact_id = $1 AND tenant_id = $2 AND user_id = $2
	`, contactID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete doctor rule: %w", err)
	}
	return nil
}

// GetPreference returns nil, nil when no value is stored under key.
func (s *LedgerService) GetPreference(ctx context.Context, userID uuid.UUID, key string) (*models.UserPreference, error) {
	pref, err := scanPreference(s.db.Pool.QueryRow(ctx, `
		SELECT `+preferenceColumns+`
		FROM user_preferences WHERE key = $1 AND tenant_id = $2 AND user_id = $2
	`, key, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return pref, nil
}

func (s *LedgerService) SetPreference(ctx context.Context, userID uuid.UUID, key string, value json.RawMessage) (*models.UserPreference, error) {
	if len(value) == 0 {
		value = json.RawMessage(`null`)
	}
	pref, err := scanPreference(s.db.Pool.QueryRow(ctx, `
		INSERT INTO user_preferences (tenant_id, user_id, key, value_json)
		VALUES ($1, $1, $2, $3)
		ON CONFLICT (tenant_id, user_id, key)
		DO UPDATE SET value_json = EXCLUDED.value_json, updated_at = NOW()
		RETURNING `+preferenceColumns,
		userID, key, value))
	if err != nil {
		return nil, fmt.Errorf("failed to save preference: %w", err)
	}
	return pref, nil
}

func scanOverride(row pgx.Row) (*models.TxnOverride, error) {
	var o models.TxnOverride
	var lineItemID, hash string
	if err := row.Scan(
		&o.ID, &o.TenantID, &o.UserID, &o.Source, &o.DocumentID, &lineItemID, &hash, &o.Treatment,
		&o.StartMonth, &o.Months, &o.IncludeInOperatingKPIs, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.LineItemID = optionalString(lineItemID)
	o.Hash = optionalString(hash)
	return &o, nil
}

func scanDoctorRule(row pgx.Row) (*models.DoctorRule, error) {
	var r models.DoctorRule
	if err := row.Scan(
		&r.ID, &r.TenantID, &r.UserID, &r.ContactID, &r.DefaultTreatment,
		&r.StartMonth, &r.Months, &r.IncludeInOperatingKPIs, &r.Enabled, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanPreference(row pgx.Row) (*models.UserPreference, error) {
	var p models.UserPreference
	if err := row.Scan(&p.ID, &p.TenantID, &p.UserID, &p.Key, &p.ValueJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Absent line item ids and hashes are stored as '' so the unique key matches them.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
