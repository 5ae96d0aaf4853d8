package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/logger"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/xero"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	oauthStateTTL = 10 * time.Minute
	// tokens this close to expiry are refreshed before use
	refreshSkew = 60 * time.Second
)

const connectionColumns = `id, user_id, access_token, refresh_token, expires_at, tenant_id, created_at, updated_at`

// XeroAPI is the part of *xero.Client the service depends on.
type XeroAPI interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*xero.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*xero.Token, error)
	Tenants(ctx context.Context, accessToken string) (json.RawMessage, error)
	ProfitAndLoss(ctx context.Context, accessToken, tenantID, fromDate, toDate string) (*xero.ProfitAndLoss, error)
	GeneralLedger(ctx context.Context, accessToken, tenantID, fromDate, toDate string) (*xero.GeneralLedger, error)
}

type UpstreamObserver interface {
	ObserveXeroError(operation string)
}

type SyncResult struct {
	PL       *xero.ProfitAndLoss `json:"pl"`
	GL       *xero.GeneralLedger `json:"gl"`
	TenantID string              `json:"tenantId"`
}

type XeroService struct {
	db       *database.DB
	api      XeroAPI
	observer UpstreamObserver
	now      func() time.Time
}

// NewXeroService wires the collaborator. A nil api means Xero is not
// configured; every operation that would reach Xero returns
// ErrXeroNotConfigured.
func NewXeroService(db *database.DB, api XeroAPI, observer UpstreamObserver) *XeroService {
	return &XeroService{db: db, api: api, observer: observer, now: time.Now}
}

// Connection returns nil, nil when the user never connected.
func (s *XeroService) Connection(ctx context.Context, userID uuid.UUID) (*models.XeroConnection, error) {
	conn, err := scanConnection(s.db.Pool.QueryRow(ctx, `
		SELECT `+connectionColumns+` FROM xero_connections WHERE user_id = $1
	`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conn, nil
}

// AuthorizeURL records a fresh OAuth state for userID and returns the consent URL.
func (s *XeroService) AuthorizeURL(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.api == nil {
		return "", ErrXeroNotConfigured
	}

	state, err := GenerateOAuthState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO xero_oauth_states (user_id, state) VALUES ($1, $2)
	`, userID, state)
	if err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return s.api.AuthCodeURL(state), nil
}

// CompleteAuthorization consumes state, exchanges code and stores the
// resulting tokens for the user who started the flow. A state is usable once.
func (s *XeroService) CompleteAuthorization(ctx context.Context, code, state string) (*models.XeroConnection, error) {
	if s.api == nil {
		return nil, ErrXeroNotConfigured
	}
	if state == "" {
		return nil, ErrInvalidOAuthState
	}

	var userID uuid.UUID
	var createdAt time.Time
	err := s.db.Pool.QueryRow(ctx, `
		DELETE FROM xero_oauth_states WHERE state = $1
		RETURNING user_id, created_at
	`, state).Scan(&userID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidOAuthState
		}
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	if s.now().Sub(createdAt) > oauthStateTTL {
		return nil, ErrInvalidOAuthState
	}

	tok, err := s.api.Exchange(ctx, code)
	if err != nil {
		return nil, s.upstream("exchange", err)
	}
	return s.saveToken(ctx, userID, tok)
}

func (s *XeroService) Tenants(ctx context.Context, userID uuid.UUID) (json.RawMessage, error) {
	if s.api == nil {
		return nil, ErrXeroNotConfigured
	}
	conn, err := s.Connection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrXeroNotConnected
	}

	accessToken, err := s.accessToken(ctx, conn)
	if err != nil {
		return nil, err
	}
	tenants, err := s.api.Tenants(ctx, accessToken)
	if err != nil {
		return nil, s.upstream("tenants", err)
	}
	return tenants, nil
}

func (s *XeroService) SetTenant(ctx context.Context, userID uuid.UUID, tenantID string) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE xero_connections SET tenant_id = $1, updated_at = NOW() WHERE user_id = $2
	`, tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to set tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrXeroNotConnected
	}
	return nil
}

// Sync pulls the P&L and, when includeGL is set, the general ledger for the
// selected tenant.
func (s *XeroService) Sync(ctx context.Context, userID uuid.UUID, fromDate, toDate string, includeGL bool) (*SyncResult, error) {
	if s.api == nil {
		return nil, ErrXeroNotConfigured
	}
	conn, err := s.Connection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrXeroNotConnected
	}
	if conn.TenantID == nil || *conn.TenantID == "" {
		return nil, ErrXeroTenantNotSet
	}
	tenantID := *conn.TenantID

	accessToken, err := s.accessToken(ctx, conn)
	if err != nil {
		return nil, err
	}

	pl, err := s.api.ProfitAndLoss(ctx, accessToken, tenantID, fromDate, toDate)
	if err != nil {
		return nil, s.upstream("profit_and_loss", err)
	}

	result := &SyncResult{PL: pl, TenantID: tenantID}
	if includeGL {
		gl, err := s.api.GeneralLedger(ctx, accessToken, tenantID, fromDate, toDate)
		if err != nil {
			return nil, s.upstream("general_ledger", err)
		}
		result.GL = gl
	}
	return result, nil
}

// accessToken returns a usable access token, refreshing it first when it is
// about to expire. A failed refresh is retried once.
func (s *XeroService) accessToken(ctx context.Context, conn *models.XeroConnection) (string, error) {
	if conn.ExpiresAt.After(s.now().Add(refreshSkew)) {
		return conn.AccessToken, nil
	}

	tok, err := s.api.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		logger.Get().Warn().Err(err).Str("user_id", conn.UserID.String()).Msg("xero token refresh failed, retrying")
		tok, err = s.api.Refresh(ctx, conn.RefreshToken)
	}
	if err != nil {
		return "", s.upstream("refresh", err)
	}

	saved, err := s.saveToken(ctx, conn.UserID, tok)
	if err != nil {
		return "", err
	}
	return saved.AccessToken, nil
}

func (s *XeroService) saveToken(ctx context.Context, userID uuid.UUID, tok *xero.Token) (*models.XeroConnection, error) {
	conn, err := scanConnection(s.db.Pool.QueryRow(ctx, `
		INSERT INTO xero_connections (user_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING `+connectionColumns,
		userID, tok.AccessToken, tok.RefreshToken, tok.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to save xero connection: %w", err)
	}
	return conn, nil
}

// CleanupStates drops OAuth states that can no longer be redeemed.
func (s *XeroService) CleanupStates(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM xero_oauth_states WHERE created_at < $1
	`, s.now().Add(-oauthStateTTL))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *XeroService) upstream(operation string, err error) error {
	if s.observer != nil {
		s.observer.ObserveXeroError(operation)
	}
	logger.Get().Error().Err(err).Str("operation", operation).Msg("xero request failed")
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, operation, err)
}

func scanConnection(row pgx.Row) (*models.XeroConnection, error) {
	var c models.XeroConnection
	if err := row.Scan(&c.ID, &c.UserID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.TenantID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
