package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionService issues and resolves opaque session tokens. Only the sha256 of
// a token is stored; the raw value leaves through the return of Create.
type SessionService struct {
	db          *database.DB
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewSessionService(db *database.DB, ttl, rememberTTL time.Duration) *SessionService {
	return &SessionService{
		db:          db,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

func (s *SessionService) Create(ctx context.Context, userID uuid.UUID, remember bool) (string, time.Time, error) {
	token, err := GenerateToken(sessionTokenBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	ttl := s.ttl
	if remember {
		ttl = s.rememberTTL
	}
	expiresAt := s.now().Add(ttl)

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, HashToken(token), expiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store session: %w", err)
	}

	return token, expiresAt, nil
}

// Resolve returns the user owning token. Unknown, expired and empty tokens all
// yield ErrUnauthenticated.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var user models.User
	var role string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.password_hash, u.role, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1 AND s.expires_at > $2
	`, HashToken(token), s.now()).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	user.Role = normalizeStoredRole(role)

	return &user, nil
}

func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, HashToken(token))
	return err
}

func (s *SessionService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
