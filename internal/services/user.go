package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, email, password_hash, role, created_at, updated_at`

type UserService struct {
	db          *database.DB
	hasher      *PasswordHasher
	signupCodes []string
}

func NewUserService(db *database.DB, hasher *PasswordHasher, signupCodes []string) *UserService {
	return &UserService{db: db, hasher: hasher, signupCodes: signupCodes}
}

// Register creates a self-service account. The first account in an empty
// system becomes super_admin; the count and the insert share one transaction
// under a table lock so two concurrent first registrations serialize.
func (s *UserService) Register(ctx context.Context, email, password, inviteCode string) (*models.User, error) {
	email = NormalizeEmail(email)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	role := rbac.RoleView
	if count == 0 {
		role = rbac.RoleSuperAdmin
	} else if !s.inviteAccepted(inviteCode) {
		return nil, ErrInvalidInviteCode
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	user, err := scanUser(tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		email, hash, string(role)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

func (s *UserService) inviteAccepted(code string) bool {
	if len(s.signupCodes) == 0 {
		return true
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, allowed := range s.signupCodes {
		if subtle.ConstantTimeCompare([]byte(allowed), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// Authenticate checks an email/password pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.Burn(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create adds an account on behalf of an administrator.
func (s *UserService) Create(ctx context.Context, actor *models.User, email, password string, role rbac.GlobalRole) (*models.User, error) {
	if !actor.Role.CanAssign(role) {
		return nil, ErrRoleNotAssignable
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		NormalizeEmail(email), hash, string(role)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdateRole is reserved to super admins, so the actor's own role is not
// rechecked here. super_admin itself can never be granted.
func (s *UserService) UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, role rbac.GlobalRole) (*models.User, error) {
	if role.IsSuperAdmin() {
		return nil, ErrRoleNotAssignable
	}
	if actorID == targetID {
		return nil, ErrCannotDemoteSelf
	}

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns,
		string(role), targetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return user, nil
}

// Delete removes a user; sessions, snapshots and shares cascade.
func (s *UserService) Delete(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return ErrCannotDeleteSelf
	}

	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, targetID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Role = normalizeStoredRole(role)
	return &user, nil
}

// normalizeStoredRole falls back to the least privileged role for values
// outside the lattice.
func normalizeStoredRole(raw string) rbac.GlobalRole {
	role, ok := rbac.NormalizeGlobalRole(raw)
	if !ok {
		return rbac.RoleView
	}
	return role
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
