package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password every fixture user is created with.
const DefaultPassword = "correct-horse-battery"

// Fixtures inserts rows directly, bypassing the services' business rules.
type Fixtures struct {
	db      *database.DB
	hasher  *services.PasswordHasher
	counter int
}

func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db, hasher: services.NewPasswordHasher(bcrypt.MinCost)}
}

func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email: fmt.Sprintf("user%d@example.com", f.counter),
		Role:  rbac.RoleView,
	}
	for _, opt := range opts {
		opt(user)
	}

	hash, err := f.hasher.Hash(DefaultPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	err = f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, user.Email, hash, string(user.Role)).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	user.PasswordHash = hash

	return user
}

type UserOption func(*models.User)

func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

func WithRole(role rbac.GlobalRole) UserOption {
	return func(u *models.User) {
		u.Role = role
	}
}

// CreateSnapshot stores payload as the snapshot data; a nil payload becomes
// an object with an empty summary.
func (f *Fixtures) CreateSnapshot(t *testing.T, owner *models.User, name string, payload json.RawMessage) *models.Snapshot {
	t.Helper()

	if payload == nil {
		payload = json.RawMessage(`{"summary":{}}`)
	}

	snap := &models.Snapshot{
		OwnerUserID:   owner.ID,
		OwnerEmail:    owner.Email,
		Name:          name,
		SchemaVersion: "v1",
		Payload:       payload,
	}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO snapshots (owner_user_id, name, schema_version, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, owner.ID, name, snap.SchemaVersion, payload).Scan(&snap.ID, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}

	return snap
}

func (f *Fixtures) CreateShare(t *testing.T, snap *models.Snapshot, user *models.User, role rbac.SnapshotRole) *models.SnapshotShare {
	t.Helper()

	share := &models.SnapshotShare{SnapshotID: snap.ID, UserID: user.ID, UserEmail: user.Email, Role: role}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO snapshot_shares (snapshot_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, snap.ID, user.ID, string(role)).Scan(&share.ID, &share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create share: %v", err)
	}

	return share
}
