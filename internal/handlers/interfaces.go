package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/google/uuid"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	Register(ctx context.Context, email, password, inviteCode string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, actor *models.User, email, password string, role rbac.GlobalRole) (*models.User, error)
	UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, role rbac.GlobalRole) (*models.User, error)
	Delete(ctx context.Context, actorID, targetID uuid.UUID) error
}

// SessionServiceInterface defines the methods used by handlers from SessionService
type SessionServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, remember bool) (string, time.Time, error)
	Revoke(ctx context.Context, token string) error
}

// SnapshotServiceInterface defines the methods used by handlers from SnapshotService
type SnapshotServiceInterface interface {
	List(ctx context.Context, user *models.User) ([]models.SnapshotListing, error)
	Create(ctx context.Context, ownerID uuid.UUID, name, schemaVersion string, payload json.RawMessage) (*models.Snapshot, error)
	Update(ctx context.Context, id uuid.UUID, patch services.SnapshotPatch) (*models.Snapshot, error)
	Duplicate(ctx context.Context, source *models.Snapshot, ownerID uuid.UUID) (*models.Snapshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccessGateInterface decides what a caller may do with a snapshot
type AccessGateInterface interface {
	Authorize(ctx context.Context, user *models.User, snapshotID uuid.UUID, minimum rbac.SnapshotRole) (*models.Snapshot, rbac.SnapshotRole, error)
	AuthorizeDelete(ctx context.Context, user *models.User, snapshotID uuid.UUID) (*models.Snapshot, error)
}

// ShareServiceInterface defines the methods used by handlers from ShareService
type ShareServiceInterface interface {
	ListBySnapshot(ctx context.Context, snapshotID uuid.UUID) ([]models.SnapshotShare, error)
	Grant(ctx context.Context, snapshot *models.Snapshot, email string, role rbac.SnapshotRole) (*models.SnapshotShare, error)
	UpdateRole(ctx context.Context, snapshotID, shareID uuid.UUID, role rbac.SnapshotRole) (*models.SnapshotShare, error)
	Delete(ctx context.Context, snapshotID, shareID uuid.UUID) error
}

// StateServiceInterface defines the methods used by handlers from StateService
type StateServiceInterface interface {
	Get(ctx context.Context, user *models.User) (*services.State, error)
	SaveConfig(ctx context.Context, ownerID uuid.UUID, kind models.ConfigKind, name string, data json.RawMessage) (*models.UserConfig, error)
	SaveTemplate(ctx context.Context, ownerID uuid.UUID, name string, data json.RawMessage) (*models.UserConfig, error)
	CreateImport(ctx context.Context, ownerID uuid.UUID, name, kind, status string, metadata json.RawMessage) (*models.ImportRecord, error)
}

// LedgerServiceInterface defines the methods used by handlers from LedgerService
type LedgerServiceInterface interface {
	ListOverrides(ctx context.Context, userID uuid.UUID) ([]models.TxnOverride, error)
	UpsertOverride(ctx context.Context, userID uuid.UUID, o models.TxnOverride) (*models.TxnOverride, error)
	DeleteOverride(ctx context.Context, userID, id uuid.UUID) error
	ListDoctorRules(ctx context.Context, userID uuid.UUID) ([]models.DoctorRule, error)
	UpsertDoctorRule(ctx context.Context, userID uuid.UUID, r models.DoctorRule) (*models.DoctorRule, error)
	DeleteDoctorRule(ctx context.Context, userID uuid.UUID, contactID string) error
	GetPreference(ctx context.Context, userID uuid.UUID, key string) (*models.UserPreference, error)
	SetPreference(ctx context.Context, userID uuid.UUID, key string, value json.RawMessage) (*models.UserPreference, error)
}

// XeroServiceInterface defines the methods used by handlers from XeroService
type XeroServiceInterface interface {
	Connection(ctx context.Context, userID uuid.UUID) (*models.XeroConnection, error)
	AuthorizeURL(ctx context.Context, userID uuid.UUID) (string, error)
	CompleteAuthorization(ctx context.Context, code, state string) (*models.XeroConnection, error)
	Tenants(ctx context.Context, userID uuid.UUID) (json.RawMessage, error)
	SetTenant(ctx context.Context, userID uuid.UUID, tenantID string) error
	Sync(ctx context.Context, userID uuid.UUID, fromDate, toDate string, includeGL bool) (*services.SyncResult, error)
}
