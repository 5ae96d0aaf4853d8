package testutil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, email, password, inviteCode string) (*models.User, error) {
	args := m.Called(ctx, email, password, inviteCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, actor *models.User, email, password string, role rbac.GlobalRole) (*models.User, error) {
	args := m.Called(ctx, actor, email, password, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, role rbac.GlobalRole) (*models.User, error) {
	args := m.Called(ctx, actorID, targetID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, actorID, targetID uuid.UUID) error {
	args := m.Called(ctx, actorID, targetID)
	return args.Error(0)
}

// MockSessionService mocks the SessionService. Resolve makes it usable as
// the session middleware's resolver too.
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, userID uuid.UUID, remember bool) (string, time.Time, error) {
	args := m.Called(ctx, userID, remember)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockSessionService) Resolve(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockSessionService) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockSnapshotService mocks the SnapshotService
type MockSnapshotService struct {
	mock.Mock
}

func (m *MockSnapshotService) List(ctx context.Context, user *models.User) ([]models.SnapshotListing, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]models.SnapshotListing), args.Error(1)
}

func (m *MockSnapshotService) Create(ctx context.Context, ownerID uuid.UUID, name, schemaVersion string, payload json.RawMessage) (*models.Snapshot, error) {
	args := m.Called(ctx, ownerID, name, schemaVersion, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotService) Update(ctx context.Context, id uuid.UUID, patch services.SnapshotPatch) (*models.Snapshot, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotService) Duplicate(ctx context.Context, source *models.Snapshot, ownerID uuid.UUID) (*models.Snapshot, error) {
	args := m.Called(ctx, source, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAccessGate mocks the AccessGate
type MockAccessGate struct {
	mock.Mock
}

func (m *MockAccessGate) Authorize(ctx context.Context, user *models.User, snapshotID uuid.UUID, minimum rbac.SnapshotRole) (*models.Snapshot, rbac.SnapshotRole, error) {
	args := m.Called(ctx, user, snapshotID, minimum)
	role, _ := args.Get(1).(rbac.SnapshotRole)
	if args.Get(0) == nil {
		return nil, role, args.Error(2)
	}
	return args.Get(0).(*models.Snapshot), role, args.Error(2)
}

func (m *MockAccessGate) AuthorizeDelete(ctx context.Context, user *models.User, snapshotID uuid.UUID) (*models.Snapshot, error) {
	args := m.Called(ctx, user, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

// MockShareService mocks the ShareService
type MockShareService struct {
	mock.Mock
}

func (m *MockShareService) ListBySnapshot(ctx context.Context, snapshotID uuid.UUID) ([]models.SnapshotShare, error) {
	args := m.Called(ctx, snapshotID)
	return args.Get(0).([]models.SnapshotShare), args.Error(1)
}

func (m *MockShareService) Grant(ctx context.Context, snapshot *models.Snapshot, email string, role rbac.SnapshotRole) (*models.SnapshotShare, error) {
	args := m.Called(ctx, snapshot, email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SnapshotShare), args.Error(1)
}

func (m *MockShareService) UpdateRole(ctx context.Context, snapshotID, shareID uuid.UUID, role rbac.SnapshotRole) (*models.SnapshotShare, error) {
	args := m.Called(ctx, snapshotID, shareID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SnapshotShare), args.Error(1)
}

func (m *MockShareService) Delete(ctx context.Context, snapshotID, shareID uuid.UUID) error {
	args := m.Called(ctx, snapshotID, shareID)
	return args.Error(0)
}

// MockStateService mocks the StateService
type MockStateService struct {
	mock.Mock
}

func (m *MockStateService) Get(ctx context.Context, user *models.User) (*services.State, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.State), args.Error(1)
}

func (m *MockStateService) SaveConfig(ctx context.Context, ownerID uuid.UUID, kind models.ConfigKind, name string, data json.RawMessage) (*models.UserConfig, error) {
	args := m.Called(ctx, ownerID, kind, name, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserConfig), args.Error(1)
}

func (m *MockStateService) SaveTemplate(ctx context.Context, ownerID uuid.UUID, name string, data json.RawMessage) (*models.UserConfig, error) {
	args := m.Called(ctx, ownerID, name, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserConfig), args.Error(1)
}

func (m *MockStateService) CreateImport(ctx context.Context, ownerID uuid.UUID, name, kind, status string, metadata json.RawMessage) (*models.ImportRecord, error) {
	args := m.Called(ctx, ownerID, name, kind, status, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportRecord), args.Error(1)
}

// MockLedgerService mocks the LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) ListOverrides(ctx context.Context, userID uuid.UUID) ([]models.TxnOverride, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.TxnOverride), args.Error(1)
}

func (m *MockLedgerService) UpsertOverride(ctx context.Context, userID uuid.UUID, o models.TxnOverride) (*models.TxnOverride, error) {
	args := m.Called(ctx, userID, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TxnOverride), args.Error(1)
}

func (m *MockLedgerService) DeleteOverride(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockLedgerService) ListDoctorRules(ctx context.Context, userID uuid.UUID) ([]models.DoctorRule, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.DoctorRule), args.Error(1)
}

func (m *MockLedgerService) UpsertDoctorRule(ctx context.Context, userID uuid.UUID, r models.DoctorRule) (*models.DoctorRule, error) {
	args := m.Called(ctx, userID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DoctorRule), args.Error(1)
}

func (m *MockLedgerService) DeleteDoctorRule(ctx context.Context, userID uuid.UUID, contactID string) error {
	args := m.Called(ctx, userID, contactID)
	return args.Error(0)
}

func (m *MockLedgerService) GetPreference(ctx context.Context, userID uuid.UUID, key string) (*models.UserPreference, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPreference), args.Error(1)
}

func (m *MockLedgerService) SetPreference(ctx context.Context, userID uuid.UUID, key string, value json.RawMessage) (*models.UserPreference, error) {
	args := m.Called(ctx, userID, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPreference), args.Error(1)
}

// MockXeroService mocks the XeroService
type MockXeroService struct {
	mock.Mock
}

func (m *MockXeroService) Connection(ctx context.Context, userID uuid.UUID) (*models.XeroConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.XeroConnection), args.Error(1)
}

func (m *MockXeroService) AuthorizeURL(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockXeroService) CompleteAuthorization(ctx context.Context, code, state string) (*models.XeroConnection, error) {
	args := m.Called(ctx, code, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.XeroConnection), args.Error(1)
}

func (m *MockXeroService) Tenants(ctx context.Context, userID uuid.UUID) (json.RawMessage, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockXeroService) SetTenant(ctx context.Context, userID uuid.UUID, tenantID string) error {
	args := m.Called(ctx, userID, tenantID)
	return args.Error(0)
}

func (m *MockXeroService) Sync(ctx context.Context, userID uuid.UUID, fromDate, toDate string, includeGL bool) (*services.SyncResult, error) {
	args := m.Called(ctx, userID, fromDate, toDate, includeGL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SyncResult), args.Error(1)
}
