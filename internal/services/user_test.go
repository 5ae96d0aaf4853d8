package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userRowColumns = []string{"id", "email", "password_hash", "role", "created_at", "updated_at"}

func setupUserService(t *testing.T, codes ...string) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewUserService(db, NewPasswordHasher(bcrypt.MinCost), codes), mock
}

func TestUserService_Register_FirstUserIsSuperAdmin(t *testing.T) {
	svc, mock := setupUserService(t, "invite-1")
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE users`).WillReturnResult(pgxmock.NewResult("LOCK", 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("first@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO users \(email, password_hash, role\)`).
		WithArgs("first@example.com", pgxmock.AnyArg(), "super_admin").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "first@example.com", "hash", "super_admin", now, now))
	mock.ExpectCommit()

	// No invite code: the bootstrap user is exempt.
	user, err := svc.Register(ctx, "  First@Example.com ", "secret-pass", "")

	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSuperAdmin, user.Role)
	assert.Equal(t, "first@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_LaterUserIsView(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE users`).WillReturnResult(pgxmock.NewResult("LOCK", 0))
	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("b@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("b@example.com", pgxmock.AnyArg(), "view").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(uuid.New(), "b@example.com", "hash", "view", now, now))
	mock.ExpectCommit()

	user, err := svc.Register(ctx, "b@example.com", "pw", "")

	require.NoError(t, err)
	assert.Equal(t, rbac.RoleView, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_InviteRequired(t *testing.T) {
	svc, mock := setupUserService(t, "alpha", "beta")
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE users`).WillReturnResult(pgxmock.NewResult("LOCK", 0))
	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Register(ctx, "b@example.com", "pw", "gamma")

	assert.ErrorIs(t, err, ErrInvalidInviteCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_ValidInvite(t *testing.T) {
	svc, mock := setupUserService(t, "alpha", "beta")
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE users`).WillReturnResult(pgxmock.NewResult("LOCK", 0))
	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("b@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("b@example.com", pgxmock.AnyArg(), "view").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(uuid.New(), "b@example.com", "hash", "view", now, now))
	mock.ExpectCommit()

	_, err := svc.Register(ctx, "b@example.com", "pw", " beta ")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE users`).WillReturnResult(pgxmock.NewResult("LOCK", 0))
	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("a@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.Register(ctx, "A@example.com", "pw", "")

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	hash, err := svc.hasher.Hash("right")
	require.NoError(t, err)
	now := time.Now()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("a@example.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "a@example.com", hash, "viewer", now, now))

	user, err := svc.Authenticate(ctx, "A@Example.com", "right")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, rbac.RoleView, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate_WrongPassword(t *testing.T) {
	svc, mock := setupUserService(t)
	hash, err := svc.hasher.Hash("right")
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("a@example.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(uuid.New(), "a@example.com", hash, "view", now, now))

	_, err = svc.Authenticate(context.Background(), "a@example.com", "wrong")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_Authenticate_UnknownEmail(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "pw")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), id)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_List(t *testing.T) {
	svc, mock := setupUserService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users ORDER BY created_at ASC`).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(uuid.New(), "a@example.com", "h", "super_admin", now, now).
			AddRow(uuid.New(), "b@example.com", "h", "editor", now, now))

	users, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, rbac.RoleSuperAdmin, users[0].Role)
	assert.Equal(t, rbac.RoleEdit, users[1].Role)
}

func TestUserService_Create_AdminCannotAssignAdmin(t *testing.T) {
	svc, mock := setupUserService(t)
	actor := &models.User{ID: uuid.New(), Role: rbac.RoleAdmin}

	_, err := svc.Create(context.Background(), actor, "c@example.com", "pw", rbac.RoleAdmin)

	assert.ErrorIs(t, err, ErrRoleNotAssignable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Create_SuperAdminNeverAssignable(t *testing.T) {
	svc, mock := setupUserService(t)
	actor := &models.User{ID: uuid.New(), Role: rbac.RoleSuperAdmin}

	_, err := svc.Create(context.Background(), actor, "c@example.com", "pw", rbac.RoleSuperAdmin)

	assert.ErrorIs(t, err, ErrRoleNotAssignable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Create_DuplicateEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	actor := &models.User{ID: uuid.New(), Role: rbac.RoleSuperAdmin}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("c@example.com", pgxmock.AnyArg(), "admin").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := svc.Create(context.Background(), actor, "C@example.com", "pw", rbac.RoleAdmin)

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateRole(t *testing.T) {
	svc, mock := setupUserService(t)
	actor := uuid.New()
	target := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE users SET role = \$1`).
		WithArgs("edit", target).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(target, "t@example.com", "h", "edit", now, now))

	user, err := svc.UpdateRole(context.Background(), actor, target, rbac.RoleEdit)

	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEdit, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateRole_CannotDemoteSelf(t *testing.T) {
	svc, mock := setupUserService(t)
	self := uuid.New()

	_, err := svc.UpdateRole(context.Background(), self, self, rbac.RoleAdmin)

	assert.ErrorIs(t, err, ErrCannotDemoteSelf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateRole_SuperAdminNeverAssignable(t *testing.T) {
	svc, mock := setupUserService(t)

	_, err := svc.UpdateRole(context.Background(), uuid.New(), uuid.New(), rbac.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrRoleNotAssignable)

	self := uuid.New()
	_, err = svc.UpdateRole(context.Background(), self, self, rbac.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrRoleNotAssignable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateRole_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	target := uuid.New()

	mock.ExpectQuery(`UPDATE users SET role`).
		WithArgs("view", target).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.UpdateRole(context.Background(), uuid.New(), target, rbac.RoleView)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Delete(t *testing.T) {
	svc, mock := setupUserService(t)
	target := uuid.New()

	mock.ExpectExec(`DELETE FROM users WHERE id`).
		WithArgs(target).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, svc.Delete(context.Background(), uuid.New(), target))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Delete_Self(t *testing.T) {
	svc, _ := setupUserService(t)
	self := uuid.New()

	assert.ErrorIs(t, svc.Delete(context.Background(), self, self), ErrCannotDeleteSelf)
}

func TestUserService_Delete_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	target := uuid.New()

	mock.ExpectExec(`DELETE FROM users WHERE id`).
		WithArgs(target).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New(), target), ErrUserNotFound)
}
