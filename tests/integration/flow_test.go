package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/dimitrije/atlas-api/pkg/dto"
	"github.com/dimitrije/atlas-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, c *testutil.HTTPTestClient, email, invite string) dto.UserOut {
	t.Helper()
	rec := c.POST("/api/auth/register", dto.RegisterRequest{Email: email, Password: "hunter2-hunter2", InviteCode: invite})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.AuthResponse
	testutil.ParseJSON(t, rec, &resp)
	return resp.User
}

func TestFlow_Integration_RegistrationRoles(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)

	first := register(t, testutil.NewHTTPTestClient(t, app), "Owner@Example.com", "")
	assert.Equal(t, "owner@example.com", first.Email)
	assert.Equal(t, "super_admin", first.Role)

	// every later registration needs a code
	rec := testutil.NewHTTPTestClient(t, app).POST("/api/auth/register",
		dto.RegisterRequest{Email: "second@example.com", Password: "hunter2-hunter2"})
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	second := register(t, testutil.NewHTTPTestClient(t, app), "second@example.com", testInviteCode)
	assert.Equal(t, "view", second.Role)

	rec = testutil.NewHTTPTestClient(t, app).POST("/api/auth/register",
		dto.RegisterRequest{Email: "SECOND@example.com", Password: "hunter2-hunter2", InviteCode: testInviteCode})
	testutil.AssertStatus(t, rec, http.StatusConflict)
}

func TestFlow_Integration_SessionLifecycle(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)
	c := testutil.NewHTTPTestClient(t, app)

	testutil.AssertStatus(t, c.GET("/api/auth/me"), http.StatusUnauthorized)

	register(t, c, "alice@example.com", "")
	require.NotEmpty(t, c.Cookie(testutil.SessionCookie))
	require.NotEmpty(t, c.Cookie(testutil.CSRFCookie))

	testutil.AssertStatus(t, c.GET("/api/auth/me"), http.StatusOK)

	testutil.AssertStatus(t, c.POST("/api/auth/logout", nil), http.StatusOK)
	testutil.AssertStatus(t, c.GET("/api/auth/me"), http.StatusUnauthorized)

	login := testutil.NewHTTPTestClient(t, app)
	rec := login.POST("/api/auth/login", dto.LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	rec = login.POST("/api/auth/login", dto.LoginRequest{Email: "ALICE@example.com", Password: "hunter2-hunter2"})
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.AssertStatus(t, login.GET("/api/auth/me"), http.StatusOK)
}

func TestFlow_Integration_CSRFRejectionWritesNothing(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)
	c := testutil.NewHTTPTestClient(t, app)
	register(t, c, "alice@example.com", "")

	c.SkipCSRF = true
	rec := c.POST("/api/snapshots", map[string]any{
		"name":    "blocked",
		"payload": map[string]any{"schema_version": "v1", "data": map[string]any{}},
	})
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	assert.Contains(t, rec.Body.String(), "Invalid CSRF token")

	var count int
	require.NoError(t, tdb.DB.Pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM snapshots`).Scan(&count))
	assert.Zero(t, count)

	// safe methods pass without the header
	testutil.AssertStatus(t, c.GET("/api/snapshots"), http.StatusOK)
}

func TestFlow_Integration_SnapshotSharing(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)

	owner := testutil.NewHTTPTestClient(t, app)
	register(t, owner, "owner@example.com", "")
	bob := testutil.NewHTTPTestClient(t, app)
	register(t, bob, "bob@example.com", testInviteCode)

	rec := owner.POST("/api/snapshots", map[string]any{
		"name": "FY24",
		"payload": map[string]any{
			"schema_version": "v1",
			"data":           map[string]any{"summary": map[string]any{"revenue": 10}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap dto.SnapshotOut
	testutil.ParseJSON(t, rec, &snap)
	require.NotNil(t, snap.Payload)
	path := "/api/snapshots/" + snap.ID.String()

	// bob cannot see it, and learns nothing about whether it exists
	testutil.AssertStatus(t, bob.GET(path), http.StatusNotFound)

	rec = owner.POST(path+"/shares", dto.CreateShareRequest{Email: "BOB@example.com", Role: "viewer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var share dto.ShareOut
	testutil.ParseJSON(t, rec, &share)

	rec = bob.GET(path)
	require.Equal(t, http.StatusOK, rec.Code)
	var seen dto.SnapshotOut
	testutil.ParseJSON(t, rec, &seen)
	assert.Equal(t, "viewer", seen.Role)
	assert.JSONEq(t, `{"revenue":10}`, string(seen.Summary))

	testutil.AssertStatus(t, bob.PATCH(path, map[string]any{"name": "mine now"}), http.StatusForbidden)
	testutil.AssertStatus(t, bob.GET(path+"/shares"), http.StatusForbidden)

	rec = bob.POST(path+"/duplicate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dup dto.SnapshotOut
	testutil.ParseJSON(t, rec, &dup)
	assert.Equal(t, "FY24 (Copy)", dup.Name)
	assert.Equal(t, "owner", dup.Role)

	rec = owner.PATCH(path+"/shares/"+share.ID.String(), dto.UpdateShareRequest{Role: "editor"})
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.AssertStatus(t, bob.PATCH(path, map[string]any{"name": "renamed"}), http.StatusOK)

	// editors never delete
	testutil.AssertStatus(t, bob.DELETE(path), http.StatusForbidden)

	testutil.AssertStatus(t, owner.POST(path+"/shares", dto.CreateShareRequest{Email: "owner@example.com", Role: "viewer"}), http.StatusBadRequest)
	testutil.AssertStatus(t, owner.POST(path+"/shares", dto.CreateShareRequest{Email: "ghost@example.com", Role: "viewer"}), http.StatusNotFound)

	testutil.AssertStatus(t, owner.DELETE(path), http.StatusOK)
	testutil.AssertStatus(t, bob.GET(path), http.StatusNotFound)
}

func TestFlow_Integration_SuperAdminCannotDeleteOthersSnapshot(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)

	admin := testutil.NewHTTPTestClient(t, app)
	register(t, admin, "root@example.com", "")
	carol := testutil.NewHTTPTestClient(t, app)
	register(t, carol, "carol@example.com", testInviteCode)

	rec := carol.POST("/api/snapshots", map[string]any{
		"name":    "carol's",
		"payload": map[string]any{"schema_version": "v1", "data": map[string]any{}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var snap dto.SnapshotOut
	testutil.ParseJSON(t, rec, &snap)
	path := "/api/snapshots/" + snap.ID.String()

	rec = admin.GET(path)
	require.Equal(t, http.StatusOK, rec.Code)
	var seen dto.SnapshotOut
	testutil.ParseJSON(t, rec, &seen)
	assert.Equal(t, "owner", seen.Role)

	rec = admin.DELETE(path)
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	assert.Contains(t, rec.Body.String(), "Only owner can delete")
}

func TestFlow_Integration_UserAdministration(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)

	root := testutil.NewHTTPTestClient(t, app)
	rootUser := register(t, root, "root@example.com", "")
	viewer := testutil.NewHTTPTestClient(t, app)
	register(t, viewer, "viewer@example.com", testInviteCode)

	testutil.AssertStatus(t, viewer.GET("/api/users"), http.StatusForbidden)

	rec := root.POST("/api/users", dto.CreateUserRequest{Email: "ed@example.com", Password: "hunter2-hunter2", Role: "editor"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ed dto.UserOut
	testutil.ParseJSON(t, rec, &ed)
	assert.Equal(t, "edit", ed.Role)

	rec = root.GET("/api/users")
	require.Equal(t, http.StatusOK, rec.Code)
	var users []dto.UserOut
	testutil.ParseJSON(t, rec, &users)
	require.Len(t, users, 3)
	assert.Equal(t, "root@example.com", users[0].Email)

	// super_admin only comes from the first registration
	testutil.AssertStatus(t, root.POST("/api/users", dto.CreateUserRequest{Email: "boss@example.com", Password: "hunter2-hunter2", Role: "super_admin"}), http.StatusForbidden)
	testutil.AssertStatus(t, root.PATCH("/api/users/"+ed.ID.String(), dto.UpdateUserRoleRequest{Role: "super_admin"}), http.StatusForbidden)

	testutil.AssertStatus(t, root.PATCH("/api/users/"+rootUser.ID.String(), dto.UpdateUserRoleRequest{Role: "admin"}), http.StatusBadRequest)
	testutil.AssertStatus(t, root.DELETE("/api/users/"+rootUser.ID.String()), http.StatusBadRequest)
	testutil.AssertStatus(t, root.DELETE("/api/users/"+ed.ID.String()), http.StatusOK)
}

func TestFlow_Integration_State(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)
	c := testutil.NewHTTPTestClient(t, app)
	register(t, c, "alice@example.com", "")

	rec := c.GET("/api/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty dto.StateResponse
	testutil.ParseJSON(t, rec, &empty)
	assert.Nil(t, empty.Template)
	assert.Empty(t, empty.Snapshots)

	for i := 0; i < 2; i++ {
		rec = c.PUT("/api/state/template", dto.ConfigPayload{Name: "Default", Data: []byte(`{"rev":1}`)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	testutil.AssertStatus(t, c.PUT("/api/state/settings", dto.ConfigPayload{Name: "prefs", Data: []byte(`{}`)}), http.StatusOK)

	rec = c.GET("/api/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var state dto.StateResponse
	testutil.ParseJSON(t, rec, &state)
	require.NotNil(t, state.Template)
	require.NotNil(t, state.Mapping)
	require.NotNil(t, state.Settings)
	assert.Nil(t, state.Report)

	var rows int
	require.NoError(t, tdb.DB.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM user_configs WHERE kind = 'template'`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestFlow_Integration_XeroNotConfigured(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)
	c := testutil.NewHTTPTestClient(t, app)
	register(t, c, "alice@example.com", "")

	rec := c.GET("/api/xero/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"connected":false,"tenantId":null,"expiresAt":null}`, rec.Body.String())

	testutil.AssertStatus(t, c.GET("/api/xero/authorize"), http.StatusInternalServerError)
}

func TestFlow_Integration_HealthAndMetrics(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)
	c := testutil.NewHTTPTestClient(t, app)

	testutil.AssertStatus(t, c.GET("/api/health/ready"), http.StatusOK)
	testutil.AssertStatus(t, c.GET("/api/auth/me"), http.StatusUnauthorized)

	rec := c.GET("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `atlas_auth_failures_total{reason="missing_session"} 1`)
}

func TestFlow_Integration_EditorShareScenario(t *testing.T) {
	tdb := setupTest(t)
	app := newTestApp(t, tdb)

	a := testutil.NewHTTPTestClient(t, app)
	assert.Equal(t, "super_admin", register(t, a, "a@example.com", "").Role)
	b := testutil.NewHTTPTestClient(t, app)
	assert.Equal(t, "view", register(t, b, "b@example.com", testInviteCode).Role)

	rec := a.POST("/api/snapshots", map[string]any{
		"name":    "Board pack",
		"payload": map[string]any{"schema_version": "v1", "data": map[string]any{"rows": []int{}}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var snap dto.SnapshotOut
	testutil.ParseJSON(t, rec, &snap)
	path := "/api/snapshots/" + snap.ID.String()

	testutil.AssertStatus(t, a.POST(path+"/shares", dto.CreateShareRequest{Email: "b@example.com", Role: "editor"}), http.StatusOK)

	testutil.AssertStatus(t, b.GET(path), http.StatusOK)
	testutil.AssertStatus(t, b.PATCH(path, map[string]any{"name": "Board pack v2"}), http.StatusOK)
	testutil.AssertStatus(t, b.POST(path+"/shares", dto.CreateShareRequest{Email: "a@example.com", Role: "viewer"}), http.StatusForbidden)

	testutil.AssertStatus(t, a.DELETE(path), http.StatusOK)
	testutil.AssertStatus(t, b.GET(path), http.StatusNotFound)
}
