package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/dimitrije/atlas-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Integration_UpsertOverrideIsIdempotent(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewLedgerService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	months := 3

	first, err := svc.UpsertOverride(ctx, user.ID, models.TxnOverride{Source: "bank", DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, models.TreatmentOperating, first.Treatment)
	assert.Nil(t, first.LineItemID)

	second, err := svc.UpsertOverride(ctx, user.ID, models.TxnOverride{
		Source: "bank", DocumentID: "doc-1", Treatment: "DEFERRED",
		Deferral: models.Deferral{Months: &months},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "DEFERRED", second.Treatment)

	line := "line-7"
	other, err := svc.UpsertOverride(ctx, user.ID, models.TxnOverride{Source: "bank", DocumentID: "doc-1", LineItemID: &line})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	overrides, err := svc.ListOverrides(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, overrides, 2)
}

func TestLedgerService_Integration_ScopedToUser(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewLedgerService(tdb.DB)
	ctx := context.Background()

	alice := fixtures.CreateUser(t)
	mallory := fixtures.CreateUser(t)

	saved, err := svc.UpsertOverride(ctx, alice.ID, models.TxnOverride{Source: "bank", DocumentID: "doc-1"})
	require.NoError(t, err)

	// a foreign delete is a silent no-op
	require.NoError(t, svc.DeleteOverride(ctx, mallory.ID, saved.ID))

	overrides, err := svc.ListOverrides(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, overrides, 1)

	overrides, err = svc.ListOverrides(ctx, mallory.ID)
	require.NoError(t, err)
	assert.Empty(t, overrides)

	require.NoError(t, svc.DeleteOverride(ctx, alice.ID, saved.ID))
	require.NoError(t, svc.DeleteOverride(ctx, alice.ID, saved.ID))
}

func TestLedgerService_Integration_DoctorRules(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewLedgerService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)

	first, err := svc.UpsertDoctorRule(ctx, user.ID, models.DoctorRule{ContactID: "c-1", Enabled: true})
	require.NoError(t, err)
	second, err := svc.UpsertDoctorRule(ctx, user.ID, models.DoctorRule{ContactID: "c-1", DefaultTreatment: "CAPEX", Enabled: false})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Enabled)
	assert.Equal(t, "CAPEX", second.DefaultTreatment)

	require.NoError(t, svc.DeleteDoctorRule(ctx, user.ID, "c-1"))
	rules, err := svc.ListDoctorRules(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLedgerService_Integration_Preferences(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewLedgerService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)

	missing, err := svc.GetPreference(ctx, user.ID, "theme")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.SetPreference(ctx, user.ID, "theme", json.RawMessage(`{"dark":false}`))
	require.NoError(t, err)
	_, err = svc.SetPreference(ctx, user.ID, "theme", json.RawMessage(`{"dark":true}`))
	require.NoError(t, err)

	pref, err := svc.GetPreference(ctx, user.ID, "theme")
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.JSONEq(t, `{"dark":true}`, string(pref.ValueJSON))
}
