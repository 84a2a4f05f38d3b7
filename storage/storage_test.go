// ABOUTME: Tests for Badger-backed snapshot persistence
// ABOUTME: Covers round-trips, missing data, corruption, and version migration
package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/indik4/crm/auth"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func (d *DB) putRaw(t *testing.T, key string, value []byte) {
	t.Helper()
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	require.NoError(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	db := openTestDB(t)

	s := store.New()
	_, err := s.AddLead(models.Lead{Name: "Anna", Email: "anna@example.com"})
	require.NoError(t, err)
	_, err = s.AddDeal(models.Deal{Title: "Contract", Amount: 250_000})
	require.NoError(t, err)
	require.NoError(t, s.AddGlobalDealField("budget", models.FieldNumber))

	require.NoError(t, db.SaveState(s.Snapshot()))

	loaded, err := db.LoadState()
	require.NoError(t, err)

	require.Len(t, loaded.Leads, 1)
	assert.Equal(t, "Anna", loaded.Leads[0].Name)
	require.Len(t, loaded.Deals, 1)
	assert.Equal(t, "Contract", loaded.Deals[0].Title)
	assert.Contains(t, loaded.GlobalDealFields, "budget")
	assert.Equal(t, models.FieldNumber, loaded.GlobalDealFields["budget"].Type)
	require.Len(t, loaded.Funnels, 2)
}

func TestLoadStateMissingYieldsEmpty(t *testing.T) {
	db := openTestDB(t)

	snap, err := db.LoadState()
	require.NoError(t, err)
	assert.Empty(t, snap.Leads)
	assert.Empty(t, snap.Deals)
	assert.Empty(t, snap.Funnels)
}

func TestLoadStateCorruptYieldsEmpty(t *testing.T) {
	db := openTestDB(t)
	db.putRaw(t, stateKey, []byte("not json at all"))

	snap, err := db.LoadState()
	require.NoError(t, err)
	assert.Empty(t, snap.Leads)
	assert.Empty(t, snap.Deals)
}

func TestLoadStateUnreadablePayloadYieldsEmpty(t *testing.T) {
	db := openTestDB(t)
	db.putRaw(t, stateKey, []byte(`{"version":1,"data":{"deals":"not-a-list"}}`))

	snap, err := db.LoadState()
	require.NoError(t, err)
	assert.Empty(t, snap.Deals)
}

func TestLoadStateVersionZeroMigrates(t *testing.T) {
	db := openTestDB(t)

	// Pre-envelope layout: the whole value is the raw state.
	raw, err := json.Marshal(store.Snapshot{
		Funnels: models.DefaultFunnels(),
	})
	require.NoError(t, err)
	db.putRaw(t, stateKey, raw)

	snap, err := db.LoadState()
	require.NoError(t, err)
	require.Len(t, snap.Funnels, 2)
	assert.Equal(t, "sales", snap.Funnels[0].ID)
}

func TestLoadStateNewerVersionRefused(t *testing.T) {
	db := openTestDB(t)
	db.putRaw(t, stateKey, []byte(`{"version":99,"data":{"deals":[]}}`))

	snap, err := db.LoadState()
	require.NoError(t, err)
	assert.Empty(t, snap.Deals)
	assert.Empty(t, snap.Funnels)
}

func TestSessionRoundTrip(t *testing.T) {
	db := openTestDB(t)

	sess := auth.Session{
		User:            &auth.User{Name: "Administrator", Email: "admin@indik4.com"},
		IsAuthenticated: true,
	}
	require.NoError(t, db.SaveSession(sess))

	loaded, err := db.LoadSession()
	require.NoError(t, err)
	assert.True(t, loaded.IsAuthenticated)
	require.NotNil(t, loaded.User)
	assert.Equal(t, "admin@indik4.com", loaded.User.Email)
}

func TestSessionMissingYieldsEmpty(t *testing.T) {
	db := openTestDB(t)

	sess, err := db.LoadSession()
	require.NoError(t, err)
	assert.False(t, sess.IsAuthenticated)
	assert.Nil(t, sess.User)
}

func TestPersistenceSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.db")

	db, err := Open(path)
	require.NoError(t, err)
	s := store.New()
	_, err = s.AddLead(models.Lead{Name: "Anna"})
	require.NoError(t, err)
	require.NoError(t, db.SaveState(s.Snapshot()))
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	snap, err := reopened.LoadState()
	require.NoError(t, err)
	require.Len(t, snap.Leads, 1)
	assert.Equal(t, "Anna", snap.Leads[0].Name)
}
