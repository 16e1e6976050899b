package rules

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexdong/high-taste/services/taste/pattern"
)

// TestBadgerStoreRoundTrip verifies rules survive a save/load cycle in
// the in-memory backend.
func TestBadgerStoreRoundTrip(t *testing.T) {
	bs, err := OpenBadgerStore(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer bs.Close()

	r := makeRule("FUNC001", "functions")
	r.Description = "Open calls should go through the wrapper."
	r.Status = StatusEnabled
	r.PatternVersion = 2

	require.NoError(t, bs.Save(r))

	loaded, err := bs.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Category, got.Category)
	assert.Equal(t, r.Description, got.Description)
	assert.Equal(t, r.PatternVersion, got.PatternVersion)
	assert.True(t, pattern.Equal(r.Pattern, got.Pattern))
}

// TestBadgerStoreSaveOverwrites verifies Save upserts by rule ID.
func TestBadgerStoreSaveOverwrites(t *testing.T) {
	bs, err := OpenBadgerStore(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer bs.Close()

	r := makeRule("FUNC001", "functions")
	require.NoError(t, bs.Save(r))

	r.Status = StatusDisabled
	r.PatternVersion = 3
	require.NoError(t, bs.Save(r))

	loaded, err := bs.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, StatusDisabled, loaded[0].Status)
	assert.Equal(t, 3, loaded[0].PatternVersion)
}

// TestBadgerStorePersistence verifies rules survive a close/reopen with
// the disk-backed configuration.
func TestBadgerStorePersistence(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultBadgerConfig(dir)
	bs, err := OpenBadgerStore(cfg)
	require.NoError(t, err)

	require.NoError(t, bs.Save(makeRule("NAME002", "naming")))
	require.NoError(t, bs.Close())

	bs2, err := OpenBadgerStore(cfg)
	require.NoError(t, err)
	defer bs2.Close()

	loaded, err := bs2.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "NAME002", loaded[0].ID)
}

// TestBadgerStoreCorruptValue verifies an undecodable value aborts the
// load with ErrCorruptStore.
func TestBadgerStoreCorruptValue(t *testing.T) {
	bs, err := OpenBadgerStore(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer bs.Close()

	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerRulePrefix+"FUNC001"), []byte("{not json"))
	})
	require.NoError(t, err)

	_, err = bs.LoadAll()
	assert.True(t, errors.Is(err, ErrCorruptStore))
}

// TestBadgerStoreRequiresPath verifies persistent configurations must
// name a directory.
func TestBadgerStoreRequiresPath(t *testing.T) {
	_, err := OpenBadgerStore(BadgerConfig{})
	assert.Error(t, err)
}
