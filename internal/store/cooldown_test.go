package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenfeed/salesbot/internal/db"
)

func setupCooldownStore(t *testing.T) *CooldownStore {
	badgerDb, err := db.OpenBadger(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { badgerDb.Close() })
	return NewCooldownStore(badgerDb, 24*time.Hour)
}

func TestCooldownStore_SuppressesWithinWindow(t *testing.T) {
	store := setupCooldownStore(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	inCooldown, err := store.InCooldown("0xseller", "42")
	require.NoError(t, err)
	assert.False(t, inCooldown)

	require.NoError(t, store.MarkListed("0xseller", "42"))

	store.now = func() time.Time { return base.Add(1 * time.Hour) }
	inCooldown, err = store.InCooldown("0xseller", "42")
	require.NoError(t, err)
	assert.True(t, inCooldown, "relist one hour later should be suppressed")

	store.now = func() time.Time { return base.Add(25 * time.Hour) }
	inCooldown, err = store.InCooldown("0xseller", "42")
	require.NoError(t, err)
	assert.False(t, inCooldown, "relist after the window should be announced")
}

func TestCooldownStore_KeysAreScopedToSellerAndToken(t *testing.T) {
	store := setupCooldownStore(t)
	require.NoError(t, store.MarkListed("0xseller", "42"))

	otherToken, err := store.InCooldown("0xseller", "43")
	require.NoError(t, err)
	assert.False(t, otherToken)

	otherSeller, err := store.InCooldown("0xother", "42")
	require.NoError(t, err)
	assert.False(t, otherSeller)
}

func TestCooldownStore_SeenOrder(t *testing.T) {
	store := setupCooldownStore(t)

	seen, err := store.SeenOrder("0xorder")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.MarkOrder("0xorder"))

	seen, err = store.SeenOrder("0xorder")
	require.NoError(t, err)
	assert.True(t, seen)
}
