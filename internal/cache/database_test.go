package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/servimatch/servimatch/internal/database"
	"github.com/servimatch/servimatch/internal/models"
)

func newTestStore(t *testing.T) *DatabaseStore {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CacheEntry{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewDatabaseStore(db)
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "k-" + uuid.NewString()

	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, key, []byte("value"), time.Minute))

	value, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("value"), value)

	require.NoError(t, store.Delete(ctx, key))
	_, found, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreSetNXClaimsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "claim-" + uuid.NewString()

	claimed, err := store.SetNX(ctx, key, []byte("1"), time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = store.SetNX(ctx, key, []byte("1"), time.Minute)
	require.NoError(t, err)
	require.False(t, claimed, "second claim within the TTL loses")
}

func TestDatabaseStoreSetNXReclaimsExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "expired-" + uuid.NewString()

	claimed, err := store.SetNX(ctx, key, []byte("1"), -time.Second)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = store.SetNX(ctx, key, []byte("2"), time.Minute)
	require.NoError(t, err)
	require.True(t, claimed, "expired key can be reclaimed")
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "ctr-" + uuid.NewString()

	count, ttl, err := store.IncrementWithTTL(ctx, key, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, key, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}
