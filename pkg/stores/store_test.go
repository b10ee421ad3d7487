package stores

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories builds each Store implementation; every test runs against
// all of them so the in-memory store cannot drift from SQLite semantics.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store {
			store, err := NewSQLiteStore(Config{
				Path:     filepath.Join(t.TempDir(), "test.db"),
				CacheTTL: time.Minute,
			})
			require.NoError(t, err)
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			require.NoError(t, store.Migrate(ctx))
			t.Cleanup(func() { store.Close() })
			return store
		},
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestProfileRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		// Unknown members get a zero profile below every tier.
		profile, err := store.GetProfile(ctx, "g1", "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), profile.XP)
		assert.Equal(t, -1, profile.CurrentTier)

		profile.XP = 640
		profile.CurrentTier = 1
		require.NoError(t, store.UpsertProfile(ctx, profile))

		got, err := store.GetProfile(ctx, "g1", "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(640), got.XP)
		assert.Equal(t, 1, got.CurrentTier)
		assert.False(t, got.UpdatedAt.IsZero())

		// Upsert overwrites.
		got.XP = 700
		require.NoError(t, store.UpsertProfile(ctx, got))
		again, err := store.GetProfile(ctx, "g1", "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(700), again.XP)
	})
}

func TestLeaderboardOrdersAndLimits(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		for i, xp := range []int64{50, 900, 400, 900} {
			require.NoError(t, store.UpsertProfile(ctx, &LevelProfile{
				GuildID: "g1", UserID: fmt.Sprintf("u%d", i+1), XP: xp,
			}))
		}
		require.NoError(t, store.UpsertProfile(ctx, &LevelProfile{
			GuildID: "g2", UserID: "other", XP: 9999,
		}))

		top, err := store.Leaderboard(ctx, "g1", 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, int64(900), top[0].XP)
		assert.Equal(t, int64(900), top[1].XP)
		assert.Equal(t, "u2", top[0].UserID, "ties break by user id")
		assert.Equal(t, "u4", top[1].UserID)
		assert.Equal(t, int64(400), top[2].XP)
	})
}

func TestTiersReplaceWholesale(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		rows := []TierRow{
			{GuildID: "g1", Idx: 0, Threshold: 0, RoleName: "Bronze", RoleID: "r1"},
			{GuildID: "g1", Idx: 1, Threshold: 500, RoleName: "Silver", RoleID: "r2"},
		}
		require.NoError(t, store.ReplaceTiers(ctx, "g1", rows))

		got, err := store.GetTiers(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Silver", got[1].RoleName)

		// Wholesale replace drops the old rows entirely.
		require.NoError(t, store.ReplaceTiers(ctx, "g1", rows[:1]))
		got, err = store.GetTiers(ctx, "g1")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestSetTierRoleUpdatesOneMapping(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		require.NoError(t, store.ReplaceTiers(ctx, "g1", []TierRow{
			{GuildID: "g1", Idx: 0, Threshold: 0, RoleName: "Bronze", RoleID: "r1"},
			{GuildID: "g1", Idx: 1, Threshold: 500, RoleName: "Silver", RoleID: "r2"},
		}))

		require.NoError(t, store.SetTierRole(ctx, "g1", 1, "r9"))

		got, err := store.GetTiers(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "r1", got[0].RoleID)
		assert.Equal(t, "r9", got[1].RoleID)
	})
}

func TestEntriesReplaceAndOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		entries := []ReactionRoleEntry{
			{GuildID: "g1", RoleID: "r2", GroupKey: "games", Enabled: true, OrderIndex: 1},
			{GuildID: "g1", RoleID: "r1", GroupKey: "games", Enabled: true, OrderIndex: 0},
		}
		require.NoError(t, store.ReplaceEntries(ctx, "g1", entries))

		got, err := store.ListEntries(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "r1", got[0].RoleID, "listed in order index")
		assert.Equal(t, "r2", got[1].RoleID)

		require.NoError(t, store.ReplaceEntries(ctx, "g1", nil))
		got, err = store.ListEntries(ctx, "g1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPanelRecordLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		missing, err := store.GetPanelRecord(ctx, "g1", "roles")
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, store.UpsertPanelRecord(ctx, &PanelRecord{
			PanelKey: "roles", GuildID: "g1", ChannelID: "c1", MessageID: "m1",
		}))
		require.NoError(t, store.UpsertPanelRecord(ctx, &PanelRecord{
			PanelKey: "roles", GuildID: "g2", ChannelID: "c2", MessageID: "m2",
		}))

		got, err := store.GetPanelRecord(ctx, "g1", "roles")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "m1", got.MessageID)

		// Upsert replaces the live message pointer.
		require.NoError(t, store.UpsertPanelRecord(ctx, &PanelRecord{
			PanelKey: "roles", GuildID: "g1", ChannelID: "c1", MessageID: "m9",
		}))
		got, _ = store.GetPanelRecord(ctx, "g1", "roles")
		assert.Equal(t, "m9", got.MessageID)

		all, err := store.ListPanelRecords(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		require.NoError(t, store.DeletePanelRecord(ctx, "g1", "roles"))
		gone, err := store.GetPanelRecord(ctx, "g1", "roles")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})
}

func TestRemoteIDsRecordAndClear(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		require.NoError(t, store.SaveRemoteID(ctx, &RemoteID{
			GuildID: "g1", Key: "role/Moderator", Kind: "role", RemoteID: "1001",
		}))
		require.NoError(t, store.SaveRemoteID(ctx, &RemoteID{
			GuildID: "g1", Key: "category/Support", Kind: "category", RemoteID: "1002",
		}))
		// Saving the same key again overwrites.
		require.NoError(t, store.SaveRemoteID(ctx, &RemoteID{
			GuildID: "g1", Key: "role/Moderator", Kind: "role", RemoteID: "1003",
		}))

		ids, err := store.GetRemoteIDs(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"role/Moderator":   "1003",
			"category/Support": "1002",
		}, ids)

		require.NoError(t, store.ClearRemoteIDs(ctx, "g1"))
		ids, err = store.GetRemoteIDs(ctx, "g1")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestHealthCheck(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		assert.NoError(t, store.HealthCheck(context.Background()))
	})
}
