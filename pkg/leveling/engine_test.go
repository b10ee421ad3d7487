package leveling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildforge/guildforge/pkg/remote"
	"github.com/guildforge/guildforge/pkg/stores"
	"github.com/guildforge/guildforge/pkg/telemetry"
)

const (
	testGuild = "g1"
	testUser  = "u1"
)

type engineFixture struct {
	engine *Engine
	sim    *remote.Simulator
	store  *stores.MemoryStore
	roles  map[string]remote.Role
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	log, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level: "error", Format: "json", Output: "stderr",
	})
	require.NoError(t, err)
	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: false})
	require.NoError(t, err)

	sim := remote.NewSimulator()
	sim.AddGuild(testGuild)
	roles := map[string]remote.Role{
		"Bronze": sim.SeedRole(testGuild, "Bronze", 1, false),
		"Silver": sim.SeedRole(testGuild, "Silver", 2, false),
		"Gold":   sim.SeedRole(testGuild, "Gold", 3, false),
	}
	sim.SeedMember(testGuild, testUser)

	store := stores.NewMemoryStore()
	f := &engineFixture{
		engine: NewEngine(sim, store, log, metrics),
		sim:    sim,
		store:  store,
		roles:  roles,
	}

	table := &TierTable{Tiers: []Tier{
		{Threshold: 0, RoleName: "Bronze", RoleID: roles["Bronze"].ID},
		{Threshold: 500, RoleName: "Silver", RoleID: roles["Silver"].ID},
		{Threshold: 1000, RoleName: "Gold", RoleID: roles["Gold"].ID},
	}}
	require.NoError(t, f.engine.SetTiers(context.Background(), testGuild, table))
	return f
}

func TestGrantXPBelowNextThresholdKeepsTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.engine.GrantXP(ctx, testGuild, testUser, 120)
	require.NoError(t, err)

	assert.Equal(t, int64(120), result.Profile.XP)
	assert.Equal(t, 0, result.NewTier, "120 xp stays in the first tier")
	// Fresh profile starts below every tier, so the first grant crosses
	// into Bronze.
	assert.True(t, result.TierChanged)
	assert.Contains(t, f.sim.MemberRoles(testGuild, testUser), f.roles["Bronze"].ID)

	// A second small grant changes nothing.
	result, err = f.engine.GrantXP(ctx, testGuild, testUser, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(220), result.Profile.XP)
	assert.False(t, result.TierChanged)
}

func TestGrantXPCrossingAddsNewRoleAndRemovesOld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.GrantXP(ctx, testGuild, testUser, 120)
	require.NoError(t, err)

	result, err := f.engine.GrantXP(ctx, testGuild, testUser, 500)
	require.NoError(t, err)

	assert.Equal(t, int64(620), result.Profile.XP)
	assert.Equal(t, 1, result.NewTier)
	assert.True(t, result.TierChanged)
	assert.NoError(t, result.ReconcileErr)

	held := f.sim.MemberRoles(testGuild, testUser)
	assert.Contains(t, held, f.roles["Silver"].ID)
	assert.NotContains(t, held, f.roles["Bronze"].ID, "previous tier role removed")
}

func TestGrantXPZeroOrNegativeIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.GrantXP(ctx, testGuild, testUser, 300)
	require.NoError(t, err)

	for _, amount := range []int64{0, -50} {
		result, err := f.engine.GrantXP(ctx, testGuild, testUser, amount)
		require.NoError(t, err)
		assert.Equal(t, int64(300), result.Profile.XP, "amount %d must not change xp", amount)
		assert.False(t, result.TierChanged)
	}
}

func TestGrantXPKeepsOtherRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.sim.SeedRole(testGuild, "Moderator", 10, false)
	f.sim.SeedMember(testGuild, testUser, staff.ID)

	_, err := f.engine.GrantXP(ctx, testGuild, testUser, 600)
	require.NoError(t, err)

	held := f.sim.MemberRoles(testGuild, testUser)
	assert.Contains(t, held, staff.ID, "non-tier roles are never touched")
	assert.Contains(t, held, f.roles["Silver"].ID)
}

func TestGrantXPReconciliationFailureDoesNotBlockXPWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sim.FailNext("add_member_role",
		remote.NewPermanentError("missing permission", nil).WithCode(remote.ErrCodePermissionDenied))

	result, err := f.engine.GrantXP(ctx, testGuild, testUser, 700)
	require.NoError(t, err, "xp write must succeed despite role failure")
	assert.Error(t, result.ReconcileErr)
	assert.Equal(t, int64(700), result.Profile.XP)

	profile, err := f.store.GetProfile(ctx, testGuild, testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(700), profile.XP)
	assert.Equal(t, 1, profile.CurrentTier, "tier state committed even when roles lag")
}

func TestGrantXPNeverRemovesManagedRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Replace the Bronze reward with a managed integration role.
	managed := f.sim.SeedRole(testGuild, "BoosterBot", 5, true)
	require.NoError(t, f.engine.SetRoleReward(ctx, testGuild, 0, managed.ID))
	f.sim.SeedMember(testGuild, testUser, managed.ID)

	// Seed the profile at tier 0, then cross to tier 1.
	_, err := f.engine.GrantXP(ctx, testGuild, testUser, 100)
	require.NoError(t, err)
	result, err := f.engine.GrantXP(ctx, testGuild, testUser, 500)
	require.NoError(t, err)
	assert.NoError(t, result.ReconcileErr)

	assert.Contains(t, f.sim.MemberRoles(testGuild, testUser), managed.ID,
		"managed role must survive reconciliation")
}

func TestSetRoleRewardDoesNotRetroactivelyReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.GrantXP(ctx, testGuild, testUser, 600) // tier 1
	require.NoError(t, err)
	before := f.sim.MutatingCalls()

	replacement := f.sim.SeedRole(testGuild, "Sterling", 4, false)
	require.NoError(t, f.engine.SetRoleReward(ctx, testGuild, 1, replacement.ID))

	assert.Equal(t, before, f.sim.MutatingCalls(), "remap must not touch members")
	assert.NotContains(t, f.sim.MemberRoles(testGuild, testUser), replacement.ID)
}

func TestResyncFixesDriftedRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.GrantXP(ctx, testGuild, testUser, 1200) // tier 2
	require.NoError(t, err)

	// Drift: member loses Gold and somehow holds Bronze again.
	require.NoError(t, f.sim.RemoveMemberRole(ctx, testGuild, testUser, f.roles["Gold"].ID))
	require.NoError(t, f.sim.AddMemberRole(ctx, testGuild, testUser, f.roles["Bronze"].ID))

	require.NoError(t, f.engine.Resync(ctx, testGuild, testUser))

	held := f.sim.MemberRoles(testGuild, testUser)
	assert.Contains(t, held, f.roles["Gold"].ID)
	assert.NotContains(t, held, f.roles["Bronze"].ID)
	assert.NotContains(t, held, f.roles["Silver"].ID)
}

func TestLeaderboardOrdersByXP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sim.SeedMember(testGuild, "u2")
	f.sim.SeedMember(testGuild, "u3")

	_, err := f.engine.GrantXP(ctx, testGuild, testUser, 100)
	require.NoError(t, err)
	_, err = f.engine.GrantXP(ctx, testGuild, "u2", 900)
	require.NoError(t, err)
	_, err = f.engine.GrantXP(ctx, testGuild, "u3", 400)
	require.NoError(t, err)

	top, err := f.engine.Leaderboard(ctx, testGuild, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "u2", top[0].UserID)
	assert.Equal(t, "u3", top[1].UserID)
}
