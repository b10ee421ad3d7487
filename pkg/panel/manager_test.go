package panel

import (
	"context"
	"fmt"
	"strings"
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
	botUser   = "bot"
)

type panelFixture struct {
	manager *Manager
	sim     *remote.Simulator
	store   *stores.MemoryStore

	low     remote.Role // assignable
	mid     remote.Role // assignable
	high    remote.Role // above the bot's top role
	managed remote.Role
	botTop  remote.Role
}

func newFixture(t *testing.T) *panelFixture {
	t.Helper()
	log, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level: "error", Format: "json", Output: "stderr",
	})
	require.NoError(t, err)
	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: false})
	require.NoError(t, err)

	sim := remote.NewSimulator()
	sim.AddGuild(testGuild)

	f := &panelFixture{
		sim:     sim,
		store:   stores.NewMemoryStore(),
		low:     sim.SeedRole(testGuild, "Chess", 1, false),
		mid:     sim.SeedRole(testGuild, "Painting", 2, false),
		managed: sim.SeedRole(testGuild, "SomeBot", 3, true),
		botTop:  sim.SeedRole(testGuild, "Engine", 5, false),
		high:    sim.SeedRole(testGuild, "Admin", 8, false),
	}
	sim.SetBotMember(testGuild, botUser, f.botTop.ID)
	sim.SeedMember(testGuild, testUser)
	f.manager = NewManager(sim, f.store, log, metrics)
	return f
}

func (f *panelFixture) addRole(t *testing.T, role remote.Role, group string) {
	t.Helper()
	require.NoError(t, f.manager.AddRole(context.Background(), testGuild, role.ID, group, role.Name, ""))
}

func TestEntriesKeepDenseOrderIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRole(t, f.low, "games")
	f.addRole(t, f.mid, "hobbies")
	f.addRole(t, f.high, "staff")

	require.NoError(t, f.manager.RemoveRole(ctx, testGuild, f.mid.ID))

	entries, err := f.manager.Entries(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for i, e := range entries {
		assert.Equal(t, i, e.OrderIndex, "order index must stay dense")
	}
	assert.Equal(t, f.low.ID, entries[0].RoleID)
	assert.Equal(t, f.high.ID, entries[1].RoleID)
}

func TestReorderMovesAndRenormalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRole(t, f.low, "games")
	f.addRole(t, f.mid, "games")
	f.addRole(t, f.high, "games")

	require.NoError(t, f.manager.Reorder(ctx, testGuild, f.high.ID, 0))

	entries, err := f.manager.Entries(ctx, testGuild)
	require.NoError(t, err)
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.RoleID
		assert.Equal(t, i, e.OrderIndex)
	}
	assert.Equal(t, []string{f.high.ID, f.low.ID, f.mid.ID}, got)

	// Out-of-range indexes clamp instead of failing.
	require.NoError(t, f.manager.Reorder(ctx, testGuild, f.high.ID, 99))
	entries, _ = f.manager.Entries(ctx, testGuild)
	assert.Equal(t, f.high.ID, entries[len(entries)-1].RoleID)
}

func TestMutationsOnUnknownRoleFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.manager.RemoveRole(ctx, testGuild, "nope"), ErrRoleNotConfigured)
	assert.ErrorIs(t, f.manager.SetEnabled(ctx, testGuild, "nope", true), ErrRoleNotConfigured)
	assert.ErrorIs(t, f.manager.Reorder(ctx, testGuild, "nope", 0), ErrRoleNotConfigured)
}

func TestPublishCreatesChannelMessageAndRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRole(t, f.low, "games")

	require.NoError(t, f.manager.Publish(ctx, testGuild))

	record, err := f.store.GetPanelRecord(ctx, testGuild, DefaultPanelKey)
	require.NoError(t, err)
	require.NotNil(t, record)

	_, channels, _ := f.sim.ListChannels(ctx, testGuild)
	require.Len(t, channels, 1)
	assert.Equal(t, defaultChannelName, channels[0].Name)

	content, ok := f.sim.MessageContent(record.ChannelID, record.MessageID)
	require.True(t, ok)
	assert.Contains(t, content, "Chess")
}

func TestPublishEditsExistingMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRole(t, f.low, "games")
	require.NoError(t, f.manager.Publish(ctx, testGuild))
	first, _ := f.store.GetPanelRecord(ctx, testGuild, DefaultPanelKey)

	f.addRole(t, f.mid, "hobbies")
	require.NoError(t, f.manager.Publish(ctx, testGuild))

	second, _ := f.store.GetPanelRecord(ctx, testGuild, DefaultPanelKey)
	assert.Equal(t, first.MessageID, second.MessageID, "publish edits in place")

	content, _ := f.sim.MessageContent(second.ChannelID, second.MessageID)
	assert.Contains(t, content, "Painting")
}

func TestPublishRecreatesDeletedMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRole(t, f.low, "games")
	require.NoError(t, f.manager.Publish(ctx, testGuild))
	first, _ := f.store.GetPanelRecord(ctx, testGuild, DefaultPanelKey)

	f.sim.DeleteMessage(first.ChannelID, first.MessageID)
	require.NoError(t, f.manager.Publish(ctx, testGuild))

	second, _ := f.store.GetPanelRecord(ctx, testGuild, DefaultPanelKey)
	assert.NotEqual(t, first.MessageID, second.MessageID)
	_, ok := f.sim.MessageContent(second.ChannelID, second.MessageID)
	assert.True(t, ok, "new live message exists")
}

func TestApplySelectionGrantsAndReturnsSelectionSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRole(t, f.low, "games")
	f.addRole(t, f.mid, "games")

	set, err := f.manager.ApplySelection(ctx, testGuild, testUser, f.low.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{f.low.ID}, set)

	set, err = f.manager.ApplySelection(ctx, testGuild, testUser, f.mid.ID, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.low.ID, f.mid.ID}, set)

	set, err = f.manager.ApplySelection(ctx, testGuild, testUser, f.low.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{f.mid.ID}, set)
}

func TestApplySelectionRejectsProtectedRolesWithoutMutating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRole(t, f.managed, "bots")
	f.addRole(t, f.high, "staff")

	before := f.sim.MutatingCalls()

	_, err := f.manager.ApplySelection(ctx, testGuild, testUser, f.managed.ID, true)
	assert.ErrorIs(t, err, ErrRoleProtected, "managed role")

	_, err = f.manager.ApplySelection(ctx, testGuild, testUser, f.high.ID, true)
	assert.ErrorIs(t, err, ErrRoleProtected, "role above the bot's top role")

	assert.Equal(t, before, f.sim.MutatingCalls(), "rejections must not mutate")
	assert.Empty(t, f.sim.MemberRoles(testGuild, testUser))
}

func TestApplySelectionRejectsDisabledAndUnknownRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRole(t, f.low, "games")
	require.NoError(t, f.manager.SetEnabled(ctx, testGuild, f.low.ID, false))

	_, err := f.manager.ApplySelection(ctx, testGuild, testUser, f.low.ID, true)
	assert.ErrorIs(t, err, ErrRoleDisabled)

	_, err = f.manager.ApplySelection(ctx, testGuild, testUser, "missing", true)
	assert.ErrorIs(t, err, ErrRoleNotConfigured)
}

func TestClearRemovesAllEnabledConfiguredRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRole(t, f.low, "games")
	f.addRole(t, f.mid, "games")
	other := f.sim.SeedRole(testGuild, "Veteran", 4, false)
	f.sim.SeedMember(testGuild, testUser, f.low.ID, f.mid.ID, other.ID)

	removed, err := f.manager.Clear(ctx, testGuild, testUser)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.low.ID, f.mid.ID}, removed)
	assert.Equal(t, []string{other.ID}, f.sim.MemberRoles(testGuild, testUser),
		"unconfigured roles survive clear")
}

func TestRepairForcesRepublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRole(t, f.low, "games")
	require.NoError(t, f.manager.Publish(ctx, testGuild))
	first, _ := f.store.GetPanelRecord(ctx, testGuild, DefaultPanelKey)

	require.NoError(t, f.manager.Repair(ctx, testGuild))

	second, _ := f.store.GetPanelRecord(ctx, testGuild, DefaultPanelKey)
	require.NotNil(t, second)
	assert.NotEqual(t, first.MessageID, second.MessageID, "repair recreates the message")
}

func TestRenderPanelGroupsAndPaginates(t *testing.T) {
	var entries []stores.ReactionRoleEntry
	for i := 0; i < pageSize+3; i++ {
		entries = append(entries, stores.ReactionRoleEntry{
			RoleID:     fmt.Sprintf("r%02d", i),
			GroupKey:   "games",
			Enabled:    true,
			OrderIndex: i,
			Label:      fmt.Sprintf("Game %02d", i),
		})
	}
	entries = append(entries, stores.ReactionRoleEntry{
		RoleID: "rh", GroupKey: "hobbies", Enabled: true, Label: "Painting",
	})
	entries = append(entries, stores.ReactionRoleEntry{
		RoleID: "rd", GroupKey: "games", Enabled: false, Label: "Hidden",
	})

	out := renderPanel(entries)
	assert.Contains(t, out, "Games (1/2)")
	assert.Contains(t, out, "Games (2/2)")
	assert.Contains(t, out, "Hobbies")
	assert.NotContains(t, out, "Hidden", "disabled entries are not rendered")

	// Page one holds exactly pageSize entries.
	pageOne := strings.Split(strings.Split(out, "Games (1/2)")[1], "Games (2/2)")[0]
	assert.Equal(t, pageSize, strings.Count(pageOne, "Game "))
}

func TestRenderPanelEmpty(t *testing.T) {
	out := renderPanel(nil)
	assert.Contains(t, out, "No roles are available")
}
