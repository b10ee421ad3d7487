package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/guildforge/guildforge/pkg/remote"
	"github.com/guildforge/guildforge/pkg/stores"
	"github.com/guildforge/guildforge/pkg/telemetry"
)

// DefaultPanelKey names the single panel a guild gets today. The schema
// supports several per guild; the manager does not yet.
const DefaultPanelKey = "roles"

// defaultChannelName is where the panel message lives when the guild has
// no channel picked out.
const defaultChannelName = "roles"

var (
	// ErrRoleNotConfigured means the role is not in the guild's panel.
	ErrRoleNotConfigured = errors.New("role is not configured on the panel")

	// ErrRoleDisabled means the entry exists but selection is turned off.
	ErrRoleDisabled = errors.New("role is disabled on the panel")

	// ErrRoleProtected means the role is managed by an integration or sits
	// at or above the engine's own highest role, so it must not be
	// assigned through the panel.
	ErrRoleProtected = errors.New("role is protected and cannot be self-assigned")
)

// Manager owns ReactionRoleEntry and PanelRecord state for all guilds.
// Entry mutations renormalize OrderIndex to stay dense, then rewrite the
// guild's entry set wholesale.
type Manager struct {
	client  remote.Client
	store   stores.Store
	log     *telemetry.Logger
	metrics *telemetry.Metrics

	// mu serializes entry mutations per process. Entry sets are tiny and
	// mutated rarely (operator commands), so one lock is enough.
	mu sync.Mutex
}

// NewManager builds a panel manager over the given client and store.
func NewManager(client remote.Client, store stores.Store, log *telemetry.Logger, metrics *telemetry.Metrics) *Manager {
	return &Manager{
		client:  client,
		store:   store,
		log:     log.NewComponentLogger("panel"),
		metrics: metrics,
	}
}

// AddRole adds a selectable role to the guild's panel, or updates its
// group, label, and emoji if already present. New entries append at the
// end of their guild's order.
func (m *Manager) AddRole(ctx context.Context, guildID, roleID, groupKey, label, emoji string) error {
	return m.mutateEntries(ctx, guildID, func(entries []stores.ReactionRoleEntry) ([]stores.ReactionRoleEntry, error) {
		for i := range entries {
			if entries[i].RoleID == roleID {
				entries[i].GroupKey = groupKey
				entries[i].Label = label
				entries[i].Emoji = emoji
				return entries, nil
			}
		}
		return append(entries, stores.ReactionRoleEntry{
			GuildID:  guildID,
			RoleID:   roleID,
			GroupKey: groupKey,
			Enabled:  true,
			Label:    label,
			Emoji:    emoji,
		}), nil
	})
}

// RemoveRole deletes a role from the panel.
func (m *Manager) RemoveRole(ctx context.Context, guildID, roleID string) error {
	return m.mutateEntries(ctx, guildID, func(entries []stores.ReactionRoleEntry) ([]stores.ReactionRoleEntry, error) {
		out := entries[:0]
		found := false
		for _, e := range entries {
			if e.RoleID == roleID {
				found = true
				continue
			}
			out = append(out, e)
		}
		if !found {
			return nil, ErrRoleNotConfigured
		}
		return out, nil
	})
}

// SetEnabled toggles whether a configured role can be selected.
func (m *Manager) SetEnabled(ctx context.Context, guildID, roleID string, enabled bool) error {
	return m.mutateEntries(ctx, guildID, func(entries []stores.ReactionRoleEntry) ([]stores.ReactionRoleEntry, error) {
		for i := range entries {
			if entries[i].RoleID == roleID {
				entries[i].Enabled = enabled
				return entries, nil
			}
		}
		return nil, ErrRoleNotConfigured
	})
}

// Relabel updates a configured role's label and emoji.
func (m *Manager) Relabel(ctx context.Context, guildID, roleID, label, emoji string) error {
	return m.mutateEntries(ctx, guildID, func(entries []stores.ReactionRoleEntry) ([]stores.ReactionRoleEntry, error) {
		for i := range entries {
			if entries[i].RoleID == roleID {
				entries[i].Label = label
				entries[i].Emoji = emoji
				return entries, nil
			}
		}
		return nil, ErrRoleNotConfigured
	})
}

// Reorder moves a configured role to position newIndex (clamped to the
// valid range) within its guild's order.
func (m *Manager) Reorder(ctx context.Context, guildID, roleID string, newIndex int) error {
	return m.mutateEntries(ctx, guildID, func(entries []stores.ReactionRoleEntry) ([]stores.ReactionRoleEntry, error) {
		from := -1
		for i := range entries {
			if entries[i].RoleID == roleID {
				from = i
				break
			}
		}
		if from == -1 {
			return nil, ErrRoleNotConfigured
		}
		if newIndex < 0 {
			newIndex = 0
		}
		if newIndex >= len(entries) {
			newIndex = len(entries) - 1
		}
		moved := entries[from]
		entries = append(entries[:from], entries[from+1:]...)
		entries = append(entries[:newIndex], append([]stores.ReactionRoleEntry{moved}, entries[newIndex:]...)...)
		return entries, nil
	})
}

// Entries returns the guild's panel entries in order.
func (m *Manager) Entries(ctx context.Context, guildID string) ([]stores.ReactionRoleEntry, error) {
	return m.store.ListEntries(ctx, guildID)
}

// mutateEntries loads the guild's entries, applies fn, renormalizes
// OrderIndex to dense 0..n-1, and writes the set back wholesale.
func (m *Manager) mutateEntries(ctx context.Context, guildID string, fn func([]stores.ReactionRoleEntry) ([]stores.ReactionRoleEntry, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.store.ListEntries(ctx, guildID)
	if err != nil {
		return fmt.Errorf("loading panel entries: %w", err)
	}
	entries, err = fn(entries)
	if err != nil {
		return err
	}
	for i := range entries {
		entries[i].OrderIndex = i
	}
	if err := m.store.ReplaceEntries(ctx, guildID, entries); err != nil {
		return fmt.Errorf("writing panel entries: %w", err)
	}
	return nil
}

// Publish renders the panel from the guild's enabled entries and delivers
// it: editing the recorded live message when possible, otherwise creating
// a fresh message (and the panel channel, if the guild lacks one) and
// overwriting the PanelRecord.
func (m *Manager) Publish(ctx context.Context, guildID string) error {
	entries, err := m.store.ListEntries(ctx, guildID)
	if err != nil {
		return fmt.Errorf("loading panel entries: %w", err)
	}
	content := renderPanel(entries)

	record, err := m.store.GetPanelRecord(ctx, guildID, DefaultPanelKey)
	if err != nil {
		return fmt.Errorf("loading panel record: %w", err)
	}

	if record != nil {
		err := m.client.EditMessage(ctx, record.ChannelID, record.MessageID, content)
		if err == nil {
			m.metrics.PanelPublished("edit")
			return nil
		}
		if !isGone(err) {
			return fmt.Errorf("editing panel message: %w", err)
		}
		m.log.WithGuildID(guildID).Info("panel message is gone, recreating")
	}

	channelID, err := m.ensureChannel(ctx, guildID, record)
	if err != nil {
		return err
	}
	msg, err := m.client.CreateMessage(ctx, channelID, content)
	if err != nil {
		return fmt.Errorf("creating panel message: %w", err)
	}
	err = m.store.UpsertPanelRecord(ctx, &stores.PanelRecord{
		PanelKey:  DefaultPanelKey,
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: msg.ID,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("writing panel record: %w", err)
	}
	m.metrics.PanelPublished("recreate")
	return nil
}

// ensureChannel finds the panel channel, preferring the recorded one, then
// a channel named after the panel, and finally creating one.
func (m *Manager) ensureChannel(ctx context.Context, guildID string, record *stores.PanelRecord) (string, error) {
	_, channels, err := m.client.ListChannels(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("listing channels: %w", err)
	}
	if record != nil {
		for _, ch := range channels {
			if ch.ID == record.ChannelID {
				return ch.ID, nil
			}
		}
	}
	for _, ch := range channels {
		if ch.Name == defaultChannelName && ch.Kind == remote.ChannelKindText {
			return ch.ID, nil
		}
	}
	created, err := m.client.CreateChannel(ctx, guildID, "", defaultChannelName, remote.ChannelKindText)
	if err != nil {
		return "", fmt.Errorf("creating panel channel: %w", err)
	}
	return created.ID, nil
}

// ApplySelection grants or revokes a panel role for a member and returns
// the member's resulting selection set (the configured, enabled roles they
// hold afterwards). The role must be configured, enabled, not managed by
// an integration, and sit below the engine's own highest role.
func (m *Manager) ApplySelection(ctx context.Context, guildID, userID, roleID string, desired bool) ([]string, error) {
	entries, err := m.store.ListEntries(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("loading panel entries: %w", err)
	}
	var entry *stores.ReactionRoleEntry
	for i := range entries {
		if entries[i].RoleID == roleID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return nil, ErrRoleNotConfigured
	}
	if !entry.Enabled {
		return nil, ErrRoleDisabled
	}

	if err := m.checkAssignable(ctx, guildID, roleID); err != nil {
		return nil, err
	}

	if desired {
		err = m.client.AddMemberRole(ctx, guildID, userID, roleID)
	} else {
		err = m.client.RemoveMemberRole(ctx, guildID, userID, roleID)
	}
	if err != nil {
		return nil, fmt.Errorf("applying selection: %w", err)
	}

	return m.selectionSet(ctx, guildID, userID, entries)
}

// Clear removes every enabled configured role from a member in one pass
// and returns the roles that were actually removed.
func (m *Manager) Clear(ctx context.Context, guildID, userID string) ([]string, error) {
	entries, err := m.store.ListEntries(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("loading panel entries: %w", err)
	}
	member, err := m.client.GuildMember(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading member: %w", err)
	}
	held := make(map[string]bool, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		held[id] = true
	}

	var removed []string
	for _, e := range entries {
		if !e.Enabled || !held[e.RoleID] {
			continue
		}
		if err := m.checkAssignable(ctx, guildID, e.RoleID); err != nil {
			continue
		}
		if err := m.client.RemoveMemberRole(ctx, guildID, userID, e.RoleID); err != nil {
			return removed, fmt.Errorf("removing role %s: %w", e.RoleID, err)
		}
		removed = append(removed, e.RoleID)
	}
	return removed, nil
}

// Repair forces a publish regardless of the record's state, used after a
// missing or deleted panel message is detected.
func (m *Manager) Repair(ctx context.Context, guildID string) error {
	if err := m.store.DeletePanelRecord(ctx, guildID, DefaultPanelKey); err != nil {
		return fmt.Errorf("clearing panel record: %w", err)
	}
	return m.Publish(ctx, guildID)
}

// RepairAll republishes every known panel, used at startup to sweep up
// messages deleted while the engine was down.
func (m *Manager) RepairAll(ctx context.Context) error {
	records, err := m.store.ListPanelRecords(ctx)
	if err != nil {
		return fmt.Errorf("listing panel records: %w", err)
	}
	var firstErr error
	for _, rec := range records {
		if err := m.Publish(ctx, rec.GuildID); err != nil {
			m.log.WithGuildID(rec.GuildID).WithError(err).Warn("panel repair failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// checkAssignable enforces the protection rules: no managed roles, and
// nothing at or above the engine's own highest role.
func (m *Manager) checkAssignable(ctx context.Context, guildID, roleID string) error {
	roles, err := m.client.ListRoles(ctx, guildID)
	if err != nil {
		return fmt.Errorf("listing roles: %w", err)
	}
	var target *remote.Role
	byID := make(map[string]remote.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
		if r.ID == roleID {
			rr := r
			target = &rr
		}
	}
	if target == nil {
		return ErrRoleNotConfigured
	}
	if target.Managed {
		return ErrRoleProtected
	}

	bot, err := m.client.BotMember(ctx, guildID)
	if err != nil {
		return fmt.Errorf("loading bot member: %w", err)
	}
	botTop := -1
	for _, id := range bot.RoleIDs {
		if r, ok := byID[id]; ok && r.Position > botTop {
			botTop = r.Position
		}
	}
	if target.Position >= botTop {
		return ErrRoleProtected
	}
	return nil
}

// selectionSet intersects a member's roles with the enabled entries.
func (m *Manager) selectionSet(ctx context.Context, guildID, userID string, entries []stores.ReactionRoleEntry) ([]string, error) {
	member, err := m.client.GuildMember(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading member: %w", err)
	}
	held := make(map[string]bool, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		held[id] = true
	}
	var out []string
	for _, e := range entries {
		if e.Enabled && held[e.RoleID] {
			out = append(out, e.RoleID)
		}
	}
	return out, nil
}

// isGone reports whether an edit failed because the target no longer
// exists.
func isGone(err error) bool {
	var rerr *remote.Error
	if errors.As(err, &rerr) {
		return rerr.Code == remote.ErrCodeNotFound
	}
	return false
}
