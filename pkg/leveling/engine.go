package leveling

import (
	"context"
	"fmt"
	"sync"

	"github.com/guildforge/guildforge/pkg/remote"
	"github.com/guildforge/guildforge/pkg/stores"
	"github.com/guildforge/guildforge/pkg/telemetry"
)

// Engine grants XP and reconciles tier reward roles. Grants to the same
// profile are serialized; different profiles proceed concurrently.
type Engine struct {
	client  remote.Client
	store   stores.Store
	log     *telemetry.Logger
	metrics *telemetry.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine builds a leveling engine over the given client and store.
func NewEngine(client remote.Client, store stores.Store, log *telemetry.Logger, metrics *telemetry.Metrics) *Engine {
	return &Engine{
		client:  client,
		store:   store,
		log:     log.NewComponentLogger("leveling"),
		metrics: metrics,
		locks:   make(map[string]*sync.Mutex),
	}
}

// GrantResult is the outcome of one XP grant.
type GrantResult struct {
	Profile      *stores.LevelProfile
	PreviousTier int
	NewTier      int
	TierChanged  bool

	// ReconcileErr is set when the tier crossed but the role mutation
	// failed. The XP write has already succeeded; role state self-heals
	// on the next crossing or an explicit Resync.
	ReconcileErr error
}

// GrantXP adds amount to a member's XP, recomputes the tier, and on a
// crossing reconciles reward roles (add the new tier's role first, then
// remove the previous tier's). An amount of zero or less is a no-op that
// returns the current profile; XP never decreases through this path.
func (e *Engine) GrantXP(ctx context.Context, guildID, userID string, amount int64) (*GrantResult, error) {
	unlock := e.lockProfile(guildID, userID)
	defer unlock()

	profile, err := e.store.GetProfile(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	if amount <= 0 {
		return &GrantResult{
			Profile:      profile,
			PreviousTier: profile.CurrentTier,
			NewTier:      profile.CurrentTier,
		}, nil
	}

	table, err := e.tierTable(ctx, guildID)
	if err != nil {
		return nil, err
	}

	previousTier := profile.CurrentTier
	profile.XP += amount
	newTier := table.TierForXP(profile.XP)
	profile.CurrentTier = newTier

	if err := e.store.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("writing profile: %w", err)
	}
	e.metrics.XPGranted()

	result := &GrantResult{
		Profile:      profile,
		PreviousTier: previousTier,
		NewTier:      newTier,
		TierChanged:  newTier > previousTier,
	}
	if !result.TierChanged {
		return result, nil
	}

	e.metrics.TierCrossed()
	result.ReconcileErr = e.reconcile(ctx, guildID, userID, table, previousTier, newTier)
	if result.ReconcileErr != nil {
		e.metrics.Reconciliation("failed")
		e.log.WithGuildID(guildID).WithUserID(userID).WithError(result.ReconcileErr).
			Warn("tier role reconciliation failed, xp state already committed")
	} else {
		e.metrics.Reconciliation("succeeded")
	}
	return result, nil
}

// reconcile moves a member from the previous tier's role to the new
// tier's. Add first, remove second, so the member is never transiently
// role-less. Only the previous tier's own reward role is removed; managed
// roles and anything else the member holds are left alone.
func (e *Engine) reconcile(ctx context.Context, guildID, userID string, table *TierTable, previousTier, newTier int) error {
	if newTier < 0 || newTier >= len(table.Tiers) {
		return nil
	}

	newRoleID := table.Tiers[newTier].RoleID
	if newRoleID == "" {
		return fmt.Errorf("tier %d has no reward role mapped", newTier)
	}
	if err := e.client.AddMemberRole(ctx, guildID, userID, newRoleID); err != nil {
		return fmt.Errorf("adding role for tier %d: %w", newTier, err)
	}

	if previousTier < 0 || previousTier >= len(table.Tiers) {
		return nil
	}
	prevRoleID := table.Tiers[previousTier].RoleID
	if prevRoleID == "" || prevRoleID == newRoleID {
		return nil
	}
	if e.roleIsManaged(ctx, guildID, prevRoleID) {
		return nil
	}
	if err := e.client.RemoveMemberRole(ctx, guildID, userID, prevRoleID); err != nil {
		return fmt.Errorf("removing role for tier %d: %w", previousTier, err)
	}
	return nil
}

// roleIsManaged reports whether a role belongs to an integration. Lookup
// failures err on the side of not removing.
func (e *Engine) roleIsManaged(ctx context.Context, guildID, roleID string) bool {
	roles, err := e.client.ListRoles(ctx, guildID)
	if err != nil {
		return true
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r.Managed
		}
	}
	return false
}

// SetTiers replaces a guild's progression table wholesale.
func (e *Engine) SetTiers(ctx context.Context, guildID string, table *TierTable) error {
	if err := table.Validate(); err != nil {
		return err
	}
	rows, err := rowsFromTable(guildID, table)
	if err != nil {
		return err
	}
	return e.store.ReplaceTiers(ctx, guildID, rows)
}

// Tiers returns a guild's progression table.
func (e *Engine) Tiers(ctx context.Context, guildID string) (*TierTable, error) {
	return e.tierTable(ctx, guildID)
}

// SetRoleReward remaps one tier to a new reward role. Existing members are
// not re-reconciled; the mapping affects future crossings only. Use Resync
// to bring a specific member up to date.
func (e *Engine) SetRoleReward(ctx context.Context, guildID string, tier int, roleID string) error {
	table, err := e.tierTable(ctx, guildID)
	if err != nil {
		return err
	}
	if tier < 0 || tier >= len(table.Tiers) {
		return fmt.Errorf("tier %d is out of range (table has %d tiers)", tier, len(table.Tiers))
	}
	return e.store.SetTierRole(ctx, guildID, tier, roleID)
}

// Resync recomputes a member's tier from their XP and fixes their reward
// roles: the current tier's role is added, reward roles of other tiers are
// removed. Unlike GrantXP this returns reconciliation errors to the
// caller, since the caller asked for exactly that work.
func (e *Engine) Resync(ctx context.Context, guildID, userID string) error {
	unlock := e.lockProfile(guildID, userID)
	defer unlock()

	profile, err := e.store.GetProfile(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	table, err := e.tierTable(ctx, guildID)
	if err != nil {
		return err
	}

	tier := table.TierForXP(profile.XP)
	if tier != profile.CurrentTier {
		profile.CurrentTier = tier
		if err := e.store.UpsertProfile(ctx, profile); err != nil {
			return fmt.Errorf("writing profile: %w", err)
		}
	}

	member, err := e.client.GuildMember(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("loading member: %w", err)
	}
	held := make(map[string]bool, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		held[id] = true
	}

	if tier >= 0 {
		wantID := table.Tiers[tier].RoleID
		if wantID != "" && !held[wantID] {
			if err := e.client.AddMemberRole(ctx, guildID, userID, wantID); err != nil {
				return fmt.Errorf("adding role for tier %d: %w", tier, err)
			}
		}
	}

	for i, t := range table.Tiers {
		if i == tier || t.RoleID == "" || !held[t.RoleID] {
			continue
		}
		if e.roleIsManaged(ctx, guildID, t.RoleID) {
			continue
		}
		if err := e.client.RemoveMemberRole(ctx, guildID, userID, t.RoleID); err != nil {
			return fmt.Errorf("removing role for tier %d: %w", i, err)
		}
	}
	return nil
}

// Profile returns a member's level state plus the xp remaining to the next
// tier.
func (e *Engine) Profile(ctx context.Context, guildID, userID string) (*stores.LevelProfile, int64, error) {
	profile, err := e.store.GetProfile(ctx, guildID, userID)
	if err != nil {
		return nil, 0, err
	}
	table, err := e.tierTable(ctx, guildID)
	if err != nil {
		return nil, 0, err
	}
	return profile, table.XPForNext(profile.CurrentTier, profile.XP), nil
}

// Leaderboard returns a guild's top profiles by XP.
func (e *Engine) Leaderboard(ctx context.Context, guildID string, limit int) ([]*stores.LevelProfile, error) {
	return e.store.Leaderboard(ctx, guildID, limit)
}

func (e *Engine) tierTable(ctx context.Context, guildID string) (*TierTable, error) {
	rows, err := e.store.GetTiers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("loading tiers: %w", err)
	}
	return tableFromRows(rows)
}

func (e *Engine) lockProfile(guildID, userID string) func() {
	key := guildID + "/" + userID
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}
