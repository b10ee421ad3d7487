package leveling

import (
	"encoding/json"
	"fmt"

	"github.com/guildforge/guildforge/pkg/stores"
)

// Tier is one rank in a guild's progression table.
type Tier struct {
	Threshold    int64
	RoleName     string
	RoleID       string
	Capabilities []string
}

// TierTable is a guild's ordered progression table. Thresholds are
// strictly increasing; index 0 is the lowest rank.
type TierTable struct {
	Tiers []Tier
}

// Validate checks the strictly-increasing threshold invariant.
func (t *TierTable) Validate() error {
	var prev int64 = -1
	for i, tier := range t.Tiers {
		if tier.Threshold <= prev {
			return fmt.Errorf("tier %d: threshold %d is not strictly greater than %d",
				i, tier.Threshold, prev)
		}
		prev = tier.Threshold
	}
	return nil
}

// TierForXP returns the index of the highest tier whose threshold is at
// most xp, or -1 when xp is below every threshold. A linear scan is
// deliberate: tables are small and the scan preserves ordering bugs as
// loudly as possible.
func (t *TierTable) TierForXP(xp int64) int {
	result := -1
	for i, tier := range t.Tiers {
		if tier.Threshold > xp {
			break
		}
		result = i
	}
	return result
}

// XPForNext returns how much more xp is needed to reach the tier above
// current, or 0 when current is the top tier.
func (t *TierTable) XPForNext(current int, xp int64) int64 {
	next := current + 1
	if next < 0 || next >= len(t.Tiers) {
		return 0
	}
	remaining := t.Tiers[next].Threshold - xp
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DefaultThresholds produces n thresholds on a quadratic curve, matching
// the platform-typical cost of roughly 100*level^2 xp per rank.
func DefaultThresholds(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		level := int64(i + 1)
		out[i] = 100 * level * level
	}
	return out
}

// tableFromRows converts persisted tier rows into a table. Rows arrive in
// Idx order from the store.
func tableFromRows(rows []stores.TierRow) (*TierTable, error) {
	t := &TierTable{Tiers: make([]Tier, 0, len(rows))}
	for _, row := range rows {
		var caps []string
		if row.Capabilities != "" {
			if err := json.Unmarshal([]byte(row.Capabilities), &caps); err != nil {
				return nil, fmt.Errorf("tier %d: decoding capabilities: %w", row.Idx, err)
			}
		}
		t.Tiers = append(t.Tiers, Tier{
			Threshold:    row.Threshold,
			RoleName:     row.RoleName,
			RoleID:       row.RoleID,
			Capabilities: caps,
		})
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// rowsFromTable converts a table into persistence rows for a wholesale
// replace.
func rowsFromTable(guildID string, t *TierTable) ([]stores.TierRow, error) {
	rows := make([]stores.TierRow, 0, len(t.Tiers))
	for i, tier := range t.Tiers {
		caps, err := json.Marshal(tier.Capabilities)
		if err != nil {
			return nil, fmt.Errorf("tier %d: encoding capabilities: %w", i, err)
		}
		rows = append(rows, stores.TierRow{
			GuildID:      guildID,
			Idx:          i,
			Threshold:    tier.Threshold,
			RoleName:     tier.RoleName,
			RoleID:       tier.RoleID,
			Capabilities: string(caps),
		})
	}
	return rows, nil
}
