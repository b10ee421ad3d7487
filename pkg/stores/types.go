package stores

import (
	"context"
	"time"
)

// LevelProfile is a member's accumulated experience state.
// XP is monotonically non-decreasing; CurrentTier is derived from XP and
// cached here so reads do not rescan the tier table.
type LevelProfile struct {
	GuildID     string    `json:"guild_id"`
	UserID      string    `json:"user_id"`
	XP          int64     `json:"xp"`
	CurrentTier int       `json:"current_tier"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TierRow is one tier of a guild's progression table. Idx is the 0-based
// tier number in threshold order; thresholds are strictly increasing.
type TierRow struct {
	GuildID      string `json:"guild_id"`
	Idx          int    `json:"idx"`
	Threshold    int64  `json:"threshold"`
	RoleName     string `json:"role_name"`
	RoleID       string `json:"role_id,omitempty"`
	Capabilities string `json:"capabilities,omitempty"` // JSON array
}

// ReactionRoleEntry is one selectable role in a guild's panel.
// OrderIndex is dense and unique per guild; the panel manager renormalizes
// it on every mutation.
type ReactionRoleEntry struct {
	GuildID    string `json:"guild_id"`
	RoleID     string `json:"role_id"`
	GroupKey   string `json:"group_key"`
	Enabled    bool   `json:"enabled"`
	OrderIndex int    `json:"order_index"`
	Label      string `json:"label,omitempty"`
	Emoji      string `json:"emoji,omitempty"`
}

// PanelRecord identifies the single live panel message for a guild.
type PanelRecord struct {
	PanelKey  string    `json:"panel_key"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemoteID maps a configuration template key to the remote identifier an
// overhaul run created for it. Repair passes read these to skip
// re-creation of resources that already exist.
type RemoteID struct {
	GuildID   string    `json:"guild_id"`
	Key       string    `json:"key"`  // e.g. "role/Moderator", "category/Support"
	Kind      string    `json:"kind"` // role, category, channel
	RemoteID  string    `json:"remote_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for the persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Level profiles
	GetProfile(ctx context.Context, guildID, userID string) (*LevelProfile, error)
	UpsertProfile(ctx context.Context, profile *LevelProfile) error
	Leaderboard(ctx context.Context, guildID string, limit int) ([]*LevelProfile, error)

	// Tier definitions
	ReplaceTiers(ctx context.Context, guildID string, tiers []TierRow) error
	GetTiers(ctx context.Context, guildID string) ([]TierRow, error)
	SetTierRole(ctx context.Context, guildID string, idx int, roleID string) error

	// Reaction-role entries
	ListEntries(ctx context.Context, guildID string) ([]ReactionRoleEntry, error)
	ReplaceEntries(ctx context.Context, guildID string, entries []ReactionRoleEntry) error

	// Panel records
	GetPanelRecord(ctx context.Context, guildID, panelKey string) (*PanelRecord, error)
	UpsertPanelRecord(ctx context.Context, record *PanelRecord) error
	ListPanelRecords(ctx context.Context) ([]*PanelRecord, error)
	DeletePanelRecord(ctx context.Context, guildID, panelKey string) error

	// Remote identifiers recorded by overhaul runs
	SaveRemoteID(ctx context.Context, id *RemoteID) error
	GetRemoteIDs(ctx context.Context, guildID string) (map[string]string, error)
	ClearRemoteIDs(ctx context.Context, guildID string) error

	// Utility
	HealthCheck(ctx context.Context) error
}
