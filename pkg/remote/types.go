package remote

// ChannelKind is the type of channel to create.
type ChannelKind string

const (
	// ChannelKindText is a text channel.
	ChannelKindText ChannelKind = "text"

	// ChannelKindVoice is a voice channel.
	ChannelKindVoice ChannelKind = "voice"
)

// EveryoneRoleName is the name of the implicit base role every guild has.
// It is never created or deleted; overwrites reference it to hide or mute a
// channel for unprivileged members.
const EveryoneRoleName = "@everyone"

// Role is a role as the platform reports it.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoisted     bool   `json:"hoisted"`
	Mentionable bool   `json:"mentionable"`
	Position    int    `json:"position"`

	// Managed roles belong to integrations and must never be assigned or
	// removed by the engine.
	Managed bool `json:"managed"`
}

// CreateRoleParams are the parameters for creating a role.
type CreateRoleParams struct {
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoisted     bool   `json:"hoisted"`
	Mentionable bool   `json:"mentionable"`
}

// RolePosition pairs a role with its desired hierarchy position.
type RolePosition struct {
	RoleID   string `json:"role_id"`
	Position int    `json:"position"`
}

// Category is a channel category as the platform reports it.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Channel is a channel as the platform reports it.
type Channel struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       ChannelKind `json:"kind"`
	CategoryID string      `json:"category_id,omitempty"`
	Position   int         `json:"position"`
}

// Overwrite is a per-channel permission delta applied on top of role-level
// defaults.
type Overwrite struct {
	RoleID string `json:"role_id"`
	Allow  uint64 `json:"allow"`
	Deny   uint64 `json:"deny"`
}

// Permission bits used in overwrites.
const (
	PermView uint64 = 1 << iota
	PermSendMessages
	PermManageMessages
	PermConnect
	PermSpeak
	PermAddReactions
)

// GuildSettings are the guild-level identity settings the engine manages.
type GuildSettings struct {
	Name                string `json:"name"`
	VerificationTier    int    `json:"verification_tier"`
	ContentFilterTier   int    `json:"content_filter_tier"`
	NotificationDefault int    `json:"notification_default"`
}

// Message is a posted message; the engine only ever needs its identifiers.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// Member is a guild member's role state.
type Member struct {
	UserID  string   `json:"user_id"`
	RoleIDs []string `json:"role_ids"`
}
