package remote

import "context"

// Client is the capability interface to the platform API. Every call may
// fail with a classified *Error: rate-limit signals carry a wait duration
// and are retryable, permission and validation errors are not.
//
// The platform is eventually consistent; reads issued immediately after
// writes may lag. Callers that need read-your-writes must rely on the
// identifiers returned from the mutating calls instead.
type Client interface {
	// UpdateGuildSettings applies guild-level identity settings.
	UpdateGuildSettings(ctx context.Context, guildID string, settings GuildSettings) error

	// CreateRole creates a role and returns it with its platform ID.
	CreateRole(ctx context.Context, guildID string, params CreateRoleParams) (*Role, error)

	// ReorderRoles applies the given hierarchy positions in one call.
	ReorderRoles(ctx context.Context, guildID string, positions []RolePosition) error

	// CreateCategory creates a channel category.
	CreateCategory(ctx context.Context, guildID, name string, position int) (*Category, error)

	// CreateChannel creates a channel, optionally under a category.
	CreateChannel(ctx context.Context, guildID, categoryID, name string, kind ChannelKind) (*Channel, error)

	// SetChannelOverwrites replaces a channel's permission overwrites.
	SetChannelOverwrites(ctx context.Context, guildID, channelID string, overwrites []Overwrite) error

	// CreateMessage posts a message to a channel.
	CreateMessage(ctx context.Context, channelID, content string) (*Message, error)

	// EditMessage replaces the content of an existing message.
	EditMessage(ctx context.Context, channelID, messageID, content string) error

	// AddMemberRole grants a role to a member.
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error

	// RemoveMemberRole revokes a role from a member.
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error

	// ListRoles returns the guild's roles in hierarchy order.
	ListRoles(ctx context.Context, guildID string) ([]Role, error)

	// ListChannels returns the guild's categories and channels.
	ListChannels(ctx context.Context, guildID string) ([]Category, []Channel, error)

	// GuildMember returns a member's current role state.
	GuildMember(ctx context.Context, guildID, userID string) (*Member, error)

	// BotMember returns the engine's own member record, used for hierarchy
	// checks before role mutations.
	BotMember(ctx context.Context, guildID string) (*Member, error)
}
