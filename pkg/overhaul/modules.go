package overhaul

import (
	"context"
	"fmt"

	"github.com/guildforge/guildforge/pkg/remote"
)

// RegisterDefaultModules installs the built-in handlers for the welcome,
// vipLounge, and gaming features. The reactionRoles handler lives with the
// panel manager and is registered by the caller that owns it.
func (e *Executor) RegisterDefaultModules() {
	e.RegisterModule(FeatureWelcome, ModuleHandlerFunc(e.setupWelcome))
	e.RegisterModule(FeatureVIPLounge, ModuleHandlerFunc(e.setupVIPLounge))
	e.RegisterModule(FeatureGaming, ModuleHandlerFunc(e.setupGaming))
}

// setupWelcome posts the greeting message into the guild's welcome
// channel, creating the channel first if the structure step did not.
func (e *Executor) setupWelcome(ctx context.Context, guildID string, ids IDMap, p StepPayload, stats *RunStats) error {
	channelID := findChannelID(ids, "welcome")
	if channelID == "" {
		var created *remote.Channel
		err := e.withRetry(ctx, "create_channel", stats, func(ctx context.Context) error {
			var err error
			created, err = e.client.CreateChannel(ctx, guildID, "", "welcome", remote.ChannelKindText)
			return err
		})
		if err != nil {
			return fmt.Errorf("creating welcome channel: %w", err)
		}
		channelID = created.ID
		stats.CreatedChannels++
		ids["channel//welcome"] = channelID
		e.recordRemoteID(ctx, guildID, "channel//welcome", "channel", channelID)
	}

	content := "Welcome to the server! Check the channel list to find your way around, " +
		"and pick up your roles in the roles channel."
	if msgID, ok := ids["message/welcome"]; ok {
		return e.withRetry(ctx, "edit_message", stats, func(ctx context.Context) error {
			return e.client.EditMessage(ctx, channelID, msgID, content)
		})
	}
	var msg *remote.Message
	err := e.withRetry(ctx, "create_message", stats, func(ctx context.Context) error {
		var err error
		msg, err = e.client.CreateMessage(ctx, channelID, content)
		return err
	})
	if err != nil {
		return err
	}
	stats.CreatedMessages++
	ids["message/welcome"] = msg.ID
	e.recordRemoteID(ctx, guildID, "message/welcome", "message", msg.ID)
	return nil
}

// setupVIPLounge creates the members-only lounge: a category hidden from
// the base role, visible to protected (staff) roles and a role named VIP
// when the configuration declares one.
func (e *Executor) setupVIPLounge(ctx context.Context, guildID string, ids IDMap, p StepPayload, stats *RunStats) error {
	catID, err := e.ensureCategory(ctx, guildID, "VIP Lounge", ids, stats)
	if err != nil {
		return err
	}

	var overwrites []remote.Overwrite
	if everyoneID, ok := ids[everyoneRoleKey]; ok {
		overwrites = append(overwrites, remote.Overwrite{
			RoleID: everyoneID,
			Deny:   remote.PermView | remote.PermConnect,
		})
	}
	for _, rt := range p.Roles {
		if !rt.Protected && rt.Name != "VIP" {
			continue
		}
		id, ok := ids.RoleID(rt.Name)
		if !ok {
			continue
		}
		overwrites = append(overwrites, remote.Overwrite{
			RoleID: id,
			Allow:  remote.PermView | remote.PermSendMessages | remote.PermConnect | remote.PermSpeak,
		})
	}

	for _, ch := range []struct {
		name string
		kind remote.ChannelKind
	}{
		{"vip-lounge", remote.ChannelKindText},
		{"VIP Voice", remote.ChannelKindVoice},
	} {
		chID, err := e.ensureChannel(ctx, guildID, catID, "VIP Lounge", ch.name, ch.kind, ids, stats)
		if err != nil {
			return err
		}
		if len(overwrites) == 0 {
			continue
		}
		err = e.withRetry(ctx, "set_channel_overwrites", stats, func(ctx context.Context) error {
			return e.client.SetChannelOverwrites(ctx, guildID, chID, overwrites)
		})
		if err != nil {
			return fmt.Errorf("setting overwrites on %q: %w", ch.name, err)
		}
	}
	return nil
}

// setupGaming creates the gaming category with a text channel and a voice
// room.
func (e *Executor) setupGaming(ctx context.Context, guildID string, ids IDMap, p StepPayload, stats *RunStats) error {
	catID, err := e.ensureCategory(ctx, guildID, "Gaming", ids, stats)
	if err != nil {
		return err
	}
	for _, ch := range []struct {
		name string
		kind remote.ChannelKind
	}{
		{"gaming", remote.ChannelKindText},
		{"Game Room", remote.ChannelKindVoice},
	} {
		if _, err := e.ensureChannel(ctx, guildID, catID, "Gaming", ch.name, ch.kind, ids, stats); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) ensureCategory(ctx context.Context, guildID, name string, ids IDMap, stats *RunStats) (string, error) {
	key := "category/" + name
	if id, ok := ids[key]; ok {
		return id, nil
	}
	var created *remote.Category
	err := e.withRetry(ctx, "create_category", stats, func(ctx context.Context) error {
		var err error
		created, err = e.client.CreateCategory(ctx, guildID, name, 0)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("creating category %q: %w", name, err)
	}
	stats.CreatedCategories++
	ids[key] = created.ID
	e.recordRemoteID(ctx, guildID, key, "category", created.ID)
	return created.ID, nil
}

func (e *Executor) ensureChannel(ctx context.Context, guildID, categoryID, categoryName, name string, kind remote.ChannelKind, ids IDMap, stats *RunStats) (string, error) {
	key := "channel/" + categoryName + "/" + name
	if id, ok := ids[key]; ok {
		return id, nil
	}
	var created *remote.Channel
	err := e.withRetry(ctx, "create_channel", stats, func(ctx context.Context) error {
		var err error
		created, err = e.client.CreateChannel(ctx, guildID, categoryID, name, kind)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("creating channel %q: %w", name, err)
	}
	stats.CreatedChannels++
	ids[key] = created.ID
	e.recordRemoteID(ctx, guildID, key, "channel", created.ID)
	return created.ID, nil
}

// findChannelID scans the identifier map for a channel with the given leaf
// name under any category.
func findChannelID(ids IDMap, name string) string {
	if id, ok := ids["channel//"+name]; ok {
		return id
	}
	for key, id := range ids {
		if len(key) > len(name) && key[:8] == "channel/" && key[len(key)-len(name)-1:] == "/"+name {
			return id
		}
	}
	return ""
}
