package remote

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/guildforge/guildforge/pkg/telemetry"
)

// Limiter is the process-wide capacity gate for the platform API. All
// callers (orchestration, leveling reconciliation, panel publishing)
// acquire from the same limiter before issuing a call; rate.Limiter
// serves waiters in FIFO order, so no caller class starves another.
type Limiter struct {
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

// NewLimiter creates a limiter allowing callsPerSecond sustained calls
// with the given burst.
func NewLimiter(callsPerSecond float64, burst int, metrics *telemetry.Metrics) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), burst),
		metrics: metrics,
	}
}

// Acquire blocks until a call slot is available or the context is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.limiter.Allow() {
		return nil
	}
	if l.metrics != nil {
		l.metrics.RateLimitWait()
	}
	return l.limiter.Wait(ctx)
}

// Throttled wraps a Client so every call first acquires capacity from the
// shared limiter and is recorded in metrics. The engine, leveling, and
// panel components all hold the same Throttled instance.
type Throttled struct {
	inner   Client
	limiter *Limiter
	metrics *telemetry.Metrics
}

// NewThrottled creates a rate-limited, instrumented view of a Client.
func NewThrottled(inner Client, limiter *Limiter, metrics *telemetry.Metrics) *Throttled {
	return &Throttled{inner: inner, limiter: limiter, metrics: metrics}
}

func (t *Throttled) call(ctx context.Context, operation string, fn func() error) error {
	if err := t.limiter.Acquire(ctx); err != nil {
		return NewTransientError("rate limiter wait interrupted", err).
			WithOperation(operation).WithCode(ErrCodeTimeout)
	}

	start := time.Now()
	err := fn()

	if t.metrics != nil {
		status := "ok"
		if err != nil {
			status = string(classOf(err))
		}
		t.metrics.RemoteCall(operation, status, time.Since(start))
	}
	return err
}

func classOf(err error) ErrorClass {
	switch {
	case IsRateLimited(err):
		return ErrorClassRateLimited
	case IsTransient(err):
		return ErrorClassTransient
	default:
		return ErrorClassPermanent
	}
}

// UpdateGuildSettings implements Client.
func (t *Throttled) UpdateGuildSettings(ctx context.Context, guildID string, settings GuildSettings) error {
	return t.call(ctx, "update_guild_settings", func() error {
		return t.inner.UpdateGuildSettings(ctx, guildID, settings)
	})
}

// CreateRole implements Client.
func (t *Throttled) CreateRole(ctx context.Context, guildID string, params CreateRoleParams) (*Role, error) {
	var role *Role
	err := t.call(ctx, "create_role", func() error {
		var err error
		role, err = t.inner.CreateRole(ctx, guildID, params)
		return err
	})
	return role, err
}

// ReorderRoles implements Client.
func (t *Throttled) ReorderRoles(ctx context.Context, guildID string, positions []RolePosition) error {
	return t.call(ctx, "reorder_roles", func() error {
		return t.inner.ReorderRoles(ctx, guildID, positions)
	})
}

// CreateCategory implements Client.
func (t *Throttled) CreateCategory(ctx context.Context, guildID, name string, position int) (*Category, error) {
	var category *Category
	err := t.call(ctx, "create_category", func() error {
		var err error
		category, err = t.inner.CreateCategory(ctx, guildID, name, position)
		return err
	})
	return category, err
}

// CreateChannel implements Client.
func (t *Throttled) CreateChannel(ctx context.Context, guildID, categoryID, name string, kind ChannelKind) (*Channel, error) {
	var channel *Channel
	err := t.call(ctx, "create_channel", func() error {
		var err error
		channel, err = t.inner.CreateChannel(ctx, guildID, categoryID, name, kind)
		return err
	})
	return channel, err
}

// SetChannelOverwrites implements Client.
func (t *Throttled) SetChannelOverwrites(ctx context.Context, guildID, channelID string, overwrites []Overwrite) error {
	return t.call(ctx, "set_channel_overwrites", func() error {
		return t.inner.SetChannelOverwrites(ctx, guildID, channelID, overwrites)
	})
}

// CreateMessage implements Client.
func (t *Throttled) CreateMessage(ctx context.Context, channelID, content string) (*Message, error) {
	var message *Message
	err := t.call(ctx, "create_message", func() error {
		var err error
		message, err = t.inner.CreateMessage(ctx, channelID, content)
		return err
	})
	return message, err
}

// EditMessage implements Client.
func (t *Throttled) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	return t.call(ctx, "edit_message", func() error {
		return t.inner.EditMessage(ctx, channelID, messageID, content)
	})
}

// AddMemberRole implements Client.
func (t *Throttled) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return t.call(ctx, "add_member_role", func() error {
		return t.inner.AddMemberRole(ctx, guildID, userID, roleID)
	})
}

// RemoveMemberRole implements Client.
func (t *Throttled) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return t.call(ctx, "remove_member_role", func() error {
		return t.inner.RemoveMemberRole(ctx, guildID, userID, roleID)
	})
}

// ListRoles implements Client.
func (t *Throttled) ListRoles(ctx context.Context, guildID string) ([]Role, error) {
	var roles []Role
	err := t.call(ctx, "list_roles", func() error {
		var err error
		roles, err = t.inner.ListRoles(ctx, guildID)
		return err
	})
	return roles, err
}

// ListChannels implements Client.
func (t *Throttled) ListChannels(ctx context.Context, guildID string) ([]Category, []Channel, error) {
	var categories []Category
	var channels []Channel
	err := t.call(ctx, "list_channels", func() error {
		var err error
		categories, channels, err = t.inner.ListChannels(ctx, guildID)
		return err
	})
	return categories, channels, err
}

// GuildMember implements Client.
func (t *Throttled) GuildMember(ctx context.Context, guildID, userID string) (*Member, error) {
	var member *Member
	err := t.call(ctx, "guild_member", func() error {
		var err error
		member, err = t.inner.GuildMember(ctx, guildID, userID)
		return err
	})
	return member, err
}

// BotMember implements Client.
func (t *Throttled) BotMember(ctx context.Context, guildID string) (*Member, error) {
	var member *Member
	err := t.call(ctx, "bot_member", func() error {
		var err error
		member, err = t.inner.BotMember(ctx, guildID)
		return err
	})
	return member, err
}

var _ Client = (*Throttled)(nil)
