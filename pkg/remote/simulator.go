package remote

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Simulator is an in-memory Client. It backs `guildforge apply --dry-run`
// and the engine tests: it applies every mutation to an in-memory guild
// model, counts mutating calls, and can be told to fail specific
// operations.
type Simulator struct {
	mu        sync.Mutex
	nextID    int
	guilds    map[string]*simGuild
	mutations int
	failures  map[string][]error
}

type simGuild struct {
	settings   GuildSettings
	roles      []Role
	categories []Category
	channels   []Channel
	overwrites map[string][]Overwrite       // channelID -> last applied set
	messages   map[string]map[string]string // channelID -> messageID -> content
	members    map[string]*Member
	botUserID  string
}

// NewSimulator creates an empty simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		guilds:   make(map[string]*simGuild),
		failures: make(map[string][]error),
	}
}

// AddGuild registers a guild with the simulator.
func (s *Simulator) AddGuild(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureGuild(guildID)
}

func (s *Simulator) ensureGuild(guildID string) *simGuild {
	g, ok := s.guilds[guildID]
	if !ok {
		g = &simGuild{
			overwrites: make(map[string][]Overwrite),
			messages:   make(map[string]map[string]string),
			members:    make(map[string]*Member),
		}
		// Every guild carries the platform's implicit base role.
		g.roles = append(g.roles, Role{ID: s.newID(), Name: EveryoneRoleName, Position: 0})
		s.guilds[guildID] = g
	}
	return g
}

func (s *Simulator) newID() string {
	s.nextID++
	return strconv.Itoa(1000 + s.nextID)
}

// FailNext queues an error for the next invocation of operation.
// Queued errors are consumed in order.
func (s *Simulator) FailNext(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[operation] = append(s.failures[operation], err)
}

func (s *Simulator) takeFailure(operation string) error {
	queue := s.failures[operation]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	s.failures[operation] = queue[1:]
	return err
}

// MutatingCalls returns the number of mutating calls applied so far.
func (s *Simulator) MutatingCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutations
}

// SeedRole inserts a pre-existing role, for repair and reconciliation tests.
func (s *Simulator) SeedRole(guildID, name string, position int, managed bool) Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.ensureGuild(guildID)
	role := Role{ID: s.newID(), Name: name, Position: position, Managed: managed}
	g.roles = append(g.roles, role)
	return role
}

// SeedMember inserts a member with the given roles.
func (s *Simulator) SeedMember(guildID, userID string, roleIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.ensureGuild(guildID)
	g.members[userID] = &Member{UserID: userID, RoleIDs: append([]string(nil), roleIDs...)}
}

// SetBotMember declares which member is the engine's own identity.
func (s *Simulator) SetBotMember(guildID, userID string, roleIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.ensureGuild(guildID)
	g.botUserID = userID
	g.members[userID] = &Member{UserID: userID, RoleIDs: append([]string(nil), roleIDs...)}
}

// MemberRoles returns a copy of a member's role IDs.
func (s *Simulator) MemberRoles(guildID, userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.ensureGuild(guildID)
	m, ok := g.members[userID]
	if !ok {
		return nil
	}
	return append([]string(nil), m.RoleIDs...)
}

// MessageContent returns the content of a stored message.
func (s *Simulator) MessageContent(channelID, messageID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guilds {
		if msgs, ok := g.messages[channelID]; ok {
			content, ok := msgs[messageID]
			return content, ok
		}
	}
	return "", false
}

// DeleteMessage drops a stored message, simulating external deletion.
func (s *Simulator) DeleteMessage(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guilds {
		if msgs, ok := g.messages[channelID]; ok {
			delete(msgs, messageID)
		}
	}
}

// UpdateGuildSettings implements Client.
func (s *Simulator) UpdateGuildSettings(ctx context.Context, guildID string, settings GuildSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("update_guild_settings"); err != nil {
		return err
	}
	s.mutations++
	s.ensureGuild(guildID).settings = settings
	return nil
}

// CreateRole implements Client.
func (s *Simulator) CreateRole(ctx context.Context, guildID string, params CreateRoleParams) (*Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("create_role"); err != nil {
		return nil, err
	}
	s.mutations++
	g := s.ensureGuild(guildID)
	role := Role{
		ID:          s.newID(),
		Name:        params.Name,
		Color:       params.Color,
		Hoisted:     params.Hoisted,
		Mentionable: params.Mentionable,
		Position:    len(g.roles),
	}
	g.roles = append(g.roles, role)
	return &role, nil
}

// ReorderRoles implements Client.
func (s *Simulator) ReorderRoles(ctx context.Context, guildID string, positions []RolePosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("reorder_roles"); err != nil {
		return err
	}
	s.mutations++
	g := s.ensureGuild(guildID)
	for _, p := range positions {
		for i := range g.roles {
			if g.roles[i].ID == p.RoleID {
				g.roles[i].Position = p.Position
			}
		}
	}
	return nil
}

// CreateCategory implements Client.
func (s *Simulator) CreateCategory(ctx context.Context, guildID, name string, position int) (*Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("create_category"); err != nil {
		return nil, err
	}
	s.mutations++
	g := s.ensureGuild(guildID)
	category := Category{ID: s.newID(), Name: name, Position: position}
	g.categories = append(g.categories, category)
	return &category, nil
}

// CreateChannel implements Client.
func (s *Simulator) CreateChannel(ctx context.Context, guildID, categoryID, name string, kind ChannelKind) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("create_channel"); err != nil {
		return nil, err
	}
	s.mutations++
	g := s.ensureGuild(guildID)
	channel := Channel{
		ID:         s.newID(),
		Name:       name,
		Kind:       kind,
		CategoryID: categoryID,
		Position:   len(g.channels),
	}
	g.channels = append(g.channels, channel)
	return &channel, nil
}

// SetChannelOverwrites implements Client.
func (s *Simulator) SetChannelOverwrites(ctx context.Context, guildID, channelID string, overwrites []Overwrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("set_channel_overwrites"); err != nil {
		return err
	}
	s.mutations++
	g := s.ensureGuild(guildID)
	g.overwrites[channelID] = append([]Overwrite(nil), overwrites...)
	return nil
}

// ChannelOverwrites returns the last overwrite set applied to a channel.
func (s *Simulator) ChannelOverwrites(channelID string) []Overwrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guilds {
		if ows, ok := g.overwrites[channelID]; ok {
			return append([]Overwrite(nil), ows...)
		}
	}
	return nil
}

// CreateMessage implements Client.
func (s *Simulator) CreateMessage(ctx context.Context, channelID, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("create_message"); err != nil {
		return nil, err
	}
	s.mutations++
	for _, g := range s.guilds {
		for _, ch := range g.channels {
			if ch.ID == channelID {
				if g.messages[channelID] == nil {
					g.messages[channelID] = make(map[string]string)
				}
				id := s.newID()
				g.messages[channelID][id] = content
				return &Message{ID: id, ChannelID: channelID}, nil
			}
		}
	}
	return nil, NewPermanentError("channel not found", nil).
		WithOperation("create_message").WithResource(channelID).WithCode(ErrCodeNotFound)
}

// EditMessage implements Client.
func (s *Simulator) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("edit_message"); err != nil {
		return err
	}
	for _, g := range s.guilds {
		if msgs, ok := g.messages[channelID]; ok {
			if _, ok := msgs[messageID]; ok {
				s.mutations++
				msgs[messageID] = content
				return nil
			}
		}
	}
	return NewPermanentError("message not found", nil).
		WithOperation("edit_message").WithResource(messageID).WithCode(ErrCodeNotFound)
}

// AddMemberRole implements Client.
func (s *Simulator) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("add_member_role"); err != nil {
		return err
	}
	g := s.ensureGuild(guildID)
	m, ok := g.members[userID]
	if !ok {
		return NewPermanentError("member not found", nil).
			WithOperation("add_member_role").WithResource(userID).WithCode(ErrCodeNotFound)
	}
	for _, id := range m.RoleIDs {
		if id == roleID {
			return nil
		}
	}
	s.mutations++
	m.RoleIDs = append(m.RoleIDs, roleID)
	return nil
}

// RemoveMemberRole implements Client.
func (s *Simulator) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("remove_member_role"); err != nil {
		return err
	}
	g := s.ensureGuild(guildID)
	m, ok := g.members[userID]
	if !ok {
		return NewPermanentError("member not found", nil).
			WithOperation("remove_member_role").WithResource(userID).WithCode(ErrCodeNotFound)
	}
	for i, id := range m.RoleIDs {
		if id == roleID {
			s.mutations++
			m.RoleIDs = append(m.RoleIDs[:i], m.RoleIDs[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListRoles implements Client.
func (s *Simulator) ListRoles(ctx context.Context, guildID string) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("list_roles"); err != nil {
		return nil, err
	}
	g := s.ensureGuild(guildID)
	return append([]Role(nil), g.roles...), nil
}

// ListChannels implements Client.
func (s *Simulator) ListChannels(ctx context.Context, guildID string) ([]Category, []Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("list_channels"); err != nil {
		return nil, nil, err
	}
	g := s.ensureGuild(guildID)
	return append([]Category(nil), g.categories...), append([]Channel(nil), g.channels...), nil
}

// GuildMember implements Client.
func (s *Simulator) GuildMember(ctx context.Context, guildID, userID string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("guild_member"); err != nil {
		return nil, err
	}
	g := s.ensureGuild(guildID)
	m, ok := g.members[userID]
	if !ok {
		return nil, NewPermanentError("member not found", nil).
			WithOperation("guild_member").WithResource(userID).WithCode(ErrCodeNotFound)
	}
	cp := &Member{UserID: m.UserID, RoleIDs: append([]string(nil), m.RoleIDs...)}
	return cp, nil
}

// BotMember implements Client.
func (s *Simulator) BotMember(ctx context.Context, guildID string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("bot_member"); err != nil {
		return nil, err
	}
	g := s.ensureGuild(guildID)
	if g.botUserID == "" {
		return nil, NewPermanentError("bot member not configured", nil).
			WithOperation("bot_member").WithCode(ErrCodeNotFound)
	}
	m := g.members[g.botUserID]
	if m == nil {
		return nil, fmt.Errorf("bot member %s missing from guild %s", g.botUserID, guildID)
	}
	cp := &Member{UserID: m.UserID, RoleIDs: append([]string(nil), m.RoleIDs...)}
	return cp, nil
}

var _ Client = (*Simulator)(nil)
