package stores

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used for rehearsal runs and tests.
// It mirrors the SQLite store's semantics, including the zero profile
// returned for unknown members.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*LevelProfile // guild/user
	tiers    map[string][]TierRow     // guild
	entries  map[string][]ReactionRoleEntry
	panels   map[string]*PanelRecord // guild/panelKey
	remotes  map[string]*RemoteID    // guild/key
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*LevelProfile),
		tiers:    make(map[string][]TierRow),
		entries:  make(map[string][]ReactionRoleEntry),
		panels:   make(map[string]*PanelRecord),
		remotes:  make(map[string]*RemoteID),
	}
}

func (m *MemoryStore) Init(ctx context.Context) error    { return nil }
func (m *MemoryStore) Close() error                      { return nil }
func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (m *MemoryStore) GetProfile(ctx context.Context, guildID, userID string) (*LevelProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[guildID+"/"+userID]; ok {
		cp := *p
		return &cp, nil
	}
	return &LevelProfile{GuildID: guildID, UserID: userID, CurrentTier: -1}, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, profile *LevelProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *profile
	cp.UpdatedAt = time.Now()
	m.profiles[profile.GuildID+"/"+profile.UserID] = &cp
	return nil
}

func (m *MemoryStore) Leaderboard(ctx context.Context, guildID string, limit int) ([]*LevelProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*LevelProfile
	for _, p := range m.profiles {
		if p.GuildID == guildID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ReplaceTiers(ctx context.Context, guildID string, tiers []TierRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers[guildID] = append([]TierRow(nil), tiers...)
	return nil
}

func (m *MemoryStore) GetTiers(ctx context.Context, guildID string) ([]TierRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := append([]TierRow(nil), m.tiers[guildID]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Idx < rows[j].Idx })
	return rows, nil
}

func (m *MemoryStore) SetTierRole(ctx context.Context, guildID string, idx int, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tiers[guildID]
	for i := range rows {
		if rows[i].Idx == idx {
			rows[i].RoleID = roleID
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) ListEntries(ctx context.Context, guildID string) ([]ReactionRoleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append([]ReactionRoleEntry(nil), m.entries[guildID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].OrderIndex < entries[j].OrderIndex })
	return entries, nil
}

func (m *MemoryStore) ReplaceEntries(ctx context.Context, guildID string, entries []ReactionRoleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[guildID] = append([]ReactionRoleEntry(nil), entries...)
	return nil
}

func (m *MemoryStore) GetPanelRecord(ctx context.Context, guildID, panelKey string) (*PanelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.panels[guildID+"/"+panelKey]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryStore) UpsertPanelRecord(ctx context.Context, record *PanelRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	cp.UpdatedAt = time.Now()
	m.panels[record.GuildID+"/"+record.PanelKey] = &cp
	return nil
}

func (m *MemoryStore) ListPanelRecords(ctx context.Context) ([]*PanelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*PanelRecord
	for _, r := range m.panels {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out, nil
}

func (m *MemoryStore) DeletePanelRecord(ctx context.Context, guildID, panelKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.panels, guildID+"/"+panelKey)
	return nil
}

func (m *MemoryStore) SaveRemoteID(ctx context.Context, id *RemoteID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *id
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.remotes[id.GuildID+"/"+id.Key] = &cp
	return nil
}

func (m *MemoryStore) GetRemoteIDs(ctx context.Context, guildID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for _, r := range m.remotes {
		if r.GuildID == guildID {
			out[r.Key] = r.RemoteID
		}
	}
	return out, nil
}

func (m *MemoryStore) ClearRemoteIDs(ctx context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.remotes {
		if r.GuildID == guildID {
			delete(m.remotes, k)
		}
	}
	return nil
}

func (m *MemoryStore) HealthCheck(ctx context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
