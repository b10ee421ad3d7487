package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	cache *ttlCache
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// CacheTTL bounds staleness of the read cache over tier definitions
	// and reaction-role entries. Zero disables caching.
	CacheTTL time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path:  cfg.Path,
		cache: newTTLCache(cfg.CacheTTL),
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// GetProfile retrieves a member's level profile. A member without a row
// gets a zero profile; XP accrual starts from nothing.
func (s *SQLiteStore) GetProfile(ctx context.Context, guildID, userID string) (*LevelProfile, error) {
	query := `
		SELECT guild_id, user_id, xp, current_tier, updated_at
		FROM level_profiles
		WHERE guild_id = ? AND user_id = ?
	`

	profile := &LevelProfile{}
	err := s.db.QueryRowContext(ctx, query, guildID, userID).Scan(
		&profile.GuildID,
		&profile.UserID,
		&profile.XP,
		&profile.CurrentTier,
		&profile.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return &LevelProfile{GuildID: guildID, UserID: userID, CurrentTier: -1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// UpsertProfile writes a member's level profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *LevelProfile) error {
	query := `
		INSERT INTO level_profiles (guild_id, user_id, xp, current_tier, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			xp = excluded.xp,
			current_tier = excluded.current_tier,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		profile.GuildID,
		profile.UserID,
		profile.XP,
		profile.CurrentTier,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// Leaderboard returns the guild's top profiles ordered by XP, ties broken
// by user id so pagination stays stable.
func (s *SQLiteStore) Leaderboard(ctx context.Context, guildID string, limit int) ([]*LevelProfile, error) {
	query := `
		SELECT guild_id, user_id, xp, current_tier, updated_at
		FROM level_profiles
		WHERE guild_id = ?
		ORDER BY xp DESC, user_id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var profiles []*LevelProfile
	for rows.Next() {
		profile := &LevelProfile{}
		if err := rows.Scan(
			&profile.GuildID,
			&profile.UserID,
			&profile.XP,
			&profile.CurrentTier,
			&profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// ReplaceTiers replaces a guild's tier table wholesale in one transaction.
func (s *SQLiteStore) ReplaceTiers(ctx context.Context, guildID string, tiers []TierRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tier_definitions WHERE guild_id = ?", guildID); err != nil {
		return fmt.Errorf("failed to clear tiers: %w", err)
	}

	insert := `
		INSERT INTO tier_definitions (guild_id, idx, threshold, role_name, role_id, capabilities)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, tier := range tiers {
		caps := tier.Capabilities
		if caps == "" {
			caps = "[]"
		}
		if _, err := tx.ExecContext(ctx, insert,
			guildID, tier.Idx, tier.Threshold, tier.RoleName, tier.RoleID, caps,
		); err != nil {
			return fmt.Errorf("failed to insert tier %d: %w", tier.Idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tiers: %w", err)
	}

	s.cache.invalidate("tiers/" + guildID)
	return nil
}

// GetTiers returns a guild's tier table in threshold order.
func (s *SQLiteStore) GetTiers(ctx context.Context, guildID string) ([]TierRow, error) {
	cacheKey := "tiers/" + guildID
	if cached, ok := s.cache.get(cacheKey); ok {
		return cached.([]TierRow), nil
	}

	query := `
		SELECT guild_id, idx, threshold, role_name, role_id, capabilities
		FROM tier_definitions
		WHERE guild_id = ?
		ORDER BY idx ASC
	`

	rows, err := s.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiers: %w", err)
	}
	defer rows.Close()

	var tiers []TierRow
	for rows.Next() {
		var tier TierRow
		if err := rows.Scan(
			&tier.GuildID, &tier.Idx, &tier.Threshold,
			&tier.RoleName, &tier.RoleID, &tier.Capabilities,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cache.put(cacheKey, tiers)
	return tiers, nil
}

// SetTierRole updates the role mapping for one tier.
func (s *SQLiteStore) SetTierRole(ctx context.Context, guildID string, idx int, roleID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tier_definitions SET role_id = ? WHERE guild_id = ? AND idx = ?",
		roleID, guildID, idx,
	)
	if err != nil {
		return fmt.Errorf("failed to set tier role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("tier %d not found for guild %s", idx, guildID)
	}

	s.cache.invalidate("tiers/" + guildID)
	return nil
}

// ListEntries returns a guild's reaction-role entries in order-index order.
func (s *SQLiteStore) ListEntries(ctx context.Context, guildID string) ([]ReactionRoleEntry, error) {
	cacheKey := "entries/" + guildID
	if cached, ok := s.cache.get(cacheKey); ok {
		return cached.([]ReactionRoleEntry), nil
	}

	query := `
		SELECT guild_id, role_id, group_key, enabled, order_index, label, emoji
		FROM reaction_role_entries
		WHERE guild_id = ?
		ORDER BY order_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ReactionRoleEntry
	for rows.Next() {
		var entry ReactionRoleEntry
		if err := rows.Scan(
			&entry.GuildID, &entry.RoleID, &entry.GroupKey,
			&entry.Enabled, &entry.OrderIndex, &entry.Label, &entry.Emoji,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cache.put(cacheKey, entries)
	return entries, nil
}

// ReplaceEntries replaces a guild's reaction-role entries wholesale in one
// transaction. The panel manager renormalizes order indices before calling.
func (s *SQLiteStore) ReplaceEntries(ctx context.Context, guildID string, entries []ReactionRoleEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM reaction_role_entries WHERE guild_id = ?", guildID); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	insert := `
		INSERT INTO reaction_role_entries (guild_id, role_id, group_key, enabled, order_index, label, emoji)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, insert,
			guildID, entry.RoleID, entry.GroupKey, entry.Enabled,
			entry.OrderIndex, entry.Label, entry.Emoji,
		); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", entry.RoleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entries: %w", err)
	}

	s.cache.invalidate("entries/" + guildID)
	return nil
}

// GetPanelRecord retrieves a panel record, or nil if none exists.
func (s *SQLiteStore) GetPanelRecord(ctx context.Context, guildID, panelKey string) (*PanelRecord, error) {
	query := `
		SELECT panel_key, guild_id, channel_id, message_id, updated_at
		FROM panel_records
		WHERE guild_id = ? AND panel_key = ?
	`

	record := &PanelRecord{}
	err := s.db.QueryRowContext(ctx, query, guildID, panelKey).Scan(
		&record.PanelKey,
		&record.GuildID,
		&record.ChannelID,
		&record.MessageID,
		&record.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get panel record: %w", err)
	}

	return record, nil
}

// UpsertPanelRecord writes a panel record.
func (s *SQLiteStore) UpsertPanelRecord(ctx context.Context, record *PanelRecord) error {
	query := `
		INSERT INTO panel_records (panel_key, guild_id, channel_id, message_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, panel_key) DO UPDATE SET
			channel_id = excluded.channel_id,
			message_id = excluded.message_id,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		record.PanelKey,
		record.GuildID,
		record.ChannelID,
		record.MessageID,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert panel record: %w", err)
	}

	return nil
}

// ListPanelRecords returns every stored panel record, for startup repair.
func (s *SQLiteStore) ListPanelRecords(ctx context.Context) ([]*PanelRecord, error) {
	query := `
		SELECT panel_key, guild_id, channel_id, message_id, updated_at
		FROM panel_records
		ORDER BY guild_id ASC, panel_key ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query panel records: %w", err)
	}
	defer rows.Close()

	var records []*PanelRecord
	for rows.Next() {
		record := &PanelRecord{}
		if err := rows.Scan(
			&record.PanelKey, &record.GuildID, &record.ChannelID,
			&record.MessageID, &record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan panel record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// DeletePanelRecord removes a panel record.
func (s *SQLiteStore) DeletePanelRecord(ctx context.Context, guildID, panelKey string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM panel_records WHERE guild_id = ? AND panel_key = ?",
		guildID, panelKey,
	)
	if err != nil {
		return fmt.Errorf("failed to delete panel record: %w", err)
	}
	return nil
}

// SaveRemoteID records an identifier created by an overhaul run.
func (s *SQLiteStore) SaveRemoteID(ctx context.Context, id *RemoteID) error {
	query := `
		INSERT INTO remote_ids (guild_id, key, kind, remote_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, key) DO UPDATE SET
			kind = excluded.kind,
			remote_id = excluded.remote_id
	`

	_, err := s.db.ExecContext(ctx, query,
		id.GuildID, id.Key, id.Kind, id.RemoteID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save remote id: %w", err)
	}
	return nil
}

// GetRemoteIDs returns the template-key → remote-ID map for a guild.
func (s *SQLiteStore) GetRemoteIDs(ctx context.Context, guildID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, remote_id FROM remote_ids WHERE guild_id = ?", guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query remote ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var key, remoteID string
		if err := rows.Scan(&key, &remoteID); err != nil {
			return nil, fmt.Errorf("failed to scan remote id: %w", err)
		}
		ids[key] = remoteID
	}

	return ids, rows.Err()
}

// ClearRemoteIDs drops a guild's recorded remote identifiers.
func (s *SQLiteStore) ClearRemoteIDs(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM remote_ids WHERE guild_id = ?", guildID)
	if err != nil {
		return fmt.Errorf("failed to clear remote ids: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

var _ Store = (*SQLiteStore)(nil)
