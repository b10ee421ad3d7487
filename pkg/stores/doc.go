// Package stores provides the persistence layer for GuildForge.
//
// It persists level profiles, tier definitions, reaction-role entries,
// panel records, and the last known remote identifiers of an overhaul run
// in SQLite, with embedded migrations and a small TTL read cache over the
// hot configuration keys.
//
// All writes are row-level upserts; the engines above this package own the
// invariants (dense order indices, strictly increasing thresholds).
package stores
