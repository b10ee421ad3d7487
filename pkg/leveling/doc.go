// Package leveling implements the experience and progression engine:
// per-member XP accumulation, tier computation against a guild's threshold
// table, and best-effort reconciliation of tier reward roles on the remote
// platform. XP state is the source of truth; role state is derived and
// self-heals on the next tier crossing or an explicit resync.
package leveling
