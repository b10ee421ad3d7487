// Package panel maintains each guild's self-service role panel: the
// declarative list of selectable roles, the single live panel message that
// renders it, and the member-facing selection operations. One PanelRecord
// per guild identifies the live message; a missing or stale record is
// repaired by recreating the message rather than accumulating duplicates.
package panel
