// Package overhaul implements the orchestration engine that turns a
// declarative guild configuration into an ordered sequence of remote
// mutations and executes it against the rate-limited platform API.
//
// The workflow is: Configuration -> Plan -> Execute -> Result. A plan is a
// total order of steps in fixed precedence (settings, roles, hierarchy,
// structure, leveling, feature modules, finalize). Execution is strictly
// sequential, retries transient failures with capped exponential backoff,
// reports every transition to an injected progress sink, and records the
// identifiers it creates so an interrupted run can be repaired forward
// without duplicating resources.
package overhaul
