// Package remote defines the capability interface to the collaborative-space
// platform API and the supporting pieces every caller shares: classified
// errors with retry semantics and a process-wide FIFO rate limiter.
//
// The engine never talks to the network directly; it is handed a Client.
// Production transports implement Client elsewhere; this package ships an
// in-memory Simulator used by dry runs and tests.
package remote
