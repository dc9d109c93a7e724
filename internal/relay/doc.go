// Package relay holds the authoritative in-memory model of the relay bank:
// one ON/OFF state and one manual/auto mode per relay.
//
// Relays are numbered 1..N and exist for the lifetime of the process,
// starting OFF in manual mode. Nothing here is persisted.
//
// The Registry is not safe for concurrent use on its own. It is owned by the
// automation engine, which serialises every read and write behind its lock.
package relay
