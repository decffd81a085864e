// Package session provides the client-side session store and the durable
// storage backends it persists to.
//
// # Storage
//
// A [Storage] is a flat string key/value space. Three backends ship with the
// package: [MemoryStorage] for tests and ephemeral clients, [FileStorage] for a
// single installation on disk, and [RedisStorage] for installations that share
// state through Redis under a key prefix.
//
// # Architecture boundaries
//
// This package owns the persisted keys user, auth_token and refresh_token. It
// does NOT talk to the backend, decide when a user is authenticated, or own the
// device_id key.
//
// # What this package must NOT do
//
//   - Import goShop, internal/api or internal/flows (no upward imports).
//   - Update in-memory state before the matching write is durable.
//   - Fail a restore because persisted data is malformed.
package session
