// Package store provides user identity persistence for session-gateway.
//
// The UserStore interface has two implementations:
//
//   - MemoryStore: in-memory, used in tests and development
//   - SQLiteStore: SQLite-backed via modernc.org/sqlite
//
// Both return store.ErrNotFound for unknown users or credential mismatches;
// the gateway translates absence into authentication errors so the store
// never needs to distinguish "no such user" from "wrong password".
package store
