// Package persist provides ready-made storage backends for the store's
// persistence hooks.
//
// Every backend serializes values to JSON and exposes a Config method
// returning a store.Config wired to its load/save/remove/clear
// operations:
//
//	storage, err := persist.NewFileStorage("app-state.json")
//	if err != nil { ... }
//
//	s := store.New(store.WithPersistence(storage.Config()))
//
// Backends:
//   - MemoryStorage: in-process map, for tests and ephemeral durability.
//   - FileStorage: a single versioned JSON document, written atomically.
//   - SQLStorage: any database/sql driver (PostgreSQL, MySQL, SQLite).
//   - S3Storage: one object per key in an S3 bucket prefix.
package persist
