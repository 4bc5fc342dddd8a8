// Package store provides the general purpose [anystore.Store] backends:
//
//   - [MemoryStore]: fast, in-memory values that are lost on restart.
//   - [FileStore]: one file per value in a directory tree.
//   - [SQLiteStore]: persistent values backed by a SQLite database.
//   - [TieredStore]: a write-through memory cache in front of any store.
//
// Backends that need a network client or an external service live in the
// sub-packages redis, bolt, dynamo and airtable. Custom backends can be
// created by implementing [anystore.Store] and checked with package
// storetest.
package store
