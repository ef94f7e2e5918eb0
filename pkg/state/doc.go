// Package state defines the persistence contract for the factory record and
// ships two implementations of it.
//
// Responsibilities:
//   - Store[T] loads, creates and replaces a single snapshot per key. Keys are
//     derived addresses; the store never invents them.
//   - Create is the only call that allocates a key. Save replaces in place and
//     supports compare-and-swap through Meta.ETag.
//   - Encoding lives outside the store. Byte-oriented backends such as
//     sqlitestore take a Codec[T].
//
// Data flow:
//
//	factory handler -> Store.Load -> validate -> Store.Save(ifMatch=loaded ETag)
//
// MemoryStore keeps snapshots as values and is safe for concurrent use.
// sqlitestore persists encoded bytes and is safe across processes sharing one
// database file.
package state
