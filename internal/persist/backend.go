/*
Copyright (C) 2026  rkv contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package persist implements durability for one keyspace: a point-in-time
// snapshot (SAVE/BGSAVE) plus an append-only log of write commands (AOF)
// that is replayed on startup after the snapshot is loaded.
//
// The shape follows memcp's storage.PersistenceEngine/PersistenceFactory:
// one interface implemented by interchangeable backends (file, S3, Ceph),
// each handed a name and responsible for its own layout underneath. Where
// memcp shards a persistence engine per table-shard/column, rkv has a
// single flat keyspace, so Backend carries one snapshot blob and one log
// instead of per-shard columns.
package persist

import "io"

// Backend persists one database's snapshot and write-ahead log. A Backend
// is retrieved from a Factory and is safe for concurrent use by at most one
// saver/replicator at a time (WireSaveHooks serializes SAVE/BGSAVE
// against each other).
type Backend interface {
	// ReadSnapshot returns the last saved snapshot, or nil if none exists.
	ReadSnapshot() ([]byte, error)
	// WriteSnapshot atomically replaces the saved snapshot.
	WriteSnapshot(data []byte) error

	// OpenLog opens the write log for appending, creating it if absent.
	OpenLog() (Logfile, error)
	// ReplayLog opens the write log for appending and returns a channel
	// that yields each previously logged command's raw RESP3 bytes, in
	// order, then closes. The returned Logfile is the same handle ReplayLog
	// leaves positioned for further appends.
	ReplayLog() (<-chan []byte, Logfile, error)
	// RemoveLog discards the write log (called after a successful SAVE
	// folds its entries into the new snapshot).
	RemoveLog() error

	// Remove deletes everything persisted for this database (FLUSHALL with
	// persistence, or dropping a replica's working copy).
	Remove() error
}

// Logfile is one open handle on a backend's write log.
type Logfile interface {
	// Write appends one already-framed record (a RESP3-encoded command).
	Write(record []byte) error
	// Sync forces buffered writes to stable storage.
	Sync() error
	io.Closer
}

// Factory creates (or re-opens) the Backend for a named database. "named"
// lets one process run a master keyspace and, independently, the working
// copy a replica streams into (internal/replica), each under its own
// sub-path/prefix/pool.
type Factory interface {
	Open(name string) Backend
}
