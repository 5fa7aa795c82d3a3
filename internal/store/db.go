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
package store

import (
	"hash/maphash"
	"runtime"
	"sync"
	"time"
)

// ErrWrongType is returned when a command's required value type doesn't
// match what's stored at a key.
type ErrWrongType struct {
	Expected, Found ValueType
}

func (e *ErrWrongType) Error() string { return "WRONGTYPE " + e.Expected.String() + "/" + e.Found.String() }

// shard is one stripe of the database: an independent mutex-guarded Go map
// (expiration hints live in Db.expireRecords, not per stripe). Striping
// by key hash, grounded on memcp's storage/shard.go pattern of per-shard
// locking (there: column storage mutation; here: per-key object mutation),
// keeps critical sections short and lock contention proportional to
// shardCount instead of global.
type shard struct {
	mu      sync.Mutex
	entries map[Key]*Object
}

// Db is the shared, concurrent, typed key space (§3.4). It is sharded for
// write throughput and carries the hint index the expiration sweeper
// samples from, plus the pub/sub channel registry and hot-swappable OOM
// policy described by the data model.
type Db struct {
	shards    []*shard
	seed      maphash.Seed
	shardMask uint64

	expireMu      sync.Mutex
	expireRecords map[Key]time.Time // hint index: key -> expire, mirrors Object.Expire

	pubsub *pubsubRegistry

	oomMu  sync.RWMutex
	oomCfg *OomConfig

	now func() time.Time // overridable for tests
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// NewDb builds a database striped into nextPow2(runtime.NumCPU()*2) shards.
func NewDb() *Db {
	n := nextPow2(runtime.NumCPU() * 2)
	if n < 1 {
		n = 1
	}
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[Key]*Object)}
	}
	return &Db{
		shards:        shards,
		seed:          maphash.MakeSeed(),
		shardMask:     uint64(n - 1),
		expireRecords: make(map[Key]time.Time),
		pubsub:        newPubsubRegistry(),
		now:           time.Now,
	}
}

func (db *Db) shardFor(k Key) *shard {
	var h maphash.Hash
	h.SetSeed(db.seed)
	h.WriteString(string(k))
	return db.shards[h.Sum64()&db.shardMask]
}

// Get returns the live object at k, or (nil, false) if absent/expired. A
// successful lookup updates access metadata and fires the ReadEvent hook;
// an expired object is removed opportunistically before reporting absence.
func (db *Db) Get(k Key) (*Object, bool) {
	s := db.shardFor(k)
	s.mu.Lock()
	o, ok := s.entries[k]
	if ok && o.Expired(db.now()) {
		delete(s.entries, k)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		if o != nil {
			db.forgetExpire(k)
		}
		return nil, false
	}
	o.MarkRead(k)
	return o, true
}

// Insert overwrites (or creates) k with obj, returning the previous object
// if any. Overwrite replaces value, expire, atc and events wholesale, as
// specified.
func (db *Db) Insert(k Key, obj *Object) (*Object, bool) {
	s := db.shardFor(k)
	s.mu.Lock()
	prev, existed := s.entries[k]
	s.entries[k] = obj
	s.mu.Unlock()
	db.syncExpireRecord(k, obj.Expire)
	obj.MarkWrite(k)
	return prev, existed
}

// Remove deletes k, returning the removed object if present. Fires the
// write-event (and, transitively, track-event) hooks on removal.
func (db *Db) Remove(k Key) (*Object, bool) {
	s := db.shardFor(k)
	s.mu.Lock()
	o, ok := s.entries[k]
	if ok {
		delete(s.entries, k)
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	db.forgetExpire(k)
	o.MarkWrite(k)
	return o, true
}

// Visit runs fn against k's live value under the shard lock (read-only)
// and fires the read-event hook on success.
func (db *Db) Visit(k Key, fn func(v Value) error) error {
	s := db.shardFor(k)
	s.mu.Lock()
	o, ok := s.entries[k]
	expired := ok && o.Expired(db.now())
	if expired {
		delete(s.entries, k)
	}
	var err error
	if ok && !expired {
		err = fn(o.Value)
	}
	s.mu.Unlock()
	if expired {
		db.forgetExpire(k)
		return ErrNotFound
	}
	if !ok {
		return ErrNotFound
	}
	if err == nil {
		o.MarkRead(k)
	}
	return err
}

// ErrNotFound is returned by Visit/Update when the key is absent or
// expired and the caller supplied no factory to create it.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "key not found" }

// Update runs an exclusive mutator against k's object, evicting first to
// make room if the database is over its memory budget (try_evict runs
// before get_mut/entry, per the eviction contract).
func (db *Db) Update(k Key, fn func(o *Object) error) error {
	if err := db.tryEvict(); err != nil {
		return err
	}
	s := db.shardFor(k)
	s.mu.Lock()
	o, ok := s.entries[k]
	expired := ok && o.Expired(db.now())
	if expired {
		delete(s.entries, k)
		ok = false
	}
	var err error
	if ok {
		err = fn(o)
	}
	s.mu.Unlock()
	if expired {
		db.forgetExpire(k)
	}
	if !ok {
		return ErrNotFound
	}
	if err == nil {
		db.syncExpireRecord(k, o.Expire)
		o.MarkWrite(k)
	}
	return err
}

// UpdateOrCreate inserts via mk if k is absent, then always runs mut
// against the (possibly fresh) object.
func (db *Db) UpdateOrCreate(k Key, mk func() Value, mut func(o *Object) error) error {
	if err := db.tryEvict(); err != nil {
		return err
	}
	s := db.shardFor(k)
	s.mu.Lock()
	o, ok := s.entries[k]
	if ok && o.Expired(db.now()) {
		ok = false
	}
	if !ok {
		o = NewObject(mk())
		s.entries[k] = o
	}
	err := mut(o)
	s.mu.Unlock()
	if err == nil {
		db.syncExpireRecord(k, o.Expire)
		o.MarkWrite(k)
	}
	return err
}

// ExpireAt sets k's expiration, synchronizing the hint index. A zero time
// clears the expiration (persists).
func (db *Db) ExpireAt(k Key, at time.Time) error {
	s := db.shardFor(k)
	s.mu.Lock()
	o, ok := s.entries[k]
	if ok {
		o.Expire = at
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	db.syncExpireRecord(k, at)
	return nil
}

// Exists reports liveness without updating access metadata or firing hooks
// (used by EXISTS/TYPE-adjacent bookkeeping, not by GET).
func (db *Db) Exists(k Key) bool {
	s := db.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.entries[k]
	return ok && !o.Expired(db.now())
}

// Len returns the (approximate, racy-but-fine-for-DBSIZE) live key count.
func (db *Db) Len() int {
	n := 0
	for _, s := range db.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Keys returns a snapshot of all live keys (KEYS *, SCAN backing list).
// Expired entries are skipped but not removed (that's the sweeper's job;
// Keys is a point-in-time read, not a mutation).
func (db *Db) Keys() []Key {
	now := db.now()
	var out []Key
	for _, s := range db.shards {
		s.mu.Lock()
		for k, o := range s.entries {
			if !o.Expired(now) {
				out = append(out, k)
			}
		}
		s.mu.Unlock()
	}
	return out
}

// Flush removes every key (FLUSHDB).
func (db *Db) Flush() {
	for _, s := range db.shards {
		s.mu.Lock()
		s.entries = make(map[Key]*Object)
		s.mu.Unlock()
	}
	db.expireMu.Lock()
	db.expireRecords = make(map[Key]time.Time)
	db.expireMu.Unlock()
}

func (db *Db) syncExpireRecord(k Key, at time.Time) {
	db.expireMu.Lock()
	if at.IsZero() {
		delete(db.expireRecords, k)
	} else {
		db.expireRecords[k] = at
	}
	db.expireMu.Unlock()
}

func (db *Db) forgetExpire(k Key) {
	db.expireMu.Lock()
	delete(db.expireRecords, k)
	db.expireMu.Unlock()
}

// PubSub exposes the channel registry to the command layer.
func (db *Db) PubSub() *pubsubRegistry { return db.pubsub }
