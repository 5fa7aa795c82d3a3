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
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// fastRand is a concurrency-safe, lock-free source suitable for the hot
// read path (access-count sampling); math/rand/v2's top-level functions
// are backed by a per-M source and need no mutex, unlike math/rand v1.
func fastRand() uint32 { return rand.Uint32() }

// atcAccessCountMax is the saturation point of the 12-bit access_count
// field packed into Object.atc.
const atcAccessCountMax = 1<<12 - 1

// lruClock is a monotonic counter ticked once per minute, mod 2^20, used
// as the coarse "access time" stored in Object.atc. It is cheaper than a
// wall-clock timestamp per read and is all LRU sampling needs.
var lruClock atomic.Uint32

// TickLRUClock advances the shared LRU clock. Call it from a once-a-minute
// background ticker (see Sweeper).
func TickLRUClock() {
	lruClock.Add(1)
	lruClock.CompareAndSwap(1<<20, 0)
}

func packATC(accessTime, accessCount uint32) uint32 {
	return (accessTime&0xFFFFF)<<12 | (accessCount & atcAccessCountMax)
}

func unpackATC(v uint32) (accessTime, accessCount uint32) {
	return v >> 12, v & atcAccessCountMax
}

// Object is a stored value plus the metadata the store and eviction
// policies need: an absolute expiration, packed access-time/access-count,
// and a lazily allocated set of event hooks.
type Object struct {
	Value  Value
	Expire time.Time // zero Time means "never expires"

	atc atomic.Uint32

	events *eventHooks
}

// NewObject wraps v with fresh access metadata.
func NewObject(v Value) *Object {
	o := &Object{Value: v}
	o.touch()
	return o
}

// Expired reports whether o's expiration has passed as of now.
func (o *Object) Expired(now time.Time) bool {
	return !o.Expire.IsZero() && !o.Expire.After(now)
}

// touch updates access_time unconditionally and increments access_count
// with probability 1/(count/2+1), matching the sampling LFU counter decay
// used by Redis-style caches so hot keys don't saturate the counter
// immediately.
func (o *Object) touch() {
	for {
		old := o.atc.Load()
		_, count := unpackATC(old)
		newCount := count
		if shouldIncrement(count) {
			if newCount < atcAccessCountMax {
				newCount++
			}
		}
		next := packATC(lruClock.Load(), newCount)
		if o.atc.CompareAndSwap(old, next) {
			return
		}
	}
}

func shouldIncrement(count uint32) bool {
	// probability 1/(count/2+1) via a cheap counter-based approximation:
	// always increment while small, then fall back to sampling.
	threshold := count/2 + 1
	return fastRand()%threshold == 0
}

// AccessTime returns the packed LRU clock value at last access.
func (o *Object) AccessTime() uint32 {
	t, _ := unpackATC(o.atc.Load())
	return t
}

// AccessCount returns the packed LFU counter value.
func (o *Object) AccessCount() uint32 {
	_, c := unpackATC(o.atc.Load())
	return c
}

// MarkRead updates access metadata and fires ReadEvent hooks.
func (o *Object) MarkRead(key Key) {
	o.touch()
	if o.events != nil {
		o.events.fireRead(key)
	}
}

// MarkWrite fires WriteEvent hooks after a mutation (access metadata is
// refreshed too, since a write implies the object was just touched).
func (o *Object) MarkWrite(key Key) {
	o.touch()
	if o.events != nil {
		o.events.fireWrite(key)
	}
}

// Events lazily allocates and returns the hook list so callers (the
// scripting host's intention lock, CLIENT TRACKING) can register.
func (o *Object) Events() *eventHooks {
	if o.events == nil {
		o.events = newEventHooks()
	}
	return o.events
}
