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

// Package replica implements master-side write propagation (with a
// backlog ring for partial resync) and the replica-side PSYNC client.
package replica

import "sync"

// defaultBacklogCapacity bounds the ring at a size generous enough to
// survive a brief replica hiccup (a reconnect, a GC pause) without forcing
// a full resync, without holding an unbounded amount of write traffic in
// memory on a master with no replicas attached.
const defaultBacklogCapacity = 8 << 20 // 8 MiB

// Backlog is a fixed-capacity ring of recently propagated write bytes,
// addressed by a monotonically increasing byte offset. A replica that
// reconnects with an offset still inside the ring gets a partial resync
// (backlog[offset:]); one with an offset that has fallen out gets a full
// resync instead.
type Backlog struct {
	mu       sync.Mutex
	buf      []byte
	capacity int
	start    int64 // offset of buf[0]
	written  int64 // total bytes ever appended
}

// NewBacklog creates a ring of capacity bytes. capacity <= 0 uses
// defaultBacklogCapacity.
func NewBacklog(capacity int) *Backlog {
	if capacity <= 0 {
		capacity = defaultBacklogCapacity
	}
	return &Backlog{capacity: capacity}
}

// Append adds record and returns the offset immediately following it —
// the offset a subsequent PSYNC from this point should resume from.
func (b *Backlog) Append(record []byte) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, record...)
	b.written += int64(len(record))
	if over := len(b.buf) - b.capacity; over > 0 {
		b.buf = b.buf[over:]
		b.start += int64(over)
	}
	return b.written
}

// Since returns the bytes propagated strictly after offset. ok is false
// if offset already fell out of the ring or is ahead of what's been
// written, in which case the caller must fall back to a full resync.
func (b *Backlog) Since(offset int64) (data []byte, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if offset < b.start || offset > b.written {
		return nil, false
	}
	rel := offset - b.start
	out := make([]byte, int64(len(b.buf))-rel)
	copy(out, b.buf[rel:])
	return out, true
}

// Offset reports the current write offset (total bytes ever propagated).
func (b *Backlog) Offset() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}
