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

// Package store implements the shared, sharded, typed object store (C2)
// together with OOM eviction and expiration sweeping (C3).
package store

// Key is an immutable byte sequence used to look up an Object. Go strings
// already give us cheap, reference-counted clones and hash/compare
// identically to their canonical bytes, so Key is just a named string
// rather than a bespoke reference-counted byte buffer.
type Key string

func NewKey(b []byte) Key { return Key(string(b)) }

func (k Key) Bytes() []byte { return []byte(k) }
