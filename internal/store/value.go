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

// ValueType identifies which Go type backs an Object's Value, used for
// WRONGTYPE checks and for OBJECT ENCODING / persistence type codes.
type ValueType byte

const (
	TypeString ValueType = iota + 1
	TypeList
	TypeSet
	TypeHash
	TypeZSet
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeHash:
		return "hash"
	case TypeZSet:
		return "zset"
	default:
		return "none"
	}
}

// Value is implemented by every storable variant: Str, List, Set, Hash,
// ZSet. Size is used by eviction/memory accounting.
type Value interface {
	Type() ValueType
	Size() int64
}

// Str is an inline byte buffer. Commands that need integer semantics
// (INCR/DECR) parse and re-render it each time rather than keeping a
// shadow numeric representation, matching the wire format's "a string
// that may represent an integer" contract.
type Str []byte

func (Str) Type() ValueType { return TypeString }
func (s Str) Size() int64   { return int64(len(s)) + 16 }

// List is an ordered sequence of Str elements backed by a slice. Pushes
// and pops at either end are O(1) amortized via a lazily-shrunk front
// offset, avoiding an O(n) shift on every LPOP.
type List struct {
	items []Str
	start int
}

func NewList() *List { return &List{} }

func (*List) Type() ValueType { return TypeList }
func (l *List) Size() int64 {
	var sz int64 = 24
	for _, it := range l.items[l.start:] {
		sz += it.Size()
	}
	return sz
}

func (l *List) Len() int { return len(l.items) - l.start }

func (l *List) PushLeft(v Str) {
	if l.start > 0 {
		l.start--
		l.items[l.start] = v
		return
	}
	l.items = append([]Str{v}, l.items...)
}

func (l *List) PushRight(v Str) { l.items = append(l.items, v) }

func (l *List) PopLeft() (Str, bool) {
	if l.Len() == 0 {
		return nil, false
	}
	v := l.items[l.start]
	l.start++
	l.compact()
	return v, true
}

func (l *List) PopRight() (Str, bool) {
	if l.Len() == 0 {
		return nil, false
	}
	last := len(l.items) - 1
	v := l.items[last]
	l.items = l.items[:last]
	l.compact()
	return v, true
}

// Index returns the element at logical index i (0-based from the head).
func (l *List) Index(i int) (Str, bool) {
	if i < 0 || i >= l.Len() {
		return nil, false
	}
	return l.items[l.start+i], true
}

func (l *List) Set(i int, v Str) bool {
	if i < 0 || i >= l.Len() {
		return false
	}
	l.items[l.start+i] = v
	return true
}

// Range returns a copy of elements [from, to] inclusive, clamped to bounds,
// Redis-style (negative indices count from the tail; handled by caller).
func (l *List) Range(from, to int) []Str {
	n := l.Len()
	if n == 0 {
		return nil
	}
	if from < 0 {
		from = 0
	}
	if to >= n {
		to = n - 1
	}
	if from > to {
		return nil
	}
	out := make([]Str, to-from+1)
	copy(out, l.items[l.start+from:l.start+to+1])
	return out
}

// compact drops the consumed front window once it grows large relative to
// the live data, so PopLeft doesn't leak memory forever.
func (l *List) compact() {
	if l.start > 64 && l.start*2 > len(l.items) {
		l.items = append([]Str(nil), l.items[l.start:]...)
		l.start = 0
	}
}

// SetVal is an unordered collection of unique Str members.
type SetVal struct {
	members map[string]struct{}
}

func NewSetVal() *SetVal { return &SetVal{members: make(map[string]struct{})} }

func (*SetVal) Type() ValueType { return TypeSet }
func (s *SetVal) Size() int64 {
	var sz int64 = 24
	for k := range s.members {
		sz += int64(len(k)) + 16
	}
	return sz
}

func (s *SetVal) Add(member string) bool {
	if _, ok := s.members[member]; ok {
		return false
	}
	s.members[member] = struct{}{}
	return true
}

func (s *SetVal) Remove(member string) bool {
	if _, ok := s.members[member]; !ok {
		return false
	}
	delete(s.members, member)
	return true
}

func (s *SetVal) Has(member string) bool {
	_, ok := s.members[member]
	return ok
}

func (s *SetVal) Len() int { return len(s.members) }

func (s *SetVal) Members() []string {
	out := make([]string, 0, len(s.members))
	for k := range s.members {
		out = append(out, k)
	}
	return out
}

// Hash maps field names to Str values.
type Hash struct {
	fields map[string]Str
}

func NewHash() *Hash { return &Hash{fields: make(map[string]Str)} }

func (*Hash) Type() ValueType { return TypeHash }
func (h *Hash) Size() int64 {
	var sz int64 = 24
	for k, v := range h.fields {
		sz += int64(len(k)) + v.Size()
	}
	return sz
}

func (h *Hash) Get(field string) (Str, bool) {
	v, ok := h.fields[field]
	return v, ok
}

func (h *Hash) Set(field string, v Str) bool {
	_, existed := h.fields[field]
	h.fields[field] = v
	return !existed
}

func (h *Hash) Del(field string) bool {
	if _, ok := h.fields[field]; !ok {
		return false
	}
	delete(h.fields, field)
	return true
}

func (h *Hash) Has(field string) bool {
	_, ok := h.fields[field]
	return ok
}

func (h *Hash) Len() int { return len(h.fields) }

func (h *Hash) All() map[string]Str { return h.fields }
