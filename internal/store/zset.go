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

import "github.com/google/btree"

// zsetEntry is the btree item ordered by (score, member) so members with
// equal scores keep a stable lexical order, matching Redis ZSET semantics.
type zsetEntry struct {
	member string
	score  float64
}

// Member and ScoreOf expose the entry's fields to callers outside this
// package, which cannot name the unexported zsetEntry type itself but can
// still hold values of it (e.g. via range over a returned slice).
func (e zsetEntry) Member() string  { return e.member }
func (e zsetEntry) ScoreOf() float64 { return e.score }

func (a zsetEntry) Less(than btree.Item) bool {
	b := than.(zsetEntry)
	if a.score != b.score {
		return a.score < b.score
	}
	return a.member < b.member
}

// ZSet maps members to scores with an ordered index for range queries
// (ZRANGE, ZRANGEBYSCORE). Grounded on memcp's use of google/btree for
// score-ordered index structures: the by-score tree gives O(log n)
// range scans, while a side map gives O(1) ZSCORE/ZADD-update lookups.
type ZSet struct {
	byScore *btree.BTree
	scores  map[string]float64
}

func NewZSet() *ZSet {
	return &ZSet{byScore: btree.New(32), scores: make(map[string]float64)}
}

func (*ZSet) Type() ValueType { return TypeZSet }

func (z *ZSet) Size() int64 {
	return 24 + int64(len(z.scores))*48
}

func (z *ZSet) Len() int { return len(z.scores) }

// Add sets member's score, returning true if member is new.
func (z *ZSet) Add(member string, score float64) bool {
	if old, ok := z.scores[member]; ok {
		z.byScore.Delete(zsetEntry{member, old})
		z.scores[member] = score
		z.byScore.ReplaceOrInsert(zsetEntry{member, score})
		return false
	}
	z.scores[member] = score
	z.byScore.ReplaceOrInsert(zsetEntry{member, score})
	return true
}

func (z *ZSet) Score(member string) (float64, bool) {
	s, ok := z.scores[member]
	return s, ok
}

func (z *ZSet) Remove(member string) bool {
	score, ok := z.scores[member]
	if !ok {
		return false
	}
	delete(z.scores, member)
	z.byScore.Delete(zsetEntry{member, score})
	return true
}

// RangeByIndex returns members [start,stop] (inclusive, 0-based, already
// clamped/resolved from Redis's possibly-negative indices by the caller)
// in ascending score order.
func (z *ZSet) RangeByIndex(start, stop int) []zsetEntry {
	n := z.byScore.Len()
	if n == 0 || start > stop || start >= n {
		return nil
	}
	if stop >= n {
		stop = n - 1
	}
	out := make([]zsetEntry, 0, stop-start+1)
	i := 0
	z.byScore.Ascend(func(it btree.Item) bool {
		if i > stop {
			return false
		}
		if i >= start {
			out = append(out, it.(zsetEntry))
		}
		i++
		return true
	})
	return out
}

// RangeByScore returns members with min <= score <= max in ascending order.
func (z *ZSet) RangeByScore(min, max float64) []zsetEntry {
	var out []zsetEntry
	z.byScore.AscendRange(zsetEntry{member: "", score: min}, zsetEntry{member: "\xff\xff\xff\xff", score: max + 1e-12}, func(it btree.Item) bool {
		e := it.(zsetEntry)
		if e.score >= min && e.score <= max {
			out = append(out, e)
		}
		return true
	})
	return out
}

func (z *ZSet) Members() []zsetEntry {
	out := make([]zsetEntry, 0, z.Len())
	z.byScore.Ascend(func(it btree.Item) bool {
		out = append(out, it.(zsetEntry))
		return true
	})
	return out
}
