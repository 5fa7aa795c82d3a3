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
package acl

import (
	"regexp"
	"strings"
)

// PatternSet is a compiled set of glob patterns (key or channel deny
// lists). A nil *PatternSet matches nothing, so the zero value of an
// AccessControl's deny fields is "no restriction" without a separate
// empty-set allocation.
type PatternSet struct {
	raw     []string
	regexes []*regexp.Regexp
}

// WithPatterns returns a new PatternSet extending ps (which may be nil)
// with patterns compiled and appended. Each pattern is a glob using `*`
// (any run of characters) and `?` (any single character), matching the
// same minimal glob dialect the KEYS/PUBSUB pattern matcher uses.
func (ps *PatternSet) WithPatterns(patterns []string) *PatternSet {
	next := &PatternSet{}
	if ps != nil {
		next.raw = append(next.raw, ps.raw...)
		next.regexes = append(next.regexes, ps.regexes...)
	}
	for _, p := range patterns {
		next.raw = append(next.raw, p)
		next.regexes = append(next.regexes, compileGlob(p))
	}
	return next
}

// Matches reports whether s matches any pattern in the set.
func (ps *PatternSet) Matches(s string) bool {
	if ps == nil {
		return false
	}
	for _, re := range ps.regexes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Patterns returns the raw pattern strings, for ACL LIST reporting.
func (ps *PatternSet) Patterns() []string {
	if ps == nil {
		return nil
	}
	return append([]string(nil), ps.raw...)
}

// compileGlob translates a Redis-style glob into an anchored regexp.
// Unrecognized metacharacters ([ ] ^) are treated literally rather than
// rejected: the pattern dialect this server exposes is intentionally the
// minimal `*`/`?` subset documented for KEYS/PUBSUB/ACL, so anything else
// is just an ordinary character to match.
func compileGlob(glob string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// MatchGlob is the standalone matcher PUBSUB pattern subscriptions and
// KEYS use directly, without going through a PatternSet.
func MatchGlob(pattern, s string) bool {
	return compileGlob(pattern).MatchString(s)
}
