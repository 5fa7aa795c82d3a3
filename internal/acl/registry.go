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
	"sync"

	nlrm "github.com/launix-de/NonLockingReadMap"
)

// userEntry adapts *AccessControl to nlrm's KeyGetter so the registry can
// key a NonLockingReadMap by username.
type userEntry struct {
	ac *AccessControl
}

func (u userEntry) GetKey() string { return u.ac.name }

// ComputeSize is only used by nlrm's own bookkeeping helpers, which the
// registry doesn't call; a fixed estimate avoids walking AccessControl's
// rule set on every read.
func (u userEntry) ComputeSize() uint { return 64 }

// Registry is the in-process table of named users (ACL SETUSER/LIST/DELUSER,
// AUTH user pass). AUTH and every subsequent command's permission check hit
// this table, while ACL SETUSER/DELUSER are rare administrative calls, so it
// is backed by a NonLockingReadMap (grounded on storage/transaction.go's use
// of the same structure for its read-mostly snapshot index): lookups never
// block a connection's hot path on a concurrent ACL edit. A small mutex
// still serializes the rare writers against each other; readers never take
// it. It holds the authoritative *AccessControl for the hot auth path;
// ExternalStore only mirrors snapshots out to SQL for operator visibility.
type Registry struct {
	writeMu sync.Mutex
	users   nlrm.NonLockingReadMap[userEntry, string]
}

// NewRegistry returns a registry seeded with the full-power "default_ac" user,
// matching the server's out-of-the-box single-user behavior.
func NewRegistry() *Registry {
	r := &Registry{users: nlrm.New[userEntry, string]()}
	d := NewDefaultUser()
	r.users.Set(&userEntry{ac: d})
	return r
}

func (r *Registry) Get(name string) (*AccessControl, bool) {
	e := r.users.Get(name)
	if e == nil {
		return nil, false
	}
	return e.ac, true
}

// SetUser creates name if it doesn't exist yet or mutates it in place if it
// does, returning the resulting AccessControl. A brand new user starts with
// no permissions at all (cmdFlag 0, disabled) rather than inheriting the
// "default_ac" user's full access, so ACL SETUSER <name> <rules...> grants
// exactly what <rules...> asks for and nothing more; ApplySetUser itself is
// a pure merge and deliberately doesn't encode this new-user floor.
func (r *Registry) SetUser(name string, op SetUserOp) *AccessControl {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	e := r.users.Get(name)
	var ac *AccessControl
	if e != nil {
		ac = e.ac
	} else {
		ac = &AccessControl{name: name}
		r.users.Set(&userEntry{ac: ac})
	}
	ac.ApplySetUser(op)
	return ac
}

// DelUser removes name, returning false if it didn't exist. The
// "default_ac" user cannot be removed.
func (r *Registry) DelUser(name string) bool {
	if name == "default_ac" {
		return false
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.users.Remove(name) != nil
}

// Names returns every registered username (ACL LIST/ACL USERS).
func (r *Registry) Names() []string {
	all := r.users.GetAll()
	out := make([]string, 0, len(all))
	for _, e := range all {
		out = append(out, e.ac.name)
	}
	return out
}
