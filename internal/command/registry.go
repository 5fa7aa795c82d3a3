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
package command

import (
	"strings"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/resp3"
)

// Handler executes an already-ACL-checked, already-arity-checked command.
// The bool result reports whether a reply should be written at all (false
// suppresses the reply entirely, e.g. SHUTDOWN).
type Handler func(ctx Context, args [][]byte) (resp3.Frame, bool, error)

var registry = make(map[string]*Spec)

// nextCmdBit counts registrations so each command gets a distinct one-hot
// CmdBit; acl.CmdFlag has 128 bits of headroom, the same width the
// reference ACL model's CMD_FLAG uses as a u128 one-hot bitmask.
var nextCmdBit int

// register adds spec to the global command table, keyed by its upper-cased
// name, and assigns it the next free one-hot CmdBit. It's called from
// each family file's init, so the table is fully populated before any
// connection can dispatch against it.
func register(spec Spec) {
	spec.Name = strings.ToUpper(spec.Name)
	spec.CmdBit = acl.CmdBit(nextCmdBit)
	nextCmdBit++
	registry[spec.Name] = &spec
}

// Lookup returns the Spec for an already-uppercased command name.
func Lookup(name string) (*Spec, bool) {
	s, ok := registry[name]
	return s, ok
}

// cmdBitByName resolves ALLOWCMD/DENYCMD's command-name tokens to the
// command's one-hot CmdBit, case-insensitively like command dispatch
// itself.
func cmdBitByName(name string) (acl.CmdFlag, bool) {
	s, ok := Lookup(strings.ToUpper(name))
	if !ok {
		return acl.CmdFlag{}, false
	}
	return s.CmdBit, true
}

// Count returns the number of distinct registered commands (COMMAND COUNT).
func Count() int { return len(registry) }

// Names returns every registered command name (COMMAND LIST / introspection).
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}

// preAuthAllowed is the pre-authentication command allow-list: HELLO,
// AUTH, PING, QUIT may run before a password-protected ACL has
// authenticated the connection.
var preAuthAllowed = map[string]bool{
	"HELLO": true,
	"AUTH":  true,
	"PING":  true,
	"QUIT":  true,
}
