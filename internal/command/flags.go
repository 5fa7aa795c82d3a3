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

// Package command implements the compile-time command table and the
// dispatch pipeline (C4): name lookup, ACL enforcement, parsing,
// execution, write-propagation staging, and reply encoding.
package command

import "github.com/launix-de/rkv/internal/acl"

// KeySpec tells dispatch which argument positions are keys and whether
// the command reads, writes, or both reads-and-writes them (for ACL
// per-key pattern checks).
type KeySpec struct {
	// FirstKey is the 0-based index of the first key argument, or -1 if
	// the command declares no keys (e.g. PING).
	FirstKey int
	// LastKey is the last key index, or -1 to mean "every remaining
	// argument is a key" (MGET/MSET-style variadics).
	LastKey int
	// Step is the stride between successive keys (2 for MSET's
	// key/value pairs, 1 otherwise).
	Step int
	Kind acl.AccessKind
	// Channel, when true, means FirstKey/LastKey/Step describe pub/sub
	// channel arguments rather than key arguments.
	Channel bool
}

var noKeys = KeySpec{FirstKey: -1, LastKey: -1, Step: 1}

// Arity mirrors Redis's convention: a positive value is the exact total
// argument count including the command name; a negative value is a
// minimum (-3 means "at least 3").
type Arity int

func (a Arity) Allows(n int) bool {
	if a >= 0 {
		return n == int(a)
	}
	return n >= int(-a)
}

// Spec is one command's static metadata, shared by every invocation.
type Spec struct {
	Name     string
	Category acl.Category
	// CmdBit is this command's one-hot position in the full catalog's
	// CMD_FLAG space (§4.4), assigned by register at init time. It backs
	// ACL SETUSER ALLOWCMD/DENYCMD, which grants or revokes one command
	// independent of Category's coarser ALLOWCAT/DENYCAT bitmask.
	CmdBit   acl.CmdFlag
	Arity    Arity
	Keys     KeySpec
	Write    bool
	Handler  Handler
}
