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
	"unicode/utf8"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/resp3"
)

// maxCommandNameLen bounds the uppercase-conversion buffer so a pathological
// client can't force an unbounded allocation just to fail UnknownCmd anyway.
const maxCommandNameLen = 64

// Result is the outcome of Dispatch: a reply frame (unless Suppressed),
// plus whether the command is a write the caller propagates (Propagate
// mirrors Spec.Write). Dispatch never writes to the connection itself — internal/conn
// owns the socket and framing.
type Result struct {
	Reply      resp3.Frame
	Suppressed bool
	Propagate  bool
}

// Dispatch runs the full pipeline (§4.4 steps 1-7, minus the final
// encode/write which the caller performs): name extraction and uppercase,
// lookup, ACL check, per-key pattern check, parse/arity, execute.
func Dispatch(ctx Context, args [][]byte) Result {
	if len(args) == 0 {
		return errResult(ErrUnknownCmd)
	}

	name, ok := normalizeName(args[0])
	if !ok {
		return errResult(ErrUnknownCmd)
	}

	if !ctx.Authenticated() && !preAuthAllowed[name] {
		return errResult(acl.ErrNoPermission)
	}

	spec, ok := Lookup(name)
	if !ok {
		return errResult(ErrUnknownCmd)
	}

	if !spec.Arity.Allows(len(args)) {
		return errResult(ErrWrongArgNum)
	}

	keys, channels := extractKeyArgs(spec.Keys, args)
	if err := ctx.AC().CheckCommand(spec.Category, spec.CmdBit, keys, spec.Keys.Kind, channels); err != nil {
		return errResult(err)
	}

	reply, hasReply, err := spec.Handler(ctx, args)
	if err != nil {
		return errResult(err)
	}

	return Result{Reply: reply, Suppressed: !hasReply, Propagate: spec.Write}
}

func errResult(err error) Result {
	return Result{Reply: ToFrame(err)}
}

// normalizeName upper-cases args[0] into a bounded buffer, rejecting
// non-UTF8 or too-long names as UnknownCmd rather than attempting to
// dispatch them.
func normalizeName(raw []byte) (string, bool) {
	if len(raw) == 0 || len(raw) > maxCommandNameLen || !utf8.Valid(raw) {
		return "", false
	}
	return strings.ToUpper(string(raw)), true
}

// extractKeyArgs resolves a KeySpec against the full argument list
// (including the command name at index 0). The resolved arguments come
// back as keys, or as channels when the spec is marked Channel (the
// pub/sub commands); a command never yields both.
func extractKeyArgs(spec KeySpec, args [][]byte) (keys, channels []string) {
	if spec.FirstKey < 0 {
		return nil, nil
	}
	last := spec.LastKey
	if last < 0 || last >= len(args) {
		last = len(args) - 1
	}
	step := spec.Step
	if step < 1 {
		step = 1
	}
	var out []string
	for i := spec.FirstKey; i <= last && i < len(args); i += step {
		out = append(out, string(args[i]))
	}
	if spec.Channel {
		return nil, out
	}
	return out, nil
}
