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
	"context"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/resp3"
)

func init() {
	register(Spec{Name: "EVAL", Category: acl.CatScripting | acl.CatWrite, Arity: -3, Keys: noKeys, Handler: cmdEval})
	register(Spec{Name: "EVALSHA", Category: acl.CatScripting | acl.CatWrite, Arity: -3, Keys: noKeys, Handler: cmdEvalSha})
	register(Spec{Name: "SCRIPT", Category: acl.CatScripting, Arity: -2, Keys: noKeys, Handler: cmdScript})
}

func cmdEval(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	numKeys, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	if numKeys < 0 || int(numKeys) > len(args)-3 {
		return resp3.Frame{}, false, ErrSyntax
	}
	keys := args[3 : 3+numKeys]
	argv := args[3+numKeys:]
	f, err := ctx.ScriptHost().Eval(context.Background(), args[1], keys, argv)
	if err != nil {
		return resp3.Frame{}, false, ServerError{Msg: err.Error()}
	}
	return f, true, nil
}

func cmdEvalSha(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	sha := string(args[1])
	if !ctx.ScriptHost().Exists(sha) {
		return resp3.Frame{}, false, ServerError{Msg: "NOSCRIPT No matching script"}
	}
	numKeys, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	if numKeys < 0 || int(numKeys) > len(args)-3 {
		return resp3.Frame{}, false, ErrSyntax
	}
	keys := args[3 : 3+numKeys]
	argv := args[3+numKeys:]
	f, err := ctx.ScriptHost().Eval(context.Background(), []byte(sha), keys, argv)
	if err != nil {
		return resp3.Frame{}, false, ServerError{Msg: err.Error()}
	}
	return f, true, nil
}

// flusher is implemented by script hosts that support SCRIPT FLUSH; a host
// that doesn't is treated as already-empty.
type flusher interface{ Flush() }

func cmdScript(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	switch string(upper(args[1])) {
	case "LOAD":
		if len(args) < 3 {
			return resp3.Frame{}, false, ErrWrongArgNum
		}
		sha, err := ctx.ScriptHost().Load(args[2])
		if err != nil {
			return resp3.Frame{}, false, ServerError{Msg: err.Error()}
		}
		return resp3.BlobStringFromString(sha), true, nil
	case "EXISTS":
		var elems []resp3.Frame
		for _, sha := range args[2:] {
			if ctx.ScriptHost().Exists(string(sha)) {
				elems = append(elems, resp3.Integer(1))
			} else {
				elems = append(elems, resp3.Integer(0))
			}
		}
		return resp3.Array(elems...), true, nil
	case "FLUSH":
		if f, ok := ctx.ScriptHost().(flusher); ok {
			f.Flush()
		}
		return resp3.SimpleString("OK"), true, nil
	default:
		return resp3.Frame{}, false, ErrSyntax
	}
}
