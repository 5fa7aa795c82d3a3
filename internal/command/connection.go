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
	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/resp3"
)

func init() {
	register(Spec{Name: "PING", Category: acl.CatConnection, Arity: -1, Keys: noKeys, Handler: cmdPing})
	register(Spec{Name: "ECHO", Category: acl.CatConnection, Arity: 2, Keys: noKeys, Handler: cmdEcho})
	register(Spec{Name: "AUTH", Category: acl.CatConnection, Arity: -2, Keys: noKeys, Handler: cmdAuth})
	register(Spec{Name: "HELLO", Category: acl.CatConnection, Arity: -1, Keys: noKeys, Handler: cmdHello})
	register(Spec{Name: "QUIT", Category: acl.CatConnection, Arity: 1, Keys: noKeys, Handler: cmdQuit})
	register(Spec{Name: "CLIENT", Category: acl.CatConnection, Arity: -2, Keys: noKeys, Handler: cmdClient})
}

func cmdPing(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if len(args) == 2 {
		return resp3.BlobStringFromString(string(args[1])), true, nil
	}
	return resp3.SimpleString("PONG"), true, nil
}

func cmdEcho(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return resp3.BlobStringFromString(string(args[1])), true, nil
}

func cmdAuth(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var username, password string
	switch len(args) {
	case 2:
		password = string(args[1])
	case 3:
		username, password = string(args[1]), string(args[2])
	default:
		return resp3.Frame{}, false, ErrWrongArgNum
	}

	ac := ctx.AC()
	if username != "" {
		reg := getAclRegistry()
		if reg == nil {
			return resp3.Frame{}, false, acl.ErrNoPermission
		}
		u, ok := reg.Get(username)
		if !ok {
			return resp3.Frame{}, false, acl.ErrNoPermission
		}
		ac = u
	}
	if !ac.CheckPassword(password) {
		return resp3.Frame{}, false, acl.ErrNoPermission
	}
	ctx.SetAC(ac)
	ctx.SetAuthenticated(true)
	return resp3.SimpleString("OK"), true, nil
}

func cmdHello(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if len(args) > 1 {
		h, err := resp3.DecodeHello(args[1:])
		if err != nil {
			return resp3.Frame{}, false, ServerError{Msg: err.Error()}
		}
		if h.HasAuth {
			ac := ctx.AC()
			if h.User != "" {
				reg := getAclRegistry()
				if reg == nil {
					return resp3.Frame{}, false, acl.ErrNoPermission
				}
				u, ok := reg.Get(h.User)
				if !ok {
					return resp3.Frame{}, false, acl.ErrNoPermission
				}
				ac = u
			}
			if !ac.CheckPassword(h.Pass) {
				return resp3.Frame{}, false, acl.ErrNoPermission
			}
			ctx.SetAC(ac)
			ctx.SetAuthenticated(true)
		}
	}
	return resp3.Map(
		resp3.KV{Key: resp3.BlobStringFromString("server"), Value: resp3.BlobStringFromString("rkv")},
		resp3.KV{Key: resp3.BlobStringFromString("proto"), Value: resp3.Integer(3)},
		resp3.KV{Key: resp3.BlobStringFromString("mode"), Value: resp3.BlobStringFromString("standalone")},
		resp3.KV{Key: resp3.BlobStringFromString("role"), Value: resp3.BlobStringFromString("master")},
	), true, nil
}

func cmdQuit(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return resp3.SimpleString("OK"), true, nil
}

func cmdClient(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if len(args) < 2 {
		return resp3.Frame{}, false, ErrWrongArgNum
	}
	switch string(upper(args[1])) {
	case "LIST":
		return resp3.BlobStringFromString(""), true, nil
	case "INFO":
		snap := ctx.AC().Snapshot()
		info := "id=" + itoa(ctx.ID()) + " name=" + snap.Name
		return resp3.BlobStringFromString(info), true, nil
	case "GETNAME":
		return resp3.BlobStringFromString(ctx.AC().Snapshot().Name), true, nil
	default:
		return resp3.SimpleString("OK"), true, nil
	}
}
