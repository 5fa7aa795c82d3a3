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
	"time"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/store"
)

func init() {
	register(Spec{Name: "DEL", Category: acl.CatKeyspace | acl.CatWrite, Arity: -2, Keys: keySpec(1, -1, 1, acl.AccessWrite), Write: true, Handler: cmdDel})
	register(Spec{Name: "EXISTS", Category: acl.CatKeyspace | acl.CatRead, Arity: -2, Keys: keySpec(1, -1, 1, acl.AccessRead), Handler: cmdExists})
	register(Spec{Name: "EXPIRE", Category: acl.CatKeyspace | acl.CatWrite, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdExpire})
	register(Spec{Name: "PEXPIRE", Category: acl.CatKeyspace | acl.CatWrite, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdPExpire})
	register(Spec{Name: "EXPIREAT", Category: acl.CatKeyspace | acl.CatWrite, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdExpireAt})
	register(Spec{Name: "TTL", Category: acl.CatKeyspace | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdTTL})
	register(Spec{Name: "PTTL", Category: acl.CatKeyspace | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdPTTL})
	register(Spec{Name: "PERSIST", Category: acl.CatKeyspace | acl.CatWrite, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdPersist})
	register(Spec{Name: "TYPE", Category: acl.CatKeyspace | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdType})
	register(Spec{Name: "KEYS", Category: acl.CatKeyspace | acl.CatRead, Arity: 2, Keys: noKeys, Handler: cmdKeys})
	register(Spec{Name: "RENAME", Category: acl.CatKeyspace | acl.CatWrite, Arity: 3, Keys: keySpec(1, 2, 1, acl.AccessReadWrite), Write: true, Handler: cmdRename})
	register(Spec{Name: "RANDOMKEY", Category: acl.CatKeyspace | acl.CatRead, Arity: 1, Keys: noKeys, Handler: cmdRandomKey})
	register(Spec{Name: "SCAN", Category: acl.CatKeyspace | acl.CatRead, Arity: -2, Keys: noKeys, Handler: cmdScan})
	register(Spec{Name: "DBSIZE", Category: acl.CatKeyspace | acl.CatRead, Arity: 1, Keys: noKeys, Handler: cmdDbSize})
	register(Spec{Name: "FLUSHDB", Category: acl.CatKeyspace | acl.CatWrite | acl.CatDangerous, Arity: 1, Keys: noKeys, Write: true, Handler: cmdFlushDb})
	register(Spec{Name: "OBJECT", Category: acl.CatKeyspace | acl.CatRead, Arity: -2, Keys: noKeys, Handler: cmdObject})
}

func cmdDel(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	n := 0
	for _, k := range args[1:] {
		if _, ok := ctx.DB().Remove(store.NewKey(k)); ok {
			n++
		}
	}
	return resp3.Integer(int64(n)), true, nil
}

func cmdExists(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	n := 0
	for _, k := range args[1:] {
		if ctx.DB().Exists(store.NewKey(k)) {
			n++
		}
	}
	return resp3.Integer(int64(n)), true, nil
}

func expireHelper(ctx Context, key []byte, at time.Time) (resp3.Frame, bool, error) {
	err := ctx.DB().ExpireAt(store.NewKey(key), at)
	if err != nil {
		return resp3.Integer(0), true, nil
	}
	return resp3.Integer(1), true, nil
}

func cmdExpire(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	secs, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return expireHelper(ctx, args[1], time.Now().Add(time.Duration(secs)*time.Second))
}

func cmdPExpire(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	ms, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return expireHelper(ctx, args[1], time.Now().Add(time.Duration(ms)*time.Millisecond))
}

func cmdExpireAt(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	secs, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return expireHelper(ctx, args[1], time.Unix(secs, 0))
}

func cmdTTL(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	o, ok := ctx.DB().Get(store.NewKey(args[1]))
	if !ok {
		return resp3.Integer(-2), true, nil
	}
	if o.Expire.IsZero() {
		return resp3.Integer(-1), true, nil
	}
	remaining := time.Until(o.Expire)
	if remaining < 0 {
		return resp3.Integer(-2), true, nil
	}
	return resp3.Integer(int64(remaining.Seconds())), true, nil
}

func cmdPTTL(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	o, ok := ctx.DB().Get(store.NewKey(args[1]))
	if !ok {
		return resp3.Integer(-2), true, nil
	}
	if o.Expire.IsZero() {
		return resp3.Integer(-1), true, nil
	}
	remaining := time.Until(o.Expire)
	if remaining < 0 {
		return resp3.Integer(-2), true, nil
	}
	return resp3.Integer(remaining.Milliseconds()), true, nil
}

func cmdPersist(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	err := ctx.DB().ExpireAt(store.NewKey(args[1]), time.Time{})
	if err != nil {
		return resp3.Integer(0), true, nil
	}
	return resp3.Integer(1), true, nil
}

func cmdType(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	o, ok := ctx.DB().Get(store.NewKey(args[1]))
	if !ok {
		return resp3.SimpleString("none"), true, nil
	}
	return resp3.SimpleString(o.Value.Type().String()), true, nil
}

func cmdKeys(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	pattern := string(args[1])
	var elems []resp3.Frame
	for _, k := range ctx.DB().Keys() {
		if acl.MatchGlob(pattern, string(k)) {
			elems = append(elems, resp3.BlobStringFromString(string(k)))
		}
	}
	return resp3.Array(elems...), true, nil
}

func cmdRename(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	src := store.NewKey(args[1])
	dst := store.NewKey(args[2])
	o, ok := ctx.DB().Remove(src)
	if !ok {
		return resp3.Frame{}, false, ServerError{Msg: "no such key"}
	}
	ctx.DB().Insert(dst, o)
	return resp3.SimpleString("OK"), true, nil
}

func cmdRandomKey(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	keys := ctx.DB().Keys()
	if len(keys) == 0 {
		return resp3.Null(), true, nil
	}
	return resp3.BlobStringFromString(string(keys[0])), true, nil
}

// cmdScan implements a non-blocking, full-keyspace cursor iteration: the
// cursor is simply an index into a point-in-time key snapshot, which is
// simpler than a true rehash-stable cursor and sufficient for a
// single-process, non-resizing-during-scan store.
func cmdScan(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	cursor, err := parseInt(args[1])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	const pageSize = 100
	keys := ctx.DB().Keys()
	start := int(cursor)
	if start > len(keys) {
		start = len(keys)
	}
	end := start + pageSize
	if end > len(keys) {
		end = len(keys)
	}
	next := int64(0)
	if end < len(keys) {
		next = int64(end)
	}
	elems := make([]resp3.Frame, 0, end-start)
	for _, k := range keys[start:end] {
		elems = append(elems, resp3.BlobStringFromString(string(k)))
	}
	return resp3.Array(
		resp3.BlobStringFromString(strconvItoa(next)),
		resp3.Array(elems...),
	), true, nil
}

func cmdDbSize(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return resp3.Integer(int64(ctx.DB().Len())), true, nil
}

func cmdFlushDb(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	ctx.DB().Flush()
	return resp3.SimpleString("OK"), true, nil
}

func cmdObject(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if len(args) < 3 || string(upper(args[1])) != "ENCODING" {
		return resp3.Frame{}, false, ErrSyntax
	}
	o, ok := ctx.DB().Get(store.NewKey(args[2]))
	if !ok {
		return resp3.Null(), true, nil
	}
	return resp3.BlobStringFromString(encodingFor(o.Value)), true, nil
}

func encodingFor(v store.Value) string {
	switch v.Type() {
	case store.TypeString:
		return "raw"
	case store.TypeList:
		return "quicklist"
	case store.TypeSet:
		return "hashtable"
	case store.TypeHash:
		return "hashtable"
	case store.TypeZSet:
		return "skiplist"
	default:
		return "unknown"
	}
}
