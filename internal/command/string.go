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

func keySpec(first, last, step int, kind acl.AccessKind) KeySpec {
	return KeySpec{FirstKey: first, LastKey: last, Step: step, Kind: kind}
}

func init() {
	register(Spec{Name: "GET", Category: acl.CatString | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdGet})
	register(Spec{Name: "SET", Category: acl.CatString | acl.CatWrite, Arity: -3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdSet})
	register(Spec{Name: "SETEX", Category: acl.CatString | acl.CatWrite, Arity: 4, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdSetEx})
	register(Spec{Name: "APPEND", Category: acl.CatString | acl.CatWrite, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessReadWrite), Write: true, Handler: cmdAppend})
	register(Spec{Name: "STRLEN", Category: acl.CatString | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdStrlen})
	register(Spec{Name: "INCR", Category: acl.CatString | acl.CatWrite, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessReadWrite), Write: true, Handler: cmdIncr})
	register(Spec{Name: "DECR", Category: acl.CatString | acl.CatWrite, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessReadWrite), Write: true, Handler: cmdDecr})
	register(Spec{Name: "INCRBY", Category: acl.CatString | acl.CatWrite, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessReadWrite), Write: true, Handler: cmdIncrBy})
	register(Spec{Name: "DECRBY", Category: acl.CatString | acl.CatWrite, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessReadWrite), Write: true, Handler: cmdDecrBy})
	register(Spec{Name: "GETRANGE", Category: acl.CatString | acl.CatRead, Arity: 4, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdGetRange})
	register(Spec{Name: "GETSET", Category: acl.CatString | acl.CatWrite, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessReadWrite), Write: true, Handler: cmdGetSet})
	register(Spec{Name: "MGET", Category: acl.CatString | acl.CatRead, Arity: -2, Keys: keySpec(1, -1, 1, acl.AccessRead), Handler: cmdMGet})
	register(Spec{Name: "MSET", Category: acl.CatString | acl.CatWrite, Arity: -3, Keys: keySpec(1, -1, 2, acl.AccessWrite), Write: true, Handler: cmdMSet})
	register(Spec{Name: "MSETNX", Category: acl.CatString | acl.CatWrite, Arity: -3, Keys: keySpec(1, -1, 2, acl.AccessWrite), Write: true, Handler: cmdMSetNx})
}

func cmdGet(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	s, ok, err := getStr(ctx.DB(), store.NewKey(args[1]))
	if err != nil {
		return resp3.Frame{}, false, err
	}
	if !ok {
		return resp3.Null(), true, nil
	}
	return resp3.BlobString(s), true, nil
}

func cmdSet(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	k := store.NewKey(args[1])
	val := store.Str(append([]byte(nil), args[2]...))
	var expire time.Time
	for i := 3; i < len(args); i++ {
		switch string(upper(args[i])) {
		case "EX":
			if i+1 >= len(args) {
				return resp3.Frame{}, false, ErrSyntax
			}
			n, err := parseInt(args[i+1])
			if err != nil {
				return resp3.Frame{}, false, err
			}
			expire = time.Now().Add(time.Duration(n) * time.Second)
			i++
		case "PX":
			if i+1 >= len(args) {
				return resp3.Frame{}, false, ErrSyntax
			}
			n, err := parseInt(args[i+1])
			if err != nil {
				return resp3.Frame{}, false, err
			}
			expire = time.Now().Add(time.Duration(n) * time.Millisecond)
			i++
		default:
			return resp3.Frame{}, false, ErrSyntax
		}
	}
	obj := store.NewObject(val)
	obj.Expire = expire
	ctx.DB().Insert(k, obj)
	return resp3.SimpleString("OK"), true, nil
}

func cmdSetEx(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	secs, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	obj := store.NewObject(store.Str(append([]byte(nil), args[3]...)))
	obj.Expire = time.Now().Add(time.Duration(secs) * time.Second)
	ctx.DB().Insert(store.NewKey(args[1]), obj)
	return resp3.SimpleString("OK"), true, nil
}

func cmdAppend(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	k := store.NewKey(args[1])
	var newLen int
	err := ctx.DB().UpdateOrCreate(k,
		func() store.Value { return store.Str(nil) },
		func(o *store.Object) error {
			s, ok := o.Value.(store.Str)
			if !ok {
				return &store.ErrWrongType{Expected: store.TypeString, Found: o.Value.Type()}
			}
			s = append(s, args[2]...)
			o.Value = s
			newLen = len(s)
			return nil
		})
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(int64(newLen)), true, nil
}

func cmdStrlen(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	s, ok, err := getStr(ctx.DB(), store.NewKey(args[1]))
	if err != nil {
		return resp3.Frame{}, false, err
	}
	if !ok {
		return resp3.Integer(0), true, nil
	}
	return resp3.Integer(int64(len(s))), true, nil
}

func incrByHelper(ctx Context, key []byte, delta int64) (resp3.Frame, bool, error) {
	k := store.NewKey(key)
	var result int64
	err := ctx.DB().UpdateOrCreate(k,
		func() store.Value { return store.Str("0") },
		func(o *store.Object) error {
			s, ok := o.Value.(store.Str)
			if !ok {
				return &store.ErrWrongType{Expected: store.TypeString, Found: o.Value.Type()}
			}
			cur, err := parseInt(s)
			if err != nil {
				return err
			}
			next := cur + delta
			if (delta > 0 && next < cur) || (delta < 0 && next > cur) {
				return ErrOverflow
			}
			result = next
			o.Value = store.Str(strconvItoa(next))
			return nil
		})
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(result), true, nil
}

func cmdIncr(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return incrByHelper(ctx, args[1], 1)
}

func cmdDecr(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return incrByHelper(ctx, args[1], -1)
}

func cmdIncrBy(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	n, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return incrByHelper(ctx, args[1], n)
}

func cmdDecrBy(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	n, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return incrByHelper(ctx, args[1], -n)
}

func cmdGetRange(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	s, ok, err := getStr(ctx.DB(), store.NewKey(args[1]))
	if err != nil {
		return resp3.Frame{}, false, err
	}
	if !ok {
		return resp3.BlobString(nil), true, nil
	}
	start, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	end, err := parseInt(args[3])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	from, to := clampRange(int(start), int(end), len(s))
	if from > to {
		return resp3.BlobString(nil), true, nil
	}
	return resp3.BlobString(s[from : to+1]), true, nil
}

func clampRange(start, end, n int) (int, int) {
	if n == 0 {
		return 0, -1
	}
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	return start, end
}

func cmdGetSet(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	k := store.NewKey(args[1])
	newVal := store.Str(append([]byte(nil), args[2]...))
	prev, existed := ctx.DB().Insert(k, store.NewObject(newVal))
	if !existed {
		return resp3.Null(), true, nil
	}
	s, ok := prev.Value.(store.Str)
	if !ok {
		return resp3.Frame{}, false, &store.ErrWrongType{Expected: store.TypeString, Found: prev.Value.Type()}
	}
	return resp3.BlobString(s), true, nil
}

func cmdMGet(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	elems := make([]resp3.Frame, 0, len(args)-1)
	for _, k := range args[1:] {
		s, ok, err := getStr(ctx.DB(), store.NewKey(k))
		if err != nil || !ok {
			elems = append(elems, resp3.Null())
			continue
		}
		elems = append(elems, resp3.BlobString(s))
	}
	return resp3.Array(elems...), true, nil
}

func cmdMSet(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if (len(args)-1)%2 != 0 {
		return resp3.Frame{}, false, ErrWrongArgNum
	}
	for i := 1; i < len(args); i += 2 {
		ctx.DB().Insert(store.NewKey(args[i]), store.NewObject(store.Str(append([]byte(nil), args[i+1]...))))
	}
	return resp3.SimpleString("OK"), true, nil
}

func cmdMSetNx(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if (len(args)-1)%2 != 0 {
		return resp3.Frame{}, false, ErrWrongArgNum
	}
	for i := 1; i < len(args); i += 2 {
		if ctx.DB().Exists(store.NewKey(args[i])) {
			return resp3.Integer(0), true, nil
		}
	}
	for i := 1; i < len(args); i += 2 {
		ctx.DB().Insert(store.NewKey(args[i]), store.NewObject(store.Str(append([]byte(nil), args[i+1]...))))
	}
	return resp3.Integer(1), true, nil
}
