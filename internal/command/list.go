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
	"time"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/store"
)

func init() {
	register(Spec{Name: "LLEN", Category: acl.CatList | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdLLen})
	register(Spec{Name: "LPUSH", Category: acl.CatList | acl.CatWrite, Arity: -3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdLPush})
	register(Spec{Name: "RPUSH", Category: acl.CatList | acl.CatWrite, Arity: -3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdRPush})
	register(Spec{Name: "LPOP", Category: acl.CatList | acl.CatWrite, Arity: -2, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdLPop})
	register(Spec{Name: "RPOP", Category: acl.CatList | acl.CatWrite, Arity: -2, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdRPop})
	register(Spec{Name: "BLPOP", Category: acl.CatList | acl.CatWrite, Arity: -3, Keys: keySpec(1, -2, 1, acl.AccessWrite), Write: true, Handler: cmdBLPop})
	register(Spec{Name: "LPOS", Category: acl.CatList | acl.CatRead, Arity: -3, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdLPos})
	register(Spec{Name: "LRANGE", Category: acl.CatList | acl.CatRead, Arity: 4, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdLRange})
	register(Spec{Name: "LINDEX", Category: acl.CatList | acl.CatRead, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdLIndex})
	register(Spec{Name: "LSET", Category: acl.CatList | acl.CatWrite, Arity: 4, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdLSet})
}

func withList(db *store.Db, k store.Key, fn func(l *store.List) error) error {
	return db.Visit(k, func(v store.Value) error {
		l, ok := v.(*store.List)
		if !ok {
			return &store.ErrWrongType{Expected: store.TypeList, Found: v.Type()}
		}
		return fn(l)
	})
}

func cmdLLen(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var n int
	err := withList(ctx.DB(), store.NewKey(args[1]), func(l *store.List) error { n = l.Len(); return nil })
	if err == store.ErrNotFound {
		return resp3.Integer(0), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(int64(n)), true, nil
}

func pushHelper(ctx Context, key []byte, values [][]byte, left bool) (resp3.Frame, bool, error) {
	k := store.NewKey(key)
	var newLen int
	err := ctx.DB().UpdateOrCreate(k,
		func() store.Value { return store.NewList() },
		func(o *store.Object) error {
			l, ok := o.Value.(*store.List)
			if !ok {
				return &store.ErrWrongType{Expected: store.TypeList, Found: o.Value.Type()}
			}
			for _, v := range values {
				if left {
					l.PushLeft(store.Str(append([]byte(nil), v...)))
				} else {
					l.PushRight(store.Str(append([]byte(nil), v...)))
				}
			}
			newLen = l.Len()
			return nil
		})
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(int64(newLen)), true, nil
}

func cmdLPush(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return pushHelper(ctx, args[1], args[2:], true)
}

func cmdRPush(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return pushHelper(ctx, args[1], args[2:], false)
}

func popHelper(ctx Context, key []byte, left bool) (resp3.Frame, bool, error) {
	k := store.NewKey(key)
	var popped store.Str
	var ok bool
	err := ctx.DB().Update(k, func(o *store.Object) error {
		l, isList := o.Value.(*store.List)
		if !isList {
			return &store.ErrWrongType{Expected: store.TypeList, Found: o.Value.Type()}
		}
		if left {
			popped, ok = l.PopLeft()
		} else {
			popped, ok = l.PopRight()
		}
		return nil
	})
	if err == store.ErrNotFound || !ok {
		return resp3.Null(), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.BlobString(popped), true, nil
}

func cmdLPop(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return popHelper(ctx, args[1], true)
}

func cmdRPop(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return popHelper(ctx, args[1], false)
}

// cmdBLPop is a bounded-wait LPOP across one or more keys: the last
// argument is a timeout in seconds (0 means wait indefinitely up to a
// generous internal cap, since this server has no true per-key wakeup
// channel wired yet and instead polls).
func cmdBLPop(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	timeoutSecs, err := parseFloat(args[len(args)-1])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	deadline := time.Now().Add(time.Duration(timeoutSecs * float64(time.Second)))
	if timeoutSecs == 0 {
		deadline = time.Now().Add(time.Minute)
	}
	keys := args[1 : len(args)-1]

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, key := range keys {
			frame, _, perr := popHelper(ctx, key, true)
			if perr != nil {
				return resp3.Frame{}, false, perr
			}
			if frame.Type != resp3.TypeNull {
				return resp3.Array(resp3.BlobStringFromString(string(key)), frame), true, nil
			}
		}
		if time.Now().After(deadline) {
			return resp3.Null(), true, nil
		}
		select {
		case <-ticker.C:
		case <-context.Background().Done():
			return resp3.Null(), true, nil
		}
	}
}

func cmdLPos(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	target := args[2]
	var idx = -1
	err := withList(ctx.DB(), store.NewKey(args[1]), func(l *store.List) error {
		for i := 0; i < l.Len(); i++ {
			v, _ := l.Index(i)
			if string(v) == string(target) {
				idx = i
				return nil
			}
		}
		return nil
	})
	if err == store.ErrNotFound || idx < 0 {
		return resp3.Null(), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(int64(idx)), true, nil
}

func cmdLRange(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	start, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	stop, err := parseInt(args[3])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	var elems []resp3.Frame
	err = withList(ctx.DB(), store.NewKey(args[1]), func(l *store.List) error {
		from, to := clampRange(int(start), int(stop), l.Len())
		if from > to {
			return nil
		}
		for _, v := range l.Range(from, to) {
			elems = append(elems, resp3.BlobString(v))
		}
		return nil
	})
	if err == store.ErrNotFound {
		return resp3.Array(), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Array(elems...), true, nil
}

func cmdLIndex(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	idx, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	var out store.Str
	var found bool
	err = withList(ctx.DB(), store.NewKey(args[1]), func(l *store.List) error {
		i := int(idx)
		if i < 0 {
			i += l.Len()
		}
		out, found = l.Index(i)
		return nil
	})
	if err == store.ErrNotFound || !found {
		return resp3.Null(), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.BlobString(out), true, nil
}

func cmdLSet(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	idx, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	err = ctx.DB().Update(store.NewKey(args[1]), func(o *store.Object) error {
		l, ok := o.Value.(*store.List)
		if !ok {
			return &store.ErrWrongType{Expected: store.TypeList, Found: o.Value.Type()}
		}
		i := int(idx)
		if i < 0 {
			i += l.Len()
		}
		if !l.Set(i, store.Str(append([]byte(nil), args[3]...))) {
			return ServerError{Msg: "index out of range"}
		}
		return nil
	})
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.SimpleString("OK"), true, nil
}
