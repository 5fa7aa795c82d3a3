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
	"github.com/launix-de/rkv/internal/store"
)

func init() {
	register(Spec{Name: "HSET", Category: acl.CatHash | acl.CatWrite, Arity: -4, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdHSet})
	register(Spec{Name: "HGET", Category: acl.CatHash | acl.CatRead, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdHGet})
	register(Spec{Name: "HDEL", Category: acl.CatHash | acl.CatWrite, Arity: -3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdHDel})
	register(Spec{Name: "HEXISTS", Category: acl.CatHash | acl.CatRead, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdHExists})
	register(Spec{Name: "HGETALL", Category: acl.CatHash | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdHGetAll})
	register(Spec{Name: "HKEYS", Category: acl.CatHash | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdHKeys})
	register(Spec{Name: "HVALS", Category: acl.CatHash | acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdHVals})
	register(Spec{Name: "HINCRBY", Category: acl.CatHash | acl.CatWrite, Arity: 4, Keys: keySpec(1, 1, 1, acl.AccessReadWrite), Write: true, Handler: cmdHIncrBy})
}

func withHash(db *store.Db, k store.Key, fn func(h *store.Hash) error) error {
	return db.Visit(k, func(v store.Value) error {
		h, ok := v.(*store.Hash)
		if !ok {
			return &store.ErrWrongType{Expected: store.TypeHash, Found: v.Type()}
		}
		return fn(h)
	})
}

func cmdHSet(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if (len(args)-2)%2 != 0 {
		return resp3.Frame{}, false, ErrWrongArgNum
	}
	added := 0
	err := ctx.DB().UpdateOrCreate(store.NewKey(args[1]),
		func() store.Value { return store.NewHash() },
		func(o *store.Object) error {
			h, ok := o.Value.(*store.Hash)
			if !ok {
				return &store.ErrWrongType{Expected: store.TypeHash, Found: o.Value.Type()}
			}
			for i := 2; i < len(args); i += 2 {
				if h.Set(string(args[i]), store.Str(append([]byte(nil), args[i+1]...))) {
					added++
				}
			}
			return nil
		})
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(int64(added)), true, nil
}

func cmdHGet(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var val store.Str
	var found bool
	err := withHash(ctx.DB(), store.NewKey(args[1]), func(h *store.Hash) error {
		val, found = h.Get(string(args[2]))
		return nil
	})
	if err == store.ErrNotFound || !found {
		return resp3.Null(), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.BlobString(val), true, nil
}

func cmdHDel(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	removed := 0
	err := ctx.DB().Update(store.NewKey(args[1]), func(o *store.Object) error {
		h, ok := o.Value.(*store.Hash)
		if !ok {
			return &store.ErrWrongType{Expected: store.TypeHash, Found: o.Value.Type()}
		}
		for _, f := range args[2:] {
			if h.Del(string(f)) {
				removed++
			}
		}
		return nil
	})
	if err == store.ErrNotFound {
		return resp3.Integer(0), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(int64(removed)), true, nil
}

func cmdHExists(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var has bool
	err := withHash(ctx.DB(), store.NewKey(args[1]), func(h *store.Hash) error {
		has = h.Has(string(args[2]))
		return nil
	})
	if err == store.ErrNotFound {
		return resp3.Integer(0), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	if has {
		return resp3.Integer(1), true, nil
	}
	return resp3.Integer(0), true, nil
}

func cmdHGetAll(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var pairs []resp3.KV
	err := withHash(ctx.DB(), store.NewKey(args[1]), func(h *store.Hash) error {
		for f, v := range h.All() {
			pairs = append(pairs, resp3.KV{Key: resp3.BlobStringFromString(f), Value: resp3.BlobString(v)})
		}
		return nil
	})
	if err == store.ErrNotFound {
		return resp3.Map(), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Map(pairs...), true, nil
}

func cmdHKeys(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var elems []resp3.Frame
	err := withHash(ctx.DB(), store.NewKey(args[1]), func(h *store.Hash) error {
		for f := range h.All() {
			elems = append(elems, resp3.BlobStringFromString(f))
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

func cmdHVals(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var elems []resp3.Frame
	err := withHash(ctx.DB(), store.NewKey(args[1]), func(h *store.Hash) error {
		for _, v := range h.All() {
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

func cmdHIncrBy(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	delta, err := parseInt(args[3])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	var result int64
	err = ctx.DB().UpdateOrCreate(store.NewKey(args[1]),
		func() store.Value { return store.NewHash() },
		func(o *store.Object) error {
			h, ok := o.Value.(*store.Hash)
			if !ok {
				return &store.ErrWrongType{Expected: store.TypeHash, Found: o.Value.Type()}
			}
			cur := int64(0)
			if v, ok := h.Get(string(args[2])); ok {
				cur, err = parseInt(v)
				if err != nil {
					return err
				}
			}
			result = cur + delta
			h.Set(string(args[2]), store.Str(strconvItoa(result)))
			return nil
		})
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(result), true, nil
}
