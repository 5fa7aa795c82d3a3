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
	register(Spec{Name: "SADD", Category: acl.CatWrite, Arity: -3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdSAdd})
	register(Spec{Name: "SREM", Category: acl.CatWrite, Arity: -3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdSRem})
	register(Spec{Name: "SMEMBERS", Category: acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdSMembers})
	register(Spec{Name: "SISMEMBER", Category: acl.CatRead, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdSIsMember})
	register(Spec{Name: "SCARD", Category: acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdSCard})
}

func withSet(db *store.Db, k store.Key, fn func(s *store.SetVal) error) error {
	return db.Visit(k, func(v store.Value) error {
		s, ok := v.(*store.SetVal)
		if !ok {
			return &store.ErrWrongType{Expected: store.TypeSet, Found: v.Type()}
		}
		return fn(s)
	})
}

func cmdSAdd(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	added := 0
	err := ctx.DB().UpdateOrCreate(store.NewKey(args[1]),
		func() store.Value { return store.NewSetVal() },
		func(o *store.Object) error {
			s, ok := o.Value.(*store.SetVal)
			if !ok {
				return &store.ErrWrongType{Expected: store.TypeSet, Found: o.Value.Type()}
			}
			for _, m := range args[2:] {
				if s.Add(string(m)) {
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

func cmdSRem(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	removed := 0
	err := ctx.DB().Update(store.NewKey(args[1]), func(o *store.Object) error {
		s, ok := o.Value.(*store.SetVal)
		if !ok {
			return &store.ErrWrongType{Expected: store.TypeSet, Found: o.Value.Type()}
		}
		for _, m := range args[2:] {
			if s.Remove(string(m)) {
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

func cmdSMembers(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var elems []resp3.Frame
	err := withSet(ctx.DB(), store.NewKey(args[1]), func(s *store.SetVal) error {
		for _, m := range s.Members() {
			elems = append(elems, resp3.BlobStringFromString(m))
		}
		return nil
	})
	if err == store.ErrNotFound {
		return resp3.Set(), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Set(elems...), true, nil
}

func cmdSIsMember(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var has bool
	err := withSet(ctx.DB(), store.NewKey(args[1]), func(s *store.SetVal) error {
		has = s.Has(string(args[2]))
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

func cmdSCard(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var n int
	err := withSet(ctx.DB(), store.NewKey(args[1]), func(s *store.SetVal) error { n = s.Len(); return nil })
	if err == store.ErrNotFound {
		return resp3.Integer(0), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(int64(n)), true, nil
}
