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
	register(Spec{Name: "ZADD", Category: acl.CatWrite, Arity: -4, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdZAdd})
	register(Spec{Name: "ZSCORE", Category: acl.CatRead, Arity: 3, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdZScore})
	register(Spec{Name: "ZRANGE", Category: acl.CatRead, Arity: 4, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdZRange})
	register(Spec{Name: "ZRANGEBYSCORE", Category: acl.CatRead, Arity: 4, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdZRangeByScore})
	register(Spec{Name: "ZREM", Category: acl.CatWrite, Arity: -3, Keys: keySpec(1, 1, 1, acl.AccessWrite), Write: true, Handler: cmdZRem})
	register(Spec{Name: "ZCARD", Category: acl.CatRead, Arity: 2, Keys: keySpec(1, 1, 1, acl.AccessRead), Handler: cmdZCard})
}

func cmdZAdd(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if (len(args)-2)%2 != 0 {
		return resp3.Frame{}, false, ErrWrongArgNum
	}
	type pair struct {
		score  float64
		member string
	}
	pairs := make([]pair, 0, (len(args)-2)/2)
	for i := 2; i < len(args); i += 2 {
		score, err := parseFloat(args[i])
		if err != nil {
			return resp3.Frame{}, false, err
		}
		pairs = append(pairs, pair{score: score, member: string(args[i+1])})
	}
	added := 0
	err := ctx.DB().UpdateOrCreate(store.NewKey(args[1]),
		func() store.Value { return store.NewZSet() },
		func(o *store.Object) error {
			z, ok := o.Value.(*store.ZSet)
			if !ok {
				return &store.ErrWrongType{Expected: store.TypeZSet, Found: o.Value.Type()}
			}
			for _, p := range pairs {
				if z.Add(p.member, p.score) {
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

func withZSet(db *store.Db, k store.Key, fn func(z *store.ZSet) error) error {
	return db.Visit(k, func(v store.Value) error {
		z, ok := v.(*store.ZSet)
		if !ok {
			return &store.ErrWrongType{Expected: store.TypeZSet, Found: v.Type()}
		}
		return fn(z)
	})
}

func cmdZScore(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var score float64
	var found bool
	err := withZSet(ctx.DB(), store.NewKey(args[1]), func(z *store.ZSet) error {
		score, found = z.Score(string(args[2]))
		return nil
	})
	if err == store.ErrNotFound || !found {
		return resp3.Null(), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Double(score), true, nil
}

func cmdZRange(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	start, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	stop, err := parseInt(args[3])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	var elems []resp3.Frame
	err = withZSet(ctx.DB(), store.NewKey(args[1]), func(z *store.ZSet) error {
		n := z.Len()
		from, to := clampRange(int(start), int(stop), n)
		if from > to {
			return nil
		}
		for _, e := range z.RangeByIndex(from, to) {
			elems = append(elems, resp3.BlobStringFromString(e.Member()))
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

func cmdZRangeByScore(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	min, err := parseFloat(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	max, err := parseFloat(args[3])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	var elems []resp3.Frame
	err = withZSet(ctx.DB(), store.NewKey(args[1]), func(z *store.ZSet) error {
		for _, e := range z.RangeByScore(min, max) {
			elems = append(elems, resp3.BlobStringFromString(e.Member()))
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

func cmdZRem(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	removed := 0
	err := ctx.DB().Update(store.NewKey(args[1]), func(o *store.Object) error {
		z, ok := o.Value.(*store.ZSet)
		if !ok {
			return &store.ErrWrongType{Expected: store.TypeZSet, Found: o.Value.Type()}
		}
		for _, m := range args[2:] {
			if z.Remove(string(m)) {
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

func cmdZCard(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	var n int
	err := withZSet(ctx.DB(), store.NewKey(args[1]), func(z *store.ZSet) error { n = z.Len(); return nil })
	if err == store.ErrNotFound {
		return resp3.Integer(0), true, nil
	}
	if err != nil {
		return resp3.Frame{}, false, err
	}
	return resp3.Integer(int64(n)), true, nil
}
