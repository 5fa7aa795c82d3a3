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
	"bytes"
	"strconv"

	"github.com/launix-de/rkv/internal/store"
)

func upper(b []byte) []byte { return bytes.ToUpper(b) }

func itoa(n uint64) string { return strconv.FormatUint(n, 10) }

func strconvItoa(n int64) string { return strconv.FormatInt(n, 10) }

func parseInt(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, A2IParseError{Bytes: b}
	}
	return n, nil
}

func parseFloat(b []byte) (float64, error) {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, A2FParseError{Bytes: b}
	}
	return f, nil
}

// getStr loads the string value at k, returning (nil, false, nil) if
// absent and a WRONGTYPE error if k holds a different type.
func getStr(db *store.Db, k store.Key) (store.Str, bool, error) {
	o, ok := db.Get(k)
	if !ok {
		return nil, false, nil
	}
	s, ok := o.Value.(store.Str)
	if !ok {
		return nil, false, &store.ErrWrongType{Expected: store.TypeString, Found: o.Value.Type()}
	}
	return s, true, nil
}
