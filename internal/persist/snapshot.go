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
package persist

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/store"
)

// snapshotMagic tags the aux header record every snapshot starts with, so
// LoadSnapshot can tell it apart from a key record (which is always a
// 4-element array) without a separate outer envelope.
const snapshotMagic = "__rkv_snapshot__"

// A snapshot is a stream of self-delimiting RESP3 frames: an aux header
// record identifying the save run, followed by one record per live key
// shaped as:
//
//	[key, expireUnixMilli, typeName, value]
//
// reusing the wire codec rather than a bespoke binary format: the snapshot
// reader is a resp3.Reader, the same decoder the connection handler and
// AOF replay already use, so there is exactly one framing implementation
// in the whole module (grounded on the "one PersistenceEngine, many
// backends" shape of memcp's storage package, but with rkv's own flat
// encoding since there is no column/table schema to mirror).
//
// expireUnixMilli is 0 for keys without a TTL.
func EncodeSnapshot(db *store.Db, codec Codec) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(resp3.Encode(nil, resp3.Array(
		resp3.BlobStringFromString(snapshotMagic),
		resp3.BlobStringFromString(uuid.NewString()),
	)))
	for _, k := range db.Keys() {
		obj, ok := db.Get(k)
		if !ok {
			continue
		}
		rec, err := encodeRecord(k, obj)
		if err != nil {
			return nil, err
		}
		buf.Write(resp3.Encode(nil, rec))
	}
	return compress(codec, buf.Bytes())
}

// LoadSnapshot decompresses data and inserts every record into db. db is
// expected to be empty (called once at startup, before the server accepts
// connections).
func LoadSnapshot(db *store.Db, data []byte) error {
	raw, err := decompress(data)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	r := resp3.NewReader(bytes.NewReader(raw))
	for {
		f, err := r.ReadFrame()
		if err != nil {
			return nil // EOF ends the snapshot cleanly
		}
		if err := decodeRecord(db, f); err != nil {
			return err
		}
	}
}

func encodeRecord(k store.Key, obj *store.Object) (resp3.Frame, error) {
	var expireMs int64
	if !obj.Expire.IsZero() {
		expireMs = obj.Expire.UnixMilli()
	}

	valueFrame, typeName, err := encodeValue(obj.Value)
	if err != nil {
		return resp3.Frame{}, err
	}

	return resp3.Array(
		resp3.BlobString(k.Bytes()),
		resp3.Integer(expireMs),
		resp3.BlobStringFromString(typeName),
		valueFrame,
	), nil
}

func encodeValue(v store.Value) (resp3.Frame, string, error) {
	switch val := v.(type) {
	case store.Str:
		return resp3.BlobString(val), "string", nil
	case *store.List:
		items := val.Range(0, val.Len()-1)
		elems := make([]resp3.Frame, len(items))
		for i, it := range items {
			elems[i] = resp3.BlobString(it)
		}
		return resp3.Array(elems...), "list", nil
	case *store.SetVal:
		members := val.Members()
		elems := make([]resp3.Frame, len(members))
		for i, m := range members {
			elems[i] = resp3.BlobStringFromString(m)
		}
		return resp3.Set(elems...), "set", nil
	case *store.Hash:
		fields := val.All()
		pairs := make([]resp3.KV, 0, len(fields))
		for field, fv := range fields {
			pairs = append(pairs, resp3.KV{Key: resp3.BlobStringFromString(field), Value: resp3.BlobString(fv)})
		}
		return resp3.Map(pairs...), "hash", nil
	case *store.ZSet:
		entries := val.Members()
		pairs := make([]resp3.KV, 0, len(entries))
		for _, e := range entries {
			pairs = append(pairs, resp3.KV{Key: resp3.BlobStringFromString(e.Member()), Value: resp3.Double(e.ScoreOf())})
		}
		return resp3.Map(pairs...), "zset", nil
	default:
		return resp3.Frame{}, "", fmt.Errorf("persist: unsupported value type %T", v)
	}
}

func decodeRecord(db *store.Db, f resp3.Frame) error {
	if f.Type == resp3.TypeArray && len(f.Elems) == 2 && string(f.Elems[0].Str) == snapshotMagic {
		return nil // aux header record: run id, nothing to restore
	}
	if f.Type != resp3.TypeArray || len(f.Elems) != 4 {
		return fmt.Errorf("persist: malformed snapshot record")
	}
	key := store.NewKey(f.Elems[0].Str)
	expireMs := f.Elems[1].Int
	typeName := string(f.Elems[2].Str)
	valueFrame := f.Elems[3]

	val, err := decodeValue(typeName, valueFrame)
	if err != nil {
		return err
	}

	obj := store.NewObject(val)
	if expireMs != 0 {
		obj.Expire = time.UnixMilli(expireMs)
	}
	db.Insert(key, obj)
	return nil
}

func decodeValue(typeName string, f resp3.Frame) (store.Value, error) {
	switch typeName {
	case "string":
		return store.Str(append([]byte(nil), f.Str...)), nil
	case "list":
		l := store.NewList()
		for _, e := range f.Elems {
			l.PushRight(store.Str(append([]byte(nil), e.Str...)))
		}
		return l, nil
	case "set":
		s := store.NewSetVal()
		for _, e := range f.Elems {
			s.Add(string(e.Str))
		}
		return s, nil
	case "hash":
		h := store.NewHash()
		for _, kv := range f.Pairs {
			h.Set(string(kv.Key.Str), store.Str(append([]byte(nil), kv.Value.Str...)))
		}
		return h, nil
	case "zset":
		z := store.NewZSet()
		for _, kv := range f.Pairs {
			z.Add(string(kv.Key.Str), kv.Value.Dbl)
		}
		return z, nil
	default:
		return nil, fmt.Errorf("persist: unknown value type %q in snapshot", typeName)
	}
}
