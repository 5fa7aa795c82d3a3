package persist

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

func TestSnapshotRoundTripsAllValueTypes(t *testing.T) {
	db := store.NewDb()
	db.Insert(store.NewKey([]byte("str")), store.NewObject(store.Str("hello")))

	l := store.NewList()
	l.PushRight(store.Str("a"))
	l.PushRight(store.Str("b"))
	db.Insert(store.NewKey([]byte("list")), store.NewObject(l))

	s := store.NewSetVal()
	s.Add("x")
	s.Add("y")
	db.Insert(store.NewKey([]byte("set")), store.NewObject(s))

	h := store.NewHash()
	h.Set("f1", store.Str("v1"))
	db.Insert(store.NewKey([]byte("hash")), store.NewObject(h))

	z := store.NewZSet()
	z.Add("m1", 1.5)
	z.Add("m2", 2.5)
	db.Insert(store.NewKey([]byte("zset")), store.NewObject(z))

	withTTL := store.NewObject(store.Str("expiring"))
	withTTL.Expire = time.Now().Add(time.Hour)
	db.Insert(store.NewKey([]byte("ttl")), withTTL)

	data, err := EncodeSnapshot(db, CodecLZ4)
	require.NoError(t, err)

	loaded := store.NewDb()
	require.NoError(t, LoadSnapshot(loaded, data))

	assert.Equal(t, 6, loaded.Len())

	obj, ok := loaded.Get(store.NewKey([]byte("str")))
	require.True(t, ok)
	assert.Equal(t, store.Str("hello"), obj.Value)

	obj, ok = loaded.Get(store.NewKey([]byte("ttl")))
	require.True(t, ok)
	assert.False(t, obj.Expire.IsZero())

	obj, ok = loaded.Get(store.NewKey([]byte("zset")))
	require.True(t, ok)
	zs := obj.Value.(*store.ZSet)
	score, ok := zs.Score("m2")
	require.True(t, ok)
	assert.Equal(t, 2.5, score)
}

func TestFileBackendSnapshotAndLogPersistAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	factory := &FileFactory{Basepath: dir}
	backend := factory.Open("db0")

	require.NoError(t, backend.WriteSnapshot([]byte("snapshot-bytes")))
	data, err := backend.ReadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "snapshot-bytes", string(data))

	log, err := backend.OpenLog()
	require.NoError(t, err)
	require.NoError(t, log.Write(encodeTestCommand("SET", "a", "1")))
	require.NoError(t, log.Write(encodeTestCommand("SET", "b", "2")))
	require.NoError(t, log.Close())

	reopened := factory.Open("db0")
	records, log2, err := reopened.ReplayLog()
	require.NoError(t, err)
	defer log2.Close()

	var commands [][][]byte
	for r := range records {
		args, err := resp3.NewReader(bytes.NewReader(r)).ReadCommand()
		require.NoError(t, err)
		commands = append(commands, args)
	}
	require.Len(t, commands, 2)
	assert.Equal(t, []string{"SET", "a", "1"}, toStrings(commands[0]))
	assert.Equal(t, []string{"SET", "b", "2"}, toStrings(commands[1]))
}

func TestFileBackendRemoveDeletesEverything(t *testing.T) {
	dir := t.TempDir()
	factory := &FileFactory{Basepath: dir}
	backend := factory.Open("db0")

	require.NoError(t, backend.WriteSnapshot([]byte("x")))
	require.NoError(t, backend.Remove())

	data, err := backend.ReadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestBootstrapReplaysLoggedWritesOntoFreshDb(t *testing.T) {
	dir := t.TempDir()
	factory := &FileFactory{Basepath: dir}
	backend := factory.Open("db0")

	log, err := backend.OpenLog()
	require.NoError(t, err)
	require.NoError(t, log.Write(encodeTestCommand("SET", "k1", "v1")))
	require.NoError(t, log.Write(encodeTestCommand("SET", "k2", "v2")))
	require.NoError(t, log.Close())

	db := store.NewDb()
	po := mailbox.New()
	require.NoError(t, Bootstrap(db, po, script.NewNoopHost(), backend))

	obj, ok := db.Get(store.NewKey([]byte("k1")))
	require.True(t, ok)
	assert.Equal(t, store.Str("v1"), obj.Value)

	obj, ok = db.Get(store.NewKey([]byte("k2")))
	require.True(t, ok)
	assert.Equal(t, store.Str("v2"), obj.Value)
}

func toStrings(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

func encodeTestCommand(args ...string) []byte {
	elems := make([]resp3.Frame, len(args))
	for i, a := range args {
		elems[i] = resp3.BlobStringFromString(a)
	}
	return resp3.Encode(nil, resp3.Array(elems...))
}
