package replica

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/persist"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/store"
)

func TestBacklogSinceWithinAndOutsideWindow(t *testing.T) {
	b := NewBacklog(16)
	off1 := b.Append([]byte("abcd"))
	off2 := b.Append([]byte("efgh"))

	data, ok := b.Since(off1)
	require.True(t, ok)
	assert.Equal(t, "efgh", string(data))

	assert.Equal(t, off2, b.Offset())

	_, ok = b.Since(-1)
	assert.False(t, ok)
}

func TestBacklogDropsOldDataPastCapacity(t *testing.T) {
	b := NewBacklog(4)
	b.Append([]byte("aaaa"))
	off := b.Append([]byte("bbbb"))

	_, ok := b.Since(0)
	assert.False(t, ok, "offset 0 should have fallen out of a 4-byte ring after 8 bytes written")

	data, ok := b.Since(off - 4)
	require.True(t, ok)
	assert.Equal(t, "bbbb", string(data))
}

type fakeAppender struct {
	records [][]byte
}

func (f *fakeAppender) Append(record []byte) error {
	f.records = append(f.records, record)
	return nil
}

func recvWithin(t *testing.T, inbox mailbox.Inbox, d time.Duration) mailbox.Letter {
	t.Helper()
	select {
	case l := <-inbox:
		return l
	case <-time.After(d):
		t.Fatal("timed out waiting for letter")
		return mailbox.Letter{}
	}
}

func TestHubPropagatesWcmdToAttachedReplicaAndAof(t *testing.T) {
	po := mailbox.New()
	db := store.NewDb()
	aof := &fakeAppender{}
	StartHub(po, db, aof)

	replicaID, replicaInbox, _ := po.RegisterAuto()
	po.Send(mailbox.RunReplicaID, mailbox.AddReplicaLetter(replicaID))

	cmd := encodeCommand("SET", "k", "v")
	po.Send(mailbox.WcmdPropagateID, mailbox.WcmdLetter(cmd))

	l := recvWithin(t, replicaInbox, time.Second)
	require.Equal(t, mailbox.KindWcmd, l.Kind)
	assert.Equal(t, cmd, l.Wcmd)

	deadline := time.Now().Add(time.Second)
	for len(aof.records) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Len(t, aof.records, 1)
	assert.Equal(t, cmd, aof.records[0])
}

func TestHubFullResyncForUnknownReplID(t *testing.T) {
	po := mailbox.New()
	db := store.NewDb()
	db.Insert(store.NewKey([]byte("existing")), store.NewObject(store.Str("value")))
	h := StartHub(po, db, nil)

	replicaID, replicaInbox, _ := po.RegisterAuto()
	po.Send(mailbox.RunReplicaID, mailbox.Letter{
		Kind:      mailbox.KindPsync,
		ReplID:    "not-" + h.ReplID(),
		Offset:    0,
		ReplicaID: replicaID,
	})

	l := recvWithin(t, replicaInbox, time.Second)
	require.Equal(t, mailbox.KindWcmd, l.Kind)

	f, err := resp3.NewReader(bytes.NewReader(l.Wcmd)).ReadFrame()
	require.NoError(t, err)
	require.Equal(t, resp3.TypeBlobString, f.Type)

	loaded := store.NewDb()
	require.NoError(t, persist.LoadSnapshot(loaded, f.Str))
	obj, ok := loaded.Get(store.NewKey([]byte("existing")))
	require.True(t, ok)
	assert.Equal(t, store.Str("value"), obj.Value)

	// The replica is attached for live propagation after the snapshot.
	cmd := encodeCommand("SET", "k2", "v2")
	po.Send(mailbox.WcmdPropagateID, mailbox.WcmdLetter(cmd))
	l2 := recvWithin(t, replicaInbox, time.Second)
	assert.Equal(t, cmd, l2.Wcmd)
}

func TestHubPartialResyncForMatchingReplID(t *testing.T) {
	po := mailbox.New()
	db := store.NewDb()
	h := StartHub(po, db, nil)

	cmd := encodeCommand("SET", "k", "v")
	po.Send(mailbox.WcmdPropagateID, mailbox.WcmdLetter(cmd))

	deadline := time.Now().Add(time.Second)
	for h.Offset() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.NotZero(t, h.Offset())

	replicaID, replicaInbox, _ := po.RegisterAuto()
	po.Send(mailbox.RunReplicaID, mailbox.Letter{
		Kind:      mailbox.KindPsync,
		ReplID:    h.ReplID(),
		Offset:    0,
		ReplicaID: replicaID,
	})

	l := recvWithin(t, replicaInbox, time.Second)
	require.Equal(t, mailbox.KindWcmd, l.Kind)
	args, err := resp3.NewReader(bytes.NewReader(l.Wcmd)).ReadCommand()
	require.NoError(t, err)
	assert.Equal(t, []string{"SET", "k", "v"}, toStringsLocal(args))
}

func encodeCommand(args ...string) []byte {
	elems := make([]resp3.Frame, len(args))
	for i, a := range args {
		elems[i] = resp3.BlobStringFromString(a)
	}
	return resp3.Encode(nil, resp3.Array(elems...))
}

func toStringsLocal(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}
