package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissingReturnsNotFound(t *testing.T) {
	db := NewDb()
	_, ok := db.Get(NewKey([]byte("nope")))
	assert.False(t, ok)
}

func TestExpiredKeyIsRemovedOnAccess(t *testing.T) {
	db := NewDb()
	k := NewKey([]byte("ttl"))
	db.Insert(k, NewObject(Str("v")))
	require.NoError(t, db.ExpireAt(k, time.Now().Add(-time.Second)))

	_, ok := db.Get(k)
	assert.False(t, ok, "expired key must report absent")

	db.expireMu.Lock()
	_, stillHinted := db.expireRecords[k]
	db.expireMu.Unlock()
	assert.False(t, stillHinted, "expired key must be dropped from the hint index")
}

func TestSweeperRemovesExpiredKeys(t *testing.T) {
	db := NewDb()
	for i := 0; i < 5; i++ {
		k := NewKey([]byte{byte('a' + i)})
		db.Insert(k, NewObject(Str("v")))
		require.NoError(t, db.ExpireAt(k, time.Now().Add(-time.Minute)))
	}
	sw := NewSweeper(db)
	for i := 0; i < 10 && db.Len() > 0; i++ {
		sw.pass()
	}
	assert.Equal(t, 0, db.Len())
}

func TestAccessCountNeverDecreasesUnderReads(t *testing.T) {
	db := NewDb()
	k := NewKey([]byte("hot"))
	db.Insert(k, NewObject(Str("v")))

	var lastCount uint32
	for i := 0; i < 500; i++ {
		o, ok := db.Get(k)
		require.True(t, ok)
		c := o.AccessCount()
		assert.GreaterOrEqual(t, c, lastCount, "access_count must never decrease under pure reads")
		lastCount = c
	}
}

func TestAccessTimeUpdatedOnRead(t *testing.T) {
	db := NewDb()
	k := NewKey([]byte("x"))
	db.Insert(k, NewObject(Str("v")))
	o, _ := db.Get(k)
	before := o.AccessTime()

	TickLRUClock()
	o2, ok := db.Get(k)
	require.True(t, ok)
	assert.GreaterOrEqual(t, o2.AccessTime(), before)
}

func TestOomEvictionBoundsUsedMemory(t *testing.T) {
	db := NewDb()
	for i := 0; i < 200; i++ {
		k := NewKey([]byte{byte(i), byte(i >> 8)})
		db.Insert(k, NewObject(Str(make([]byte, 256))))
	}
	budget := db.UsedMemory() / 4
	db.SetOomConfig(OomConfig{MaxMemory: budget, Policy: AllKeysLRU})

	err := db.Update(NewKey([]byte("trigger")), func(o *Object) error { return nil })
	_ = err // key absent: Update reports ErrNotFound, but tryEvict still ran first

	assert.LessOrEqual(t, db.UsedMemory(), budget+512, "tryEvict must bound used memory to roughly the configured budget")
}

func TestOomNoEvictionFailsWriteInsteadOfEvicting(t *testing.T) {
	db := NewDb()
	k := NewKey([]byte("k"))
	db.Insert(k, NewObject(Str("v")))
	db.SetOomConfig(OomConfig{MaxMemory: 1, Policy: NoEviction})

	err := db.Update(k, func(o *Object) error { return nil })
	var oom ErrOutOfMemory
	require.ErrorAs(t, err, &oom, "NoEviction over budget must fail the write with ErrOutOfMemory")
	_, ok := db.Get(k)
	assert.True(t, ok, "NoEviction policy must never evict")
}

func TestInsertOverwritesPreviousObjectWholesale(t *testing.T) {
	db := NewDb()
	k := NewKey([]byte("k"))
	first := NewObject(Str("first"))
	db.Insert(k, first)

	second := NewObject(Str("second"))
	prev, existed := db.Insert(k, second)
	require.True(t, existed)
	assert.Equal(t, Str("first"), prev.Value)

	got, ok := db.Get(k)
	require.True(t, ok)
	assert.Equal(t, Str("second"), got.Value)
	assert.True(t, got.Expire.IsZero(), "overwrite must reset expiration")
}

func TestPubSubPublishDeliversToDirectSubscribers(t *testing.T) {
	db := NewDb()
	got := make(chan Key, 1)
	db.PubSub().Subscribe("news", 1, FuncPubSubListener(func(channel string, _ []byte) { got <- Key(channel) }))

	n := db.PubSub().Publish("news", []byte("hi"))
	assert.Equal(t, 1, n)
	select {
	case k := <-got:
		assert.Equal(t, Key("news"), k)
	default:
		t.Fatal("expected a delivered notification")
	}
}

func TestPubSubUnsubscribeAllRemovesEverySubscription(t *testing.T) {
	db := NewDb()
	db.PubSub().Subscribe("a", 7, FuncPubSubListener(func(string, []byte) {}))
	db.PubSub().UnsubscribeAll(7)
	assert.Equal(t, 0, db.PubSub().NumSub("a"))
	assert.Empty(t, db.PubSub().Channels())
}
