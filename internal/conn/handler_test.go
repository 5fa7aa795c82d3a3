package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/store"
)

func TestServeSetGetRoundTrips(t *testing.T) {
	fh := NewFakeHandler(false)
	defer fh.Close()

	require.NoError(t, fh.Send("SET", "k", "v"))
	reply, err := fh.Recv()
	require.NoError(t, err)
	assert.Equal(t, "OK", string(reply.Str))

	require.NoError(t, fh.Send("GET", "k"))
	reply, err = fh.Recv()
	require.NoError(t, err)
	assert.Equal(t, "v", string(reply.Str))
}

func TestServeRequiresAuthBeforeNonAllowlistedCommands(t *testing.T) {
	fh := NewFakeHandler(true)
	defer fh.Close()

	require.NoError(t, fh.Send("GET", "k"))
	reply, err := fh.Recv()
	require.NoError(t, err)
	assert.Equal(t, resp3.TypeSimpleError, reply.Type)

	require.NoError(t, fh.Send("PING"))
	reply, err = fh.Recv()
	require.NoError(t, err)
	assert.Equal(t, "PONG", string(reply.Str))
}

func TestServePublishDeliversToSubscriberConnection(t *testing.T) {
	db := store.NewDb()
	po := mailbox.New()
	ac := acl.NewDefaultUser()

	sub := NewFakeHandlerShared(db, po, ac, false)
	defer sub.Close()
	pub := NewFakeHandlerShared(db, po, ac, false)
	defer pub.Close()

	require.NoError(t, sub.Send("SUBSCRIBE", "news"))
	_, err := sub.Recv() // subscribe confirmation array
	require.NoError(t, err)

	require.NoError(t, pub.Send("PUBLISH", "news", "hello"))
	reply, err := pub.Recv()
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply.Int)

	sub.Client.SetReadDeadline(time.Now().Add(2 * time.Second))
	push, err := sub.Recv()
	require.NoError(t, err)
	assert.Equal(t, resp3.TypePush, push.Type)
	require.Len(t, push.Elems, 3)
	assert.Equal(t, "message", string(push.Elems[0].Str))
	assert.Equal(t, "news", string(push.Elems[1].Str))
	assert.Equal(t, "hello", string(push.Elems[2].Str))
}
