package mailbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMailboxRoundTrip(t *testing.T) {
	po := New()
	inbox, _ := po.RegisterMailbox(MainID)
	ok := po.Send(MainID, ShutdownServer())
	require.True(t, ok)

	select {
	case l := <-inbox:
		assert.Equal(t, KindShutdownServer, l.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a delivered letter")
	}
}

func TestAutoRegisterAvoidsReservedRange(t *testing.T) {
	po := New()
	id, _, _ := po.RegisterAuto()
	assert.GreaterOrEqual(t, id, ReservedIDCeiling)
}

func TestSendToUnknownIDReportsFalse(t *testing.T) {
	po := New()
	assert.False(t, po.Send(999, ShutdownServer()))
}

func TestUnregisterRemovesRecipient(t *testing.T) {
	po := New()
	po.RegisterMailbox(MainID)
	po.Unregister(MainID)
	assert.False(t, po.TrySend(MainID, ShutdownServer()))
}

func TestSendShutdownBroadcastsToEveryMailbox(t *testing.T) {
	po := New()
	inboxA, _ := po.RegisterMailbox(10)
	inboxB, _ := po.RegisterMailbox(11)

	po.SendShutdown()

	for _, ib := range []Inbox{inboxA, inboxB} {
		select {
		case l := <-ib:
			assert.Equal(t, KindShutdownServer, l.Kind)
		case <-time.After(time.Second):
			t.Fatal("expected shutdown letter")
		}
	}
}

// TestSendBlockAllWaitsForEveryRecipient verifies that wait() only returns
// after every recipient has run its Letter.Modify acknowledgement hook,
// simulating a handler that parks on Unblock once notified.
func TestSendBlockAllWaitsForEveryRecipient(t *testing.T) {
	po := New()
	inboxA, _ := po.RegisterMailbox(20)
	inboxB, _ := po.RegisterMailbox(21)

	unblock, wait := po.SendBlockAll()

	waitDone := make(chan struct{})
	go func() {
		wait()
		close(waitDone)
	}()

	// Simulate recipients acknowledging one at a time.
	for _, ib := range []Inbox{inboxA, inboxB} {
		select {
		case <-waitDone:
			t.Fatal("wait() returned before all recipients acknowledged")
		case <-time.After(10 * time.Millisecond):
		}
		l := <-ib
		require.Equal(t, KindBlockAll, l.Kind)
		require.NotNil(t, l.Modify)
		l.Modify()
	}

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("wait() never returned after all recipients acknowledged")
	}
	close(unblock)
}
