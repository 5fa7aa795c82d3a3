package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

// fakeContext is a minimal in-package Context implementation for dispatch
// tests, standing in for internal/conn's real HandlerContext (which would
// otherwise create an import cycle: conn depends on command, not vice
// versa).
type fakeContext struct {
	id    uint64
	db    *store.Db
	ac    *acl.AccessControl
	po    *mailbox.PostOffice
	host  script.Host
	authd bool
	subs  map[string]bool
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		id:    1,
		db:    store.NewDb(),
		ac:    acl.NewDefaultUser(),
		po:    mailbox.New(),
		host:  script.NewNoopHost(),
		authd: true,
		subs:  make(map[string]bool),
	}
}

func (c *fakeContext) ID() uint64                      { return c.id }
func (c *fakeContext) DB() *store.Db                   { return c.db }
func (c *fakeContext) AC() *acl.AccessControl          { return c.ac }
func (c *fakeContext) SetAC(ac *acl.AccessControl)     { c.ac = ac }
func (c *fakeContext) PostOffice() *mailbox.PostOffice { return c.po }
func (c *fakeContext) ScriptHost() script.Host         { return c.host }
func (c *fakeContext) Authenticated() bool             { return c.authd }
func (c *fakeContext) SetAuthenticated(v bool)         { c.authd = v }
func (c *fakeContext) Subscribe(channel string)        { c.subs[channel] = true }
func (c *fakeContext) Unsubscribe(channel string)      { delete(c.subs, channel) }
func (c *fakeContext) SubscribedChannels() []string {
	out := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		out = append(out, ch)
	}
	return out
}
func (c *fakeContext) RequestShutdown() {}

func args(strs ...string) [][]byte {
	out := make([][]byte, len(strs))
	for i, s := range strs {
		out[i] = []byte(s)
	}
	return out
}

func TestDispatchUnknownCommand(t *testing.T) {
	ctx := newFakeContext()
	res := Dispatch(ctx, args("BOGUSCMD"))
	assert.Equal(t, ErrUnknownCmd.Error(), string(res.Reply.Str))
}

func TestDispatchWrongArity(t *testing.T) {
	ctx := newFakeContext()
	res := Dispatch(ctx, args("GET"))
	assert.Contains(t, string(res.Reply.Str), "wrong number of arguments")
}

func TestDispatchPreAuthBlocksNonAllowlisted(t *testing.T) {
	ctx := newFakeContext()
	ctx.authd = false
	res := Dispatch(ctx, args("GET", "k"))
	assert.Contains(t, string(res.Reply.Str), "NOPERM")
}

func TestDispatchPreAuthAllowsPing(t *testing.T) {
	ctx := newFakeContext()
	ctx.authd = false
	res := Dispatch(ctx, args("PING"))
	assert.Equal(t, "PONG", string(res.Reply.Str))
}

func TestDispatchSetThenGetRoundTrips(t *testing.T) {
	ctx := newFakeContext()
	res := Dispatch(ctx, args("SET", "k", "v"))
	require.True(t, res.Propagate)
	assert.Equal(t, "OK", string(res.Reply.Str))

	res = Dispatch(ctx, args("GET", "k"))
	assert.False(t, res.Propagate)
	assert.Equal(t, "v", string(res.Reply.Str))
}

func TestDispatchWrongTypeError(t *testing.T) {
	ctx := newFakeContext()
	Dispatch(ctx, args("SET", "k", "v"))
	res := Dispatch(ctx, args("LPUSH", "k", "x"))
	assert.Contains(t, string(res.Reply.Str), "WRONGTYPE")
}

func TestDispatchAclDenyOverridesAllow(t *testing.T) {
	ctx := newFakeContext()
	ctx.ac.ApplySetUser(acl.SetUserOp{DenyWriteKeys: []string{"locked:*"}})

	res := Dispatch(ctx, args("SET", "locked:1", "v"))
	assert.Contains(t, string(res.Reply.Str), "NOPERM")

	res = Dispatch(ctx, args("SET", "open:1", "v"))
	assert.Equal(t, "OK", string(res.Reply.Str))
}

func TestDispatchNonWriteCommandDoesNotPropagate(t *testing.T) {
	ctx := newFakeContext()
	res := Dispatch(ctx, args("PING"))
	assert.False(t, res.Propagate)
}

// TestAclSetUserAllowCmdDenyCmdSplitsSharedCategory walks the documented
// example end to end: ACL SETUSER u enable PWD p ALLOWCMD get DENYCMD set
// then AUTH u p then SET x 1 must produce +OK, +OK, -NOPERM even though
// GET and SET share CatString.
func TestAclSetUserAllowCmdDenyCmdSplitsSharedCategory(t *testing.T) {
	reg := acl.NewRegistry()
	SetAclRegistry(reg)
	defer SetAclRegistry(nil)

	ctx := newFakeContext()
	res := Dispatch(ctx, args("ACL", "SETUSER", "u", "enable", "PWD", "p", "ALLOWCMD", "get", "DENYCMD", "set"))
	require.Equal(t, "OK", string(res.Reply.Str))

	ctx.authd = false
	res = Dispatch(ctx, args("AUTH", "u", "p"))
	require.Equal(t, "OK", string(res.Reply.Str))
	require.True(t, ctx.Authenticated())

	res = Dispatch(ctx, args("GET", "x"))
	assert.NotContains(t, string(res.Reply.Str), "NOPERM")

	res = Dispatch(ctx, args("SET", "x", "1"))
	assert.Contains(t, string(res.Reply.Str), "NOPERM")
}
