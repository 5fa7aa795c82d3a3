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
package replica

import (
	"errors"
	"net"

	"go.uber.org/zap"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/command"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/persist"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

// StartReplicaClient dials host:port, runs the PSYNC handshake, and
// applies the resulting stream (snapshot load, then live commands) to db
// in a background goroutine. The returned stop func closes the
// connection, which unblocks the read loop and ends the goroutine.
//
// Every REPLICAOF targets a fresh connection requesting a full resync
// ("?"/-1): this node doesn't persist a prior master's repl_id/offset
// across a REPLICAOF switch, so there is nothing to request a partial
// resync against.
func StartReplicaClient(host, port string, po *mailbox.PostOffice, db *store.Db) func() {
	connCh := make(chan net.Conn, 1)
	go func() {
		c, err := net.Dial("tcp", net.JoinHostPort(host, port))
		if err != nil {
			zap.L().Warn("replicaof: dial failed", zap.String("host", host), zap.String("port", port), zap.Error(err))
			close(connCh)
			return
		}
		connCh <- c
		runReplicaClient(c, po, db)
	}()
	return func() {
		if c, ok := <-connCh; ok && c != nil {
			c.Close()
		}
	}
}

func runReplicaClient(conn net.Conn, po *mailbox.PostOffice, db *store.Db) {
	defer conn.Close()
	reader := resp3.NewReader(conn)

	if err := handshake(conn, reader); err != nil {
		zap.L().Warn("replicaof: handshake failed", zap.Error(err))
		return
	}

	// Step 6 of the handshake (read-only ACLs for foreign clients while
	// replicating) is a server-wide policy switch applied by whatever
	// wires this client in, not by the client itself.
	ctx := &clientContext{db: db, ac: acl.NewDefaultUser(), po: po, host: script.NewNoopHost()}

	for {
		f, err := reader.ReadFrame()
		if err != nil {
			return
		}
		switch f.Type {
		case resp3.TypeBlobString:
			if err := persist.LoadSnapshot(db, f.Str); err != nil {
				zap.L().Error("replicaof: snapshot load failed", zap.Error(err))
				return
			}
		case resp3.TypeArray:
			args, err := frameArgs(f)
			if err != nil {
				continue
			}
			command.Dispatch(ctx, args)
		}
	}
}

// handshake performs the replica side of PSYNC: PING, REPLCONF
// listening-port, PSYNC ? -1. master_auth (step 2 of the spec's
// enumeration) is not sent here: it is plumbed in by the caller's config
// layer once a password is configured, which this package has no access
// to on its own.
func handshake(conn net.Conn, reader *resp3.Reader) error {
	if err := sendCommand(conn, "PING"); err != nil {
		return err
	}
	if _, err := reader.ReadFrame(); err != nil {
		return err
	}

	if err := sendCommand(conn, "REPLCONF", "listening-port", "0"); err != nil {
		return err
	}
	if _, err := reader.ReadFrame(); err != nil {
		return err
	}

	if err := sendCommand(conn, "PSYNC", "?", "-1"); err != nil {
		return err
	}
	_, err := reader.ReadFrame() // +FULLRESYNC <repl_id> <offset>
	return err
}

func sendCommand(conn net.Conn, args ...string) error {
	elems := make([]resp3.Frame, len(args))
	for i, a := range args {
		elems[i] = resp3.BlobStringFromString(a)
	}
	_, err := conn.Write(resp3.Encode(nil, resp3.Array(elems...)))
	return err
}

// frameArgs extracts a command's argument vector from an already-decoded
// Array frame, mirroring resp3.Reader.ReadCommand's own conversion (which
// operates on a freshly read frame rather than one decoded ahead of time
// to check its type, as the replication stream requires here).
func frameArgs(f resp3.Frame) ([][]byte, error) {
	if f.Type != resp3.TypeArray {
		return nil, errors.New("replica: expected array frame")
	}
	args := make([][]byte, len(f.Elems))
	for i, e := range f.Elems {
		if e.Type != resp3.TypeBlobString {
			return nil, errors.New("replica: expected blob string element")
		}
		args[i] = e.Str
	}
	return args, nil
}

// clientContext is a minimal command.Context used to apply commands
// received from a master: full permissions (the master already
// authorized the command once), no subscriptions, no client-initiated
// shutdown.
type clientContext struct {
	db   *store.Db
	ac   *acl.AccessControl
	po   *mailbox.PostOffice
	host script.Host
}

func (c *clientContext) ID() uint64                      { return mailbox.ReservedIDCeiling }
func (c *clientContext) DB() *store.Db                   { return c.db }
func (c *clientContext) AC() *acl.AccessControl          { return c.ac }
func (c *clientContext) SetAC(ac *acl.AccessControl)     { c.ac = ac }
func (c *clientContext) PostOffice() *mailbox.PostOffice { return c.po }
func (c *clientContext) ScriptHost() script.Host         { return c.host }
func (c *clientContext) Authenticated() bool             { return true }
func (c *clientContext) SetAuthenticated(bool)           {}
func (c *clientContext) Subscribe(string)                {}
func (c *clientContext) Unsubscribe(string)              {}
func (c *clientContext) SubscribedChannels() []string    { return nil }
func (c *clientContext) RequestShutdown()                {}
