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
package conn

import (
	"bufio"
	"net"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/command"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

// maxPipelineBatch bounds how many pipelined commands are drained and
// dispatched before the reply buffer is flushed back to the client, so a
// very deep pipeline can't grow the write buffer unboundedly.
const maxPipelineBatch = 128

// Serve owns one accepted connection end to end. Deps is the set of
// process-wide collaborators every connection shares; RootAC resolves the
// ACL record a fresh connection starts under (the "default" user unless
// AUTH/HELLO swaps in another).
type Deps struct {
	DB          *store.Db
	PostOffice  *mailbox.PostOffice
	ScriptHost  script.Host
	RootAC      func() *acl.AccessControl
	RequireAuth bool

	// RequestShutdown is invoked when a client issues SHUTDOWN.
	RequestShutdown func()
}

// Serve runs one connection's read/dispatch/write loop until the client
// disconnects, a protocol error occurs, or the connection's mailbox
// receives a shutdown letter. It always closes c before returning.
func Serve(c net.Conn, deps Deps) {
	defer c.Close()

	id, inbox, _ := deps.PostOffice.RegisterAuto()
	defer deps.PostOffice.Unregister(id)

	ctx := NewHandlerContext(id, deps.DB, deps.PostOffice, deps.ScriptHost, deps.RootAC(), deps.RequireAuth, deps.RequestShutdown)
	defer ctx.unsubscribeAll()

	reader := resp3.NewReader(c)
	writer := bufio.NewWriterSize(c, 16*1024)
	batcher := resp3.BatchDecoder{MaxBatch: maxPipelineBatch}

	type batchResult struct {
		cmds [][][]byte
		err  error
	}
	batchCh := make(chan batchResult)
	stopReads := make(chan struct{})
	go func() {
		for {
			cmds, err := batcher.DecodeBatch(reader)
			select {
			case batchCh <- batchResult{cmds, err}:
			case <-stopReads:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer close(stopReads)

	for {
		select {
		case br := <-batchCh:
			for _, args := range br.cmds {
				res := command.Dispatch(ctx, args)
				if res.Suppressed {
					continue
				}
				buf := resp3.Encode(nil, res.Reply)
				if _, werr := writer.Write(buf); werr != nil {
					return
				}
				if res.Propagate {
					deps.PostOffice.TrySend(mailbox.WcmdPropagateID, mailbox.WcmdLetter(reencode(args)))
				}
			}
			if ferr := writer.Flush(); ferr != nil {
				return
			}
			if br.err != nil {
				return
			}
		case l := <-inbox:
			if !deliverLetter(ctx, writer, l) {
				return
			}
		}
	}
}

// deliverLetter handles one mailbox letter addressed to this connection,
// returning false if the connection should close.
func deliverLetter(ctx *HandlerContext, writer *bufio.Writer, l mailbox.Letter) bool {
	switch l.Kind {
	case mailbox.KindResp3:
		buf := resp3.Encode(nil, l.Frame)
		if _, err := writer.Write(buf); err != nil {
			return false
		}
		return writer.Flush() == nil
	case mailbox.KindWcmd:
		// Delivered to a connection that internal/replica has attached as
		// a replication target: l.Wcmd is already a canonical RESP3 array,
		// so it is written straight through rather than re-encoded.
		if _, err := writer.Write(l.Wcmd); err != nil {
			return false
		}
		return writer.Flush() == nil
	case mailbox.KindShutdownClient, mailbox.KindShutdownServer:
		return false
	case mailbox.KindBlockServer, mailbox.KindBlockAll:
		if l.Modify != nil {
			l.Modify()
		}
		<-l.Unblock
		return true
	case mailbox.KindModifyShared:
		if l.Modify != nil {
			l.Modify()
		}
		return true
	default:
		return true
	}
}

// pubsubPushFrame builds the ["message", channel, payload] push frame
// delivered to a subscriber, matching the RESP3 push-type reply RESP2
// clients see as a plain multi-bulk.
func pubsubPushFrame(channel string, payload []byte) resp3.Frame {
	return resp3.Push(
		resp3.BlobStringFromString("message"),
		resp3.BlobStringFromString(channel),
		resp3.BlobString(payload),
	)
}

// reencode re-serializes a dispatched write command's argument vector into
// its canonical RESP3 array form for AOF/replication propagation, so what
// gets persisted/replicated is the exact command that was authorized and
// executed rather than the client's original (possibly RESP2) bytes.
func reencode(args [][]byte) []byte {
	elems := make([]resp3.Frame, len(args))
	for i, a := range args {
		elems[i] = resp3.BlobString(a)
	}
	return resp3.Encode(nil, resp3.Array(elems...))
}
