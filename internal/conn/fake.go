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
	"net"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

// FakeHandler drives Serve over an in-memory net.Pipe instead of a real
// socket, so tests can exercise the full dispatch/propagation/pub-sub path
// without opening a port. This is the harness handler_test.go and
// internal/server's tests build on.
type FakeHandler struct {
	Client net.Conn
	DB     *store.Db
	PO     *mailbox.PostOffice
	AC     *acl.AccessControl

	reader *resp3.Reader
	done   chan struct{}
}

// NewFakeHandler starts Serve on one end of a net.Pipe and returns a
// handle to the other end, pre-wired with a fresh store and post office.
func NewFakeHandler(requireAuth bool) *FakeHandler {
	return NewFakeHandlerShared(store.NewDb(), mailbox.New(), acl.NewDefaultUser(), requireAuth)
}

// NewFakeHandlerShared is NewFakeHandler but against caller-supplied
// collaborators, so multiple handlers can share one store/post office
// (e.g. to exercise pub/sub delivery across two connections).
func NewFakeHandlerShared(db *store.Db, po *mailbox.PostOffice, ac *acl.AccessControl, requireAuth bool) *FakeHandler {
	serverSide, clientSide := net.Pipe()

	fh := &FakeHandler{
		Client: clientSide,
		DB:     db,
		PO:     po,
		AC:     ac,
		reader: resp3.NewReader(clientSide),
		done:   make(chan struct{}),
	}
	go func() {
		Serve(serverSide, Deps{
			DB:          db,
			PostOffice:  po,
			ScriptHost:  script.NewNoopHost(),
			RootAC:      func() *acl.AccessControl { return ac },
			RequireAuth: requireAuth,
		})
		close(fh.done)
	}()
	return fh
}

// Send writes one command as a RESP3 array of blob strings.
func (fh *FakeHandler) Send(args ...string) error {
	elems := make([]resp3.Frame, len(args))
	for i, a := range args {
		elems[i] = resp3.BlobStringFromString(a)
	}
	_, err := fh.Client.Write(resp3.Encode(nil, resp3.Array(elems...)))
	return err
}

// Recv reads one reply frame.
func (fh *FakeHandler) Recv() (resp3.Frame, error) {
	return fh.reader.ReadFrame()
}

// Close closes the client side and waits for Serve to return.
func (fh *FakeHandler) Close() {
	fh.Client.Close()
	<-fh.done
}
