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
package command

import (
	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

// Context is the command layer's view of a connection's HandlerContext.
// It's an interface (rather than a direct dependency on internal/conn) so
// this package and internal/conn don't form an import cycle: conn depends
// on command, not the other way around.
type Context interface {
	ID() uint64
	DB() *store.Db
	AC() *acl.AccessControl
	SetAC(*acl.AccessControl)
	PostOffice() *mailbox.PostOffice
	ScriptHost() script.Host

	Authenticated() bool
	SetAuthenticated(bool)

	// Subscribe/Unsubscribe register this connection's id as a pub/sub
	// listener and track membership locally for UNSUBSCRIBE-with-no-args
	// and CLIENT INFO reporting.
	Subscribe(channel string)
	Unsubscribe(channel string)
	SubscribedChannels() []string

	// RequestShutdown asks the owning server to begin graceful shutdown
	// (SHUTDOWN command).
	RequestShutdown()
}
