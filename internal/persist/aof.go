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
package persist

import (
	"bytes"
	"sync"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/command"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

// AofWriter appends already-reencoded RESP3 write commands to Backend's
// write log. It does not register its own mailbox: mailbox.WcmdPropagateID
// has exactly one owner at a time (see mailbox.RegisterMailbox), and
// internal/replica's propagation hub is that owner, since it is the
// component that must fan each write command out to both the AOF (via
// Append) and every attached replica. Wiring AofWriter straight to the
// mailbox here would leave replication with nothing left to subscribe to.
type AofWriter struct {
	backend Backend

	mu  sync.Mutex
	log Logfile
}

// NewAofWriter opens backend's log for appending. The caller is
// responsible for feeding it write commands (directly, or via a
// propagation hub such as internal/replica's).
func NewAofWriter(backend Backend) (*AofWriter, error) {
	log, err := backend.OpenLog()
	if err != nil {
		return nil, err
	}
	return &AofWriter{backend: backend, log: log}, nil
}

// Append writes one already-reencoded RESP3 command record to the log.
func (w *AofWriter) Append(record []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.log.Write(record)
}

// Sync flushes the log to stable storage (periodic fsync, or before
// replying to a client that asked for durable writes).
func (w *AofWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.log.Sync()
}

// Rotate closes the current log and discards it, used right after a
// successful SAVE/BGSAVE has folded every command the log held into the
// new snapshot.
func (w *AofWriter) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.log.Close(); err != nil {
		return err
	}
	if err := w.backend.RemoveLog(); err != nil {
		return err
	}
	log, err := w.backend.OpenLog()
	if err != nil {
		return err
	}
	w.log = log
	return nil
}

// Bootstrap loads backend's snapshot into db (if any), then replays its
// write log against db by re-dispatching every logged command through
// command.Dispatch under a full-power, unauthenticated-gate-disabled
// context. The log handle used for replay is closed before Bootstrap
// returns; live appends go through a separate NewAofWriter.
func Bootstrap(db *store.Db, po *mailbox.PostOffice, host script.Host, backend Backend) error {
	snap, err := backend.ReadSnapshot()
	if err != nil {
		return err
	}
	if len(snap) > 0 {
		if err := LoadSnapshot(db, snap); err != nil {
			return err
		}
	}

	records, log, err := backend.ReplayLog()
	if err != nil {
		return err
	}
	defer log.Close()

	ctx := &replayContext{db: db, ac: acl.NewDefaultUser(), po: po, host: host}
	for rec := range records {
		args, err := resp3.NewReader(bytes.NewReader(rec)).ReadCommand()
		if err != nil {
			continue
		}
		command.Dispatch(ctx, args)
	}
	return nil
}

// replayContext is a minimal command.Context used only to re-apply
// previously authorized commands during startup replay: full permissions
// (the command was already authorized once, at the time it was first
// executed and logged) and a no-op shutdown/subscribe surface, since
// replay never talks to a real client.
type replayContext struct {
	db   *store.Db
	ac   *acl.AccessControl
	po   *mailbox.PostOffice
	host script.Host
}

func (c *replayContext) ID() uint64                      { return mailbox.ReservedIDCeiling }
func (c *replayContext) DB() *store.Db                   { return c.db }
func (c *replayContext) AC() *acl.AccessControl          { return c.ac }
func (c *replayContext) SetAC(ac *acl.AccessControl)     { c.ac = ac }
func (c *replayContext) PostOffice() *mailbox.PostOffice { return c.po }
func (c *replayContext) ScriptHost() script.Host         { return c.host }
func (c *replayContext) Authenticated() bool             { return true }
func (c *replayContext) SetAuthenticated(bool)           {}
func (c *replayContext) Subscribe(string)                {}
func (c *replayContext) Unsubscribe(string)              {}
func (c *replayContext) SubscribedChannels() []string    { return nil }
func (c *replayContext) RequestShutdown()                {}
