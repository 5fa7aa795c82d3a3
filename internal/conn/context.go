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

// Package conn owns one TCP connection's lifecycle: framing with
// internal/resp3, dispatching through internal/command, and racing
// incoming client bytes against mailbox letters (pub/sub pushes, shutdown,
// block-all) so neither starves the other.
package conn

import (
	"sync"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

// HandlerContext is the concrete command.Context for one live connection.
// Only the handler goroutine that owns it calls DB()/AC()/etc without
// locking; the mutex guards the fields a pub/sub delivery or mailbox
// letter can touch from a different goroutine (authenticated flag,
// subscriptions, the active ACL record after AUTH/HELLO swaps it).
type HandlerContext struct {
	mu sync.RWMutex

	id         uint64
	db         *store.Db
	ac         *acl.AccessControl
	po         *mailbox.PostOffice
	scriptHost script.Host

	authenticated bool
	subscriptions map[string]bool

	requestShutdown func()
}

// NewHandlerContext builds a HandlerContext for a freshly accepted
// connection. initialAC is the ACL record to check commands against until
// AUTH/HELLO swaps in another one (the "default" user when the server has
// no password configured, matching requireAuth==false).
func NewHandlerContext(id uint64, db *store.Db, po *mailbox.PostOffice, scriptHost script.Host, initialAC *acl.AccessControl, requireAuth bool, requestShutdown func()) *HandlerContext {
	return &HandlerContext{
		id:              id,
		db:              db,
		ac:              initialAC,
		po:              po,
		scriptHost:      scriptHost,
		authenticated:   !requireAuth,
		subscriptions:   make(map[string]bool),
		requestShutdown: requestShutdown,
	}
}

func (h *HandlerContext) ID() uint64                      { return h.id }
func (h *HandlerContext) DB() *store.Db                    { return h.db }
func (h *HandlerContext) PostOffice() *mailbox.PostOffice  { return h.po }
func (h *HandlerContext) ScriptHost() script.Host          { return h.scriptHost }

func (h *HandlerContext) AC() *acl.AccessControl {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ac
}

func (h *HandlerContext) SetAC(ac *acl.AccessControl) {
	h.mu.Lock()
	h.ac = ac
	h.mu.Unlock()
}

func (h *HandlerContext) Authenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.authenticated
}

func (h *HandlerContext) SetAuthenticated(v bool) {
	h.mu.Lock()
	h.authenticated = v
	h.mu.Unlock()
}

func (h *HandlerContext) Subscribe(channel string) {
	h.db.PubSub().Subscribe(channel, h.id, store.FuncPubSubListener(func(ch string, payload []byte) {
		h.po.TrySend(h.id, mailbox.Resp3Letter(pubsubPushFrame(ch, payload)))
	}))
	h.mu.Lock()
	h.subscriptions[channel] = true
	h.mu.Unlock()
}

func (h *HandlerContext) Unsubscribe(channel string) {
	h.db.PubSub().Unsubscribe(channel, h.id)
	h.mu.Lock()
	delete(h.subscriptions, channel)
	h.mu.Unlock()
}

func (h *HandlerContext) SubscribedChannels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.subscriptions))
	for ch := range h.subscriptions {
		out = append(out, ch)
	}
	return out
}

// unsubscribeAll is called on connection teardown so a closed connection's
// id stops receiving publishes it can no longer read.
func (h *HandlerContext) unsubscribeAll() {
	h.db.PubSub().UnsubscribeAll(h.id)
}

func (h *HandlerContext) RequestShutdown() {
	if h.requestShutdown != nil {
		h.requestShutdown()
	}
}
