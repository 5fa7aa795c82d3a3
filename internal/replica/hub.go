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
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/persist"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/store"
)

// AofAppender is the narrow slice of *persist.AofWriter the hub needs.
// Kept as an interface so this package never imports persist's S3/Ceph
// backend code just to reach Append, and so hub tests can stub it out.
type AofAppender interface {
	Append(record []byte) error
}

// Hub is the master side of replication. It is the sole registrant of
// both mailbox.WcmdPropagateID and mailbox.RunReplicaID: the former
// carries every propagated write command (which the hub appends to the
// AOF and the backlog, then fans out to attached replicas), the latter
// carries replication control (PSYNC, REPLICAOF). Concentrating both in
// one task is what lets persist.AofWriter stay a plain appender instead
// of a second, competing registrant of WcmdPropagateID (see AofWriter's
// doc comment: a reserved mailbox id has exactly one owner at a time).
type Hub struct {
	po      *mailbox.PostOffice
	db      *store.Db
	aof     AofAppender
	backlog *Backlog

	mu            sync.RWMutex
	replicas      map[uint64]struct{}
	replID        string
	stopReplicaOf func()
}

// StartHub registers the hub's reserved mailboxes and begins draining
// them. aof may be nil if the server runs with replication but no local
// persistence.
func StartHub(po *mailbox.PostOffice, db *store.Db, aof AofAppender) *Hub {
	h := &Hub{
		po:       po,
		db:       db,
		aof:      aof,
		backlog:  NewBacklog(0),
		replicas: make(map[uint64]struct{}),
		replID:   uuid.NewString(),
	}
	wcmdInbox, _ := po.RegisterMailbox(mailbox.WcmdPropagateID)
	ctrlInbox, _ := po.RegisterMailbox(mailbox.RunReplicaID)
	go h.runWcmd(wcmdInbox)
	go h.runControl(ctrlInbox)
	return h
}

// ReplID returns this master's current replication run id. It changes
// only when the node is promoted back to master after REPLICAOF NO ONE.
func (h *Hub) ReplID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.replID
}

// Offset reports the current propagation offset, for INFO/PSYNC replies.
func (h *Hub) Offset() int64 { return h.backlog.Offset() }

// ReplicaCount reports how many replicas are currently attached, for the
// dashboard/metrics feeds.
func (h *Hub) ReplicaCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.replicas)
}

// Info is registered with command.SetReplicationInfo so PSYNC/INFO can
// report this hub's identity without internal/command importing
// internal/replica.
func (h *Hub) Info() (string, int64) { return h.ReplID(), h.Offset() }

func (h *Hub) runWcmd(inbox mailbox.Inbox) {
	for l := range inbox {
		if l.Kind != mailbox.KindWcmd {
			continue
		}
		h.propagate(l.Wcmd)
	}
}

// propagate writes one write command's canonical bytes to the AOF, the
// backlog, and every attached replica, in that order. The propagation
// task drains its mailbox FIFO, so this is also the total order the AOF
// and every replica observe, matching the single-writer ordering
// invariant the command layer relies on.
func (h *Hub) propagate(record []byte) {
	if h.aof != nil {
		if err := h.aof.Append(record); err != nil {
			zap.L().Warn("aof append failed", zap.Error(err))
		}
	}
	h.backlog.Append(record)

	for _, id := range h.replicaIDs() {
		if !h.po.TrySend(id, mailbox.WcmdLetter(record)) {
			h.detach(id)
		}
	}
}

func (h *Hub) replicaIDs() []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uint64, 0, len(h.replicas))
	for id := range h.replicas {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) attach(id uint64) {
	h.mu.Lock()
	h.replicas[id] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) detach(id uint64) {
	h.mu.Lock()
	delete(h.replicas, id)
	h.mu.Unlock()
}

func (h *Hub) detachAll() {
	h.mu.Lock()
	h.replicas = make(map[uint64]struct{})
	h.mu.Unlock()
}

func (h *Hub) runControl(inbox mailbox.Inbox) {
	for l := range inbox {
		switch l.Kind {
		case mailbox.KindAddReplica:
			h.attach(l.ReplicaID)
		case mailbox.KindPsync:
			h.handlePsync(l.ReplicaID, l.ReplID, l.Offset)
		case mailbox.KindShutdownReplicas:
			h.detachAll()
		case mailbox.KindReplicaOf:
			h.handleReplicaOf(l.Host, l.Port)
		case mailbox.KindModifyShared:
			if l.Modify != nil {
				l.Modify()
			}
		}
	}
}

// handlePsync decides full vs partial resync and streams the result
// straight to the requesting replica's own mailbox, reusing the KindWcmd
// delivery path: internal/conn writes l.Wcmd to the socket unmodified, so
// anything written here must already be valid RESP3 bytes.
//
// For a full resync the snapshot is sent as one BlobString frame (so the
// replica can read it back with a single ReadFrame call) followed by
// every command propagated while the snapshot was being built; for a
// partial resync, just the requested backlog slice. Either way the
// replica is attached for live propagation only after its catch-up bytes
// are already in its mailbox, so they can never be reordered behind a
// command propagate() sends concurrently.
func (h *Hub) handlePsync(replicaID uint64, replID string, offset int64) {
	if replID == h.ReplID() {
		if data, ok := h.backlog.Since(offset); ok {
			h.po.Send(replicaID, mailbox.WcmdLetter(data))
			h.attach(replicaID)
			return
		}
	}

	fromOffset := h.backlog.Offset()
	snap, err := persist.EncodeSnapshot(h.db, persist.CodecNone)
	if err != nil {
		zap.L().Error("snapshot for full resync failed", zap.Error(err))
		return
	}
	catchup, _ := h.backlog.Since(fromOffset)

	h.po.Send(replicaID, mailbox.WcmdLetter(resp3.Encode(nil, resp3.BlobString(snap))))
	if len(catchup) > 0 {
		h.po.Send(replicaID, mailbox.WcmdLetter(catchup))
	}
	h.attach(replicaID)
}

// handleReplicaOf starts or stops this node's replica-side client.
// host == "" is REPLICAOF NO ONE: stop following any master and revert to
// being one (the hub keeps fanning out to its own attached replicas
// either way, matching a promoted master that keeps its existing
// sub-replicas attached).
func (h *Hub) handleReplicaOf(host, port string) {
	h.mu.Lock()
	wasReplica := h.stopReplicaOf != nil
	if wasReplica {
		h.stopReplicaOf()
		h.stopReplicaOf = nil
	}
	if host == "" && wasReplica {
		h.replID = uuid.NewString()
	}
	h.mu.Unlock()

	if host == "" {
		return
	}

	h.mu.Lock()
	h.stopReplicaOf = StartReplicaClient(host, port, h.po, h.db)
	h.mu.Unlock()
}
