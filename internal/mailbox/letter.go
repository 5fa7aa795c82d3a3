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

// Package mailbox implements the post-office: a process-wide registry of
// per-task inboxes used to deliver control letters (shutdown, blocking,
// write-command propagation, replica handshakes) without every task
// needing to know about every other task directly.
package mailbox

import "github.com/launix-de/rkv/internal/resp3"

// Kind discriminates the Letter sum type.
type Kind byte

const (
	KindShutdownServer Kind = iota
	KindBlockServer
	KindBlockAll
	KindResp3
	KindWcmd
	KindAddReplica
	KindPsync
	KindShutdownReplicas
	KindShutdownClient
	KindModifyShared
	KindReplicaOf
)

// Letter is the single inter-task message type delivered through mailboxes.
// Only the fields relevant to Kind are populated; it is a plain struct
// rather than an interface so delivery never allocates an interface box on
// the hot propagation path.
type Letter struct {
	Kind Kind

	// BlockServer / BlockAll: closed once the sender may resume.
	Unblock chan struct{}

	// Resp3: an out-of-band frame to push to a client (e.g. a pub/sub
	// message or a CLIENT TRACKING invalidation).
	Frame resp3.Frame

	// Wcmd: a canonically re-encoded write command, ready to append to
	// the AOF / replication backlog.
	Wcmd []byte

	// AddReplica: id of the mailbox that should start receiving Wcmd
	// letters as a full replication stream.
	ReplicaID uint64

	// Psync: partial resync request bookkeeping.
	ReplID string
	Offset int64

	// ModifyShared: an arbitrary closure the receiving task should run
	// against its own state (used to hand off work that must execute on
	// a specific goroutine, e.g. the connection owning a socket).
	Modify func()

	// ReplicaOf: target master to replicate from. Host == "" means
	// REPLICAOF NO ONE (stop replicating, revert to master).
	Host string
	Port string
}

// ShutdownServer asks the receiving task to stop accepting new work and
// exit.
func ShutdownServer() Letter { return Letter{Kind: KindShutdownServer} }

// BlockServer asks the receiving task to pause until Unblock closes.
func BlockServer(unblock chan struct{}) Letter {
	return Letter{Kind: KindBlockServer, Unblock: unblock}
}

// BlockAll is BlockServer broadcast to every registered mailbox.
func BlockAll(unblock chan struct{}) Letter {
	return Letter{Kind: KindBlockAll, Unblock: unblock}
}

// Resp3Letter wraps a frame to push out-of-band to a connection.
func Resp3Letter(f resp3.Frame) Letter { return Letter{Kind: KindResp3, Frame: f} }

// WcmdLetter wraps a propagated write command.
func WcmdLetter(cmd []byte) Letter { return Letter{Kind: KindWcmd, Wcmd: cmd} }

// AddReplicaLetter registers replicaID as a new replication target.
func AddReplicaLetter(replicaID uint64) Letter {
	return Letter{Kind: KindAddReplica, ReplicaID: replicaID}
}

// PsyncLetter carries a partial resync request.
func PsyncLetter(replID string, offset int64) Letter {
	return Letter{Kind: KindPsync, ReplID: replID, Offset: offset}
}

// ShutdownReplicasLetter tells the replication fan-out to close every
// replica stream.
func ShutdownReplicasLetter() Letter { return Letter{Kind: KindShutdownReplicas} }

// ShutdownClientLetter tells one connection to close.
func ShutdownClientLetter() Letter { return Letter{Kind: KindShutdownClient} }

// ModifySharedLetter runs fn on the receiving task's own goroutine.
func ModifySharedLetter(fn func()) Letter { return Letter{Kind: KindModifyShared, Modify: fn} }

// ReplicaOfLetter asks the replication task to start (or stop, if host is
// empty) replicating from host:port.
func ReplicaOfLetter(host, port string) Letter {
	return Letter{Kind: KindReplicaOf, Host: host, Port: port}
}
