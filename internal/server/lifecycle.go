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

// Package server wires together every other internal package into one
// running process: persistence bootstrap, the replication hub, the
// dashboard/metrics endpoints, and the RESP3 accept loop itself.
package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/dc0d/onexit"
	"go.uber.org/zap"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/command"
	"github.com/launix-de/rkv/internal/config"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/persist"
	"github.com/launix-de/rkv/internal/replica"
	"github.com/launix-de/rkv/internal/script"
	"github.com/launix-de/rkv/internal/store"
)

// Server is one running rkv node: its keyspace, post office, replication
// hub, and the listener that drives everything from the network.
type Server struct {
	cfg  *config.Config
	db   *store.Db
	po   *mailbox.PostOffice
	acl  *acl.Registry
	hub  *replica.Hub
	aof  *persist.AofWriter
	host script.Host

	listener *listener
}

// New bootstraps persistence, the ACL registry, replication, and the
// command layer's injection seams, but does not yet accept connections —
// call Listen for that.
func New(cfg *config.Config) (*Server, error) {
	db := store.NewDb()
	po := mailbox.New()
	registry := acl.NewRegistry()
	host := script.NewNoopHost()

	if cfg.Acl.RequireAuth && cfg.Acl.Password != "" {
		registry.SetUser("default_ac", acl.SetUserOp{HasPassword: true, Password: cfg.Acl.Password})
	}
	command.SetAclRegistry(registry)

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("server: opening persistence backend: %w", err)
	}

	if err := persist.Bootstrap(db, po, host, backend); err != nil {
		return nil, fmt.Errorf("server: replaying persisted state: %w", err)
	}

	var aof *persist.AofWriter
	if cfg.Persistence.AppendOnly {
		aof, err = persist.NewAofWriter(backend)
		if err != nil {
			return nil, fmt.Errorf("server: opening append-only log: %w", err)
		}
	}

	codec := snapshotCodec(cfg.Persistence.SnapshotCodec)
	persist.WireSaveHooks(db, backend, aof, codec)

	hub := replica.StartHub(po, db, aofAppender(aof))
	command.SetReplicationInfo(hub.Info)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepInbox, _ := po.RegisterMailbox(mailbox.ExpirationEvictID)
	go func() {
		for l := range sweepInbox {
			if l.Kind == mailbox.KindShutdownServer {
				stopSweep()
				return
			}
		}
	}()
	go store.NewSweeper(db).Run(sweepCtx)

	if cfg.Replication.ReplicaOf != "" {
		host, port, ok := strings.Cut(cfg.Replication.ReplicaOf, ":")
		if ok {
			po.Send(mailbox.RunReplicaID, mailbox.ReplicaOfLetter(host, port))
		}
	}

	srv := &Server{cfg: cfg, db: db, po: po, acl: registry, hub: hub, aof: aof, host: host}

	onexit.Register(func() {
		if aof != nil {
			if err := aof.Sync(); err != nil {
				zap.L().Warn("server: final aof sync failed", zap.Error(err))
			}
		}
	})

	return srv, nil
}

// aofAppender adapts a possibly-nil *persist.AofWriter to the
// replica.AofAppender interface: a nil *AofWriter is not a nil interface,
// so StartHub would otherwise try to Append through a nil pointer when
// persistence.appendonly is off.
func aofAppender(aof *persist.AofWriter) replica.AofAppender {
	if aof == nil {
		return nil
	}
	return aof
}

func snapshotCodec(name string) persist.Codec {
	switch strings.ToLower(name) {
	case "xz":
		return persist.CodecXZ
	case "none":
		return persist.CodecNone
	default:
		return persist.CodecLZ4
	}
}

func openBackend(cfg *config.Config) (persist.Backend, error) {
	switch strings.ToLower(cfg.Persistence.Backend) {
	case "s3":
		f := &persist.S3Factory{
			AccessKeyID:     cfg.Persistence.S3.AccessKeyID,
			SecretAccessKey: cfg.Persistence.S3.SecretAccessKey,
			Region:          cfg.Persistence.S3.Region,
			Endpoint:        cfg.Persistence.S3.Endpoint,
			Bucket:          cfg.Persistence.S3.Bucket,
			Prefix:          cfg.Persistence.S3.Prefix,
			ForcePathStyle:  cfg.Persistence.S3.ForcePathStyle,
		}
		return f.Open("rkv"), nil
	case "ceph":
		f := &persist.CephFactory{
			UserName:    cfg.Persistence.Ceph.UserName,
			ClusterName: cfg.Persistence.Ceph.ClusterName,
			ConfFile:    cfg.Persistence.Ceph.ConfFile,
			Pool:        cfg.Persistence.Ceph.Pool,
			Prefix:      cfg.Persistence.Ceph.Prefix,
		}
		return f.Open("rkv"), nil
	default:
		f := &persist.FileFactory{Basepath: cfg.Persistence.Path}
		return f.Open("rkv"), nil
	}
}

// Shutdown broadcasts ShutdownServer to every registered mailbox and closes
// the listener; it returns without waiting for connections or replicas to
// finish.
func (s *Server) Shutdown() {
	s.po.SendShutdown()
	if s.listener != nil {
		s.listener.close()
	}
}
