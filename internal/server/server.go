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

package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/conn"
	"github.com/launix-de/rkv/internal/dashboard"
	"github.com/launix-de/rkv/internal/metrics"
)

// listener owns the accepted-connection bookkeeping: the net.Listener
// itself, a counting semaphore bounding concurrent connections, and the
// live count dashboard/metrics read from.
type listener struct {
	ln net.Listener
	sem chan struct{}

	clients int64
}

// Listen starts the RESP3 TCP/TLS accept loop and (if enabled) the
// metrics and dashboard HTTP endpoints. It runs the accept loop in the
// caller's goroutine and returns once the listener is closed by
// Shutdown — the same go func(){ defer Close(); Accept() }() shape
// memcp's scm/mysql.go MySQLServe uses for its own driver.NewListener,
// generalized here to the raw net.Listener rkv's own RESP3 codec needs
// instead of a library-wrapped protocol listener.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.cfg.Server.Host, fmt.Sprint(s.cfg.Server.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	if s.cfg.Server.TLSCertFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile)
		if err != nil {
			ln.Close()
			return fmt.Errorf("server: loading TLS certificate: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	}

	maxConn := s.cfg.Server.MaxConnections
	if maxConn <= 0 {
		maxConn = 10000
	}

	l := &listener{ln: ln, sem: make(chan struct{}, maxConn)}
	s.listener = l

	if s.cfg.Metrics.Enabled {
		go s.serveMetrics()
	}
	if s.cfg.Dashboard.Enabled {
		go s.serveDashboard()
	}

	zap.L().Info("server: listening", zap.String("addr", addr))
	return l.acceptLoop(s)
}

// acceptLoop accepts connections until the listener is closed, retrying
// transient errors with exponential backoff the way net/http's own
// Server.Serve does for Accept errors, rather than exiting the process
// on a momentary resource exhaustion.
func (l *listener) acceptLoop(s *Server) error {
	var backoff time.Duration
	for {
		c, err := l.ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				backoff = nextBackoff(backoff)
				zap.L().Warn("server: accept error, retrying", zap.Error(err), zap.Duration("backoff", backoff))
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0

		select {
		case l.sem <- struct{}{}:
		default:
			zap.L().Warn("server: max connections reached, rejecting", zap.String("remote", c.RemoteAddr().String()))
			c.Close()
			continue
		}

		atomic.AddInt64(&l.clients, 1)
		go func() {
			defer func() {
				<-l.sem
				atomic.AddInt64(&l.clients, -1)
			}()
			conn.Serve(c, s.connDeps())
		}()
	}
}

func nextBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	if prev >= time.Second {
		return time.Second
	}
	return prev * 2
}

func (l *listener) close() {
	l.ln.Close()
}

func (s *Server) connDeps() conn.Deps {
	return conn.Deps{
		DB:         s.db,
		PostOffice: s.po,
		ScriptHost: s.host,
		RootAC: func() *acl.AccessControl {
			ac, _ := s.acl.Get("default_ac")
			return ac
		},
		RequireAuth:     s.cfg.Acl.RequireAuth,
		RequestShutdown: s.Shutdown,
	}
}

func (s *Server) serveMetrics() {
	reg := metrics.New()
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	if err := http.ListenAndServe(s.cfg.Metrics.ListenAddr, mux); err != nil {
		zap.L().Warn("server: metrics endpoint stopped", zap.Error(err))
	}
}

func (s *Server) serveDashboard() {
	hub := dashboard.NewHub(s.db, s, time.Second)
	defer hub.Close()
	if err := http.ListenAndServe(s.cfg.Dashboard.ListenAddr, hub); err != nil {
		zap.L().Warn("server: dashboard endpoint stopped", zap.Error(err))
	}
}

// ConnectedClients implements dashboard.Sampler.
func (s *Server) ConnectedClients() int64 {
	if s.listener == nil {
		return 0
	}
	return atomic.LoadInt64(&s.listener.clients)
}

// ConnectedReplicas implements dashboard.Sampler.
func (s *Server) ConnectedReplicas() int {
	if s.hub == nil {
		return 0
	}
	return s.hub.ReplicaCount()
}

// ReplicationOffset implements dashboard.Sampler.
func (s *Server) ReplicationOffset() int64 {
	if s.hub == nil {
		return 0
	}
	return s.hub.Offset()
}
