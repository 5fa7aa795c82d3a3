//go:build ceph

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
	"path"
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"

	"github.com/launix-de/rkv/internal/resp3"
)

// CephFactory opens CephBackends against one RADOS pool, grounded on
// memcp's CephFactory/CephStorage (storage/persistence-ceph.go): one
// object per concern, read/written wholesale since librados has no
// append primitive.
type CephFactory struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
}

func (f *CephFactory) Open(name string) Backend {
	pfx := path.Join(strings.TrimSuffix(f.Prefix, "/"), name)
	return &CephBackend{factory: f, prefix: pfx}
}

type CephBackend struct {
	factory *CephFactory
	prefix  string

	mu     sync.Mutex
	conn   *rados.Conn
	ioctx  *rados.IOContext
	opened bool
}

func (s *CephBackend) ensureOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return
	}

	conn, err := rados.NewConnWithClusterAndUser(s.factory.ClusterName, s.factory.UserName)
	if err != nil {
		panic(err)
	}
	if s.factory.ConfFile != "" {
		if err := conn.ReadConfigFile(s.factory.ConfFile); err != nil {
			panic(err)
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		panic(err)
	}
	ioctx, err := conn.OpenIOContext(s.factory.Pool)
	if err != nil {
		conn.Shutdown()
		panic(err)
	}

	s.conn = conn
	s.ioctx = ioctx
	s.opened = true
}

func (s *CephBackend) obj(name string) string { return path.Join(s.prefix, name) }

func (s *CephBackend) readObject(name string) ([]byte, error) {
	obj := s.obj(name)
	stat, err := s.ioctx.Stat(obj)
	if err != nil {
		return nil, err
	}
	data := make([]byte, stat.Size)
	n, err := s.ioctx.Read(obj, data, 0)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (s *CephBackend) ReadSnapshot() ([]byte, error) {
	s.ensureOpen()
	data, err := s.readObject("dump.rdb")
	if err != nil {
		return nil, nil
	}
	return data, nil
}

func (s *CephBackend) WriteSnapshot(data []byte) error {
	s.ensureOpen()
	return s.ioctx.WriteFull(s.obj("dump.rdb"), data)
}

func (s *CephBackend) OpenLog() (Logfile, error) {
	s.ensureOpen()
	existing, _ := s.readObject("appendonly.aof")
	return &cephLogfile{s: s, buf: *bytes.NewBuffer(existing)}, nil
}

func (s *CephBackend) ReplayLog() (<-chan []byte, Logfile, error) {
	s.ensureOpen()
	existing, _ := s.readObject("appendonly.aof")

	out := make(chan []byte, 64)
	if len(existing) == 0 {
		close(out)
	} else {
		go func() {
			defer close(out)
			r := resp3.NewReader(bytes.NewReader(existing))
			for {
				args, err := r.ReadCommand()
				if err != nil || args == nil {
					return
				}
				elems := make([]resp3.Frame, len(args))
				for i, a := range args {
					elems[i] = resp3.BlobString(a)
				}
				out <- resp3.Encode(nil, resp3.Array(elems...))
			}
		}()
	}

	return out, &cephLogfile{s: s, buf: *bytes.NewBuffer(existing)}, nil
}

func (s *CephBackend) RemoveLog() error {
	s.ensureOpen()
	return s.ioctx.Delete(s.obj("appendonly.aof"))
}

func (s *CephBackend) Remove() error {
	// Plain librados has no prefix-listing primitive without a maintained
	// manifest object (see memcp's CephStorage.Remove, which panics for the
	// same reason); a single database maps to two known object names here,
	// so we can delete them directly instead.
	s.ensureOpen()
	s.ioctx.Delete(s.obj("dump.rdb"))
	s.ioctx.Delete(s.obj("appendonly.aof"))
	return nil
}

// cephLogfile buffers appended records in memory and replaces the whole
// appendonly.aof object on Sync/Close, the same trade-off as s3Logfile.
type cephLogfile struct {
	s   *CephBackend
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *cephLogfile) Write(record []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.buf.Write(record)
	return err
}

func (l *cephLogfile) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.ioctx.WriteFull(l.s.obj("appendonly.aof"), l.buf.Bytes())
}

func (l *cephLogfile) Close() error {
	return l.Sync()
}
