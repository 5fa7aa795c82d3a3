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
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/launix-de/rkv/internal/resp3"
)

// FileFactory opens FileBackends rooted at Basepath, one subdirectory per
// database name, mirroring memcp's FileFactory{Basepath}/FileStorage
// layout (storage/persistence-files.go).
type FileFactory struct {
	Basepath string
}

func (f *FileFactory) Open(name string) Backend {
	return &FileBackend{dir: filepath.Join(f.Basepath, name)}
}

// FileBackend stores a database's snapshot and AOF as plain files under
// dir: dump.rdb (+ dump.rdb.old backup, same rescue-a-copy pattern as
// memcp's schema.json/schema.json.old) and appendonly.aof.
type FileBackend struct {
	dir string
}

func (s *FileBackend) snapshotPath() string { return filepath.Join(s.dir, "dump.rdb") }
func (s *FileBackend) snapshotBakPath() string { return filepath.Join(s.dir, "dump.rdb.old") }
func (s *FileBackend) logPath() string { return filepath.Join(s.dir, "appendonly.aof") }

func (s *FileBackend) ReadSnapshot() ([]byte, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			data, err = os.ReadFile(s.snapshotBakPath())
			if os.IsNotExist(err) {
				return nil, nil
			}
			return data, err
		}
		return nil, err
	}
	return data, nil
}

func (s *FileBackend) WriteSnapshot(data []byte) error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return err
	}
	if stat, err := os.Stat(s.snapshotPath()); err == nil && stat.Size() > 0 {
		os.Rename(s.snapshotPath(), s.snapshotBakPath())
	}
	tmp := s.snapshotPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return err
	}
	return os.Rename(tmp, s.snapshotPath())
}

func (s *FileBackend) OpenLog() (Logfile, error) {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.logPath(), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, err
	}
	return &fileLogfile{f: f, w: bufio.NewWriter(f)}, nil
}

// ReplayLog streams every previously appended command out of appendonly.aof
// by feeding the raw bytes through a resp3.Reader, the same way a live
// connection parses pipelined input, then leaves the file open for
// further appends.
func (s *FileBackend) ReplayLog() (<-chan []byte, Logfile, error) {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(s.logPath(), os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan []byte, 64)
	fi, statErr := f.Stat()
	if statErr != nil || fi.Size() == 0 {
		close(out)
	} else {
		r := resp3.NewReader(io.NewSectionReader(f, 0, fi.Size()))
		go func() {
			defer close(out)
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

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, nil, err
	}
	return out, &fileLogfile{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *FileBackend) RemoveLog() error {
	err := os.Remove(s.logPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileBackend) Remove() error {
	return os.RemoveAll(s.dir)
}

type fileLogfile struct {
	f *os.File
	w *bufio.Writer
}

func (l *fileLogfile) Write(record []byte) error {
	_, err := l.w.Write(record)
	return err
}

func (l *fileLogfile) Sync() error {
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.f.Sync()
}

func (l *fileLogfile) Close() error {
	l.w.Flush()
	return l.f.Close()
}
