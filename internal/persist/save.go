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
	"sync"

	"go.uber.org/zap"

	"github.com/launix-de/rkv/internal/command"
	"github.com/launix-de/rkv/internal/store"
)

// WireSaveHooks plugs a snapshot+AOF pair into internal/command's SAVE,
// BGSAVE and LASTSAVE handlers. save() writes a fresh snapshot and then
// rotates the AOF (the commands it held are now folded into the
// snapshot, so the log can start empty again) — the same
// snapshot-then-truncate-log sequence real Redis's SAVE performs.
func WireSaveHooks(db *store.Db, backend Backend, aof *AofWriter, codec Codec) {
	var mu sync.Mutex
	save := func() error {
		mu.Lock()
		defer mu.Unlock()
		data, err := EncodeSnapshot(db, codec)
		if err != nil {
			return err
		}
		if err := backend.WriteSnapshot(data); err != nil {
			return err
		}
		if aof == nil {
			return nil
		}
		return aof.Rotate()
	}

	command.SetSaveHooks(save, func() {
		go func() {
			if err := save(); err != nil {
				zap.L().Error("background save failed", zap.Error(err))
			}
		}()
	})
}
