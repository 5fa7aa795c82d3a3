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

// Package script defines the narrow interface EVAL/EVALSHA/SCRIPT dispatch
// through. It deliberately does not bundle a language runtime: Host is an
// external-collaborator seam, with NoopHost as the default, always-present
// implementation that keeps the scripting ACL category and command family
// exercised without shipping an interpreter.
package script

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/launix-de/rkv/internal/resp3"
)

// Host evaluates scripts against the store. A real implementation would
// wrap an embedded language runtime; it is expected to fetch/mutate state
// through the same store.Db handle the rest of the server uses, not
// through the wire protocol.
type Host interface {
	Eval(ctx context.Context, src []byte, keys, argv [][]byte) (resp3.Frame, error)
	Load(src []byte) (sha string, err error)
	Exists(sha string) bool
}

// ErrScriptingUnavailable is returned by NoopHost.Eval.
var ErrScriptingUnavailable = errors.New("scripting is not available in this build")

// NoopHost tracks loaded script hashes (so SCRIPT LOAD/EXISTS/FLUSH behave
// correctly) but refuses to evaluate anything.
type NoopHost struct {
	mu      sync.RWMutex
	scripts map[string][]byte
}

// NewNoopHost builds an empty script cache.
func NewNoopHost() *NoopHost {
	return &NoopHost{scripts: make(map[string][]byte)}
}

func (h *NoopHost) Eval(_ context.Context, _ []byte, _, _ [][]byte) (resp3.Frame, error) {
	return resp3.Frame{}, ErrScriptingUnavailable
}

// Load registers src under its SHA1 hex digest, matching SCRIPT LOAD's
// contract, without requiring a runtime able to execute it.
func (h *NoopHost) Load(src []byte) (string, error) {
	sum := sha1.Sum(src)
	sha := hex.EncodeToString(sum[:])
	h.mu.Lock()
	h.scripts[sha] = append([]byte(nil), src...)
	h.mu.Unlock()
	return sha, nil
}

func (h *NoopHost) Exists(sha string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.scripts[sha]
	return ok
}

// Flush clears the script cache (SCRIPT FLUSH).
func (h *NoopHost) Flush() {
	h.mu.Lock()
	h.scripts = make(map[string][]byte)
	h.mu.Unlock()
}
