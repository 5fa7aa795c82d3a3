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
package command

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/mailbox"
	"github.com/launix-de/rkv/internal/resp3"
)

func init() {
	register(Spec{Name: "BGSAVE", Category: acl.CatAdmin | acl.CatDangerous, Arity: 1, Keys: noKeys, Handler: cmdBgSave})
	register(Spec{Name: "SAVE", Category: acl.CatAdmin | acl.CatDangerous, Arity: 1, Keys: noKeys, Handler: cmdSave})
	register(Spec{Name: "LASTSAVE", Category: acl.CatAdmin, Arity: 1, Keys: noKeys, Handler: cmdLastSave})
	register(Spec{Name: "PSYNC", Category: acl.CatAdmin | acl.CatDangerous, Arity: 3, Keys: noKeys, Handler: cmdPsync})
	register(Spec{Name: "REPLCONF", Category: acl.CatAdmin, Arity: -1, Keys: noKeys, Handler: cmdReplConf})
	register(Spec{Name: "REPLICAOF", Category: acl.CatAdmin | acl.CatDangerous, Arity: 3, Keys: noKeys, Handler: cmdReplicaOf})
	register(Spec{Name: "ACL", Category: acl.CatAdmin | acl.CatDangerous, Arity: -2, Keys: noKeys, Handler: cmdAcl})
	register(Spec{Name: "CONFIG", Category: acl.CatAdmin | acl.CatDangerous, Arity: -2, Keys: noKeys, Handler: cmdConfig})
	register(Spec{Name: "COMMAND", Category: acl.CatConnection, Arity: -1, Keys: noKeys, Handler: cmdCommand})
	register(Spec{Name: "INFO", Category: acl.CatAdmin, Arity: -1, Keys: noKeys, Handler: cmdInfo})
	register(Spec{Name: "SHUTDOWN", Category: acl.CatAdmin | acl.CatDangerous, Arity: -1, Keys: noKeys, Handler: cmdShutdown})
}

// SaveHooks lets internal/persist register what BGSAVE/SAVE actually do
// without internal/command importing internal/persist (which in turn
// imports internal/store and would otherwise risk a cycle once the
// persistence layer starts depending back on command's error taxonomy for
// its own admin-facing diagnostics). A process that never wires a hook
// gets an SAVE/BGSAVE that succeeds as a no-op, matching a server with no
// persistence backend configured.
var (
	saveHooksMu  sync.RWMutex
	syncSaveHook func() error
	asyncSaveFn  func()
	lastSaveAt   time.Time
)

// SetSaveHooks is called once at startup by internal/persist.
func SetSaveHooks(sync func() error, async func()) {
	saveHooksMu.Lock()
	defer saveHooksMu.Unlock()
	syncSaveHook = sync
	asyncSaveFn = async
}

func recordSave() {
	saveHooksMu.Lock()
	lastSaveAt = time.Now()
	saveHooksMu.Unlock()
}

func cmdBgSave(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	saveHooksMu.RLock()
	fn := asyncSaveFn
	saveHooksMu.RUnlock()
	if fn != nil {
		go func() { fn(); recordSave() }()
	} else {
		recordSave()
	}
	return resp3.SimpleString("Background saving started"), true, nil
}

func cmdSave(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	saveHooksMu.RLock()
	fn := syncSaveHook
	saveHooksMu.RUnlock()
	if fn != nil {
		if err := fn(); err != nil {
			return resp3.Frame{}, false, ServerError{Msg: err.Error()}
		}
	}
	recordSave()
	return resp3.SimpleString("OK"), true, nil
}

func cmdLastSave(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	saveHooksMu.RLock()
	at := lastSaveAt
	saveHooksMu.RUnlock()
	return resp3.Integer(at.Unix()), true, nil
}

// replicationInfo is set by internal/server at startup so cmdPsync can
// report this node's real repl_id/offset rather than a placeholder. A
// process with replication disabled gets a zero-value ("", 0), matching a
// master that has never propagated anything.
var (
	replInfoMu sync.RWMutex
	replInfoFn func() (replID string, offset int64)
)

// SetReplicationInfo is called once at startup by internal/server with the
// replication hub's Info method.
func SetReplicationInfo(fn func() (string, int64)) {
	replInfoMu.Lock()
	replInfoFn = fn
	replInfoMu.Unlock()
}

func replicationInfo() (string, int64) {
	replInfoMu.RLock()
	defer replInfoMu.RUnlock()
	if replInfoFn == nil {
		return "", 0
	}
	return replInfoFn()
}

// cmdPsync hands the replication fabric a resync request by way of the
// post office rather than performing it inline: the actual full-vs-partial
// decision, snapshot/backlog streaming, and replica bookkeeping happens on
// the hub task owning mailbox.RunReplicaID, which is better positioned to
// serialize concurrent replica attach/detach than a command handler
// running on the connection's own goroutine. The letter carries this
// connection's own mailbox id, so the hub can both decide the resync and
// attach the replica from a single message.
func cmdPsync(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	offset, err := parseInt(args[2])
	if err != nil {
		return resp3.Frame{}, false, err
	}
	ctx.PostOffice().Send(mailbox.RunReplicaID, mailbox.Letter{
		Kind:      mailbox.KindPsync,
		ReplID:    string(args[1]),
		Offset:    offset,
		ReplicaID: ctx.ID(),
	})
	replID, replOffset := replicationInfo()
	return resp3.SimpleString("FULLRESYNC " + replID + " " + strconv.FormatInt(replOffset, 10)), true, nil
}

func cmdReplConf(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	return resp3.SimpleString("OK"), true, nil
}

func cmdReplicaOf(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	host, port := string(args[1]), string(args[2])
	if host == "NO" && port == "ONE" {
		ctx.PostOffice().Send(mailbox.RunReplicaID, mailbox.ReplicaOfLetter("", ""))
		return resp3.SimpleString("OK"), true, nil
	}
	ctx.PostOffice().Send(mailbox.RunReplicaID, mailbox.ReplicaOfLetter(host, port))
	return resp3.SimpleString("OK"), true, nil
}

// ACL registry shared process-wide across connections; wired in by
// internal/server at startup via SetAclRegistry. Kept as a package var rather
// than threaded through Context because it's a singleton for the whole
// server, not a per-connection concern.
var (
	aclRegistryMu sync.RWMutex
	aclRegistry   *acl.Registry
)

// SetAclRegistry installs the process-wide user table the ACL admin
// subcommands operate on.
func SetAclRegistry(r *acl.Registry) {
	aclRegistryMu.Lock()
	aclRegistry = r
	aclRegistryMu.Unlock()
}

func getAclRegistry() *acl.Registry {
	aclRegistryMu.RLock()
	defer aclRegistryMu.RUnlock()
	return aclRegistry
}

func cmdAcl(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	reg := getAclRegistry()
	if reg == nil {
		return resp3.Frame{}, false, ServerError{Msg: "ACL registry unavailable"}
	}
	switch string(upper(args[1])) {
	case "WHOAMI":
		return resp3.BlobStringFromString(ctx.AC().Snapshot().Name), true, nil
	case "LIST", "USERS":
		var elems []resp3.Frame
		for _, n := range reg.Names() {
			elems = append(elems, resp3.BlobStringFromString(n))
		}
		return resp3.Array(elems...), true, nil
	case "CAT":
		var elems []resp3.Frame
		for _, n := range []string{"admin", "connection", "read", "write", "keyspace", "string", "list", "hash", "pubsub", "scripting", "dangerous"} {
			elems = append(elems, resp3.BlobStringFromString(n))
		}
		return resp3.Array(elems...), true, nil
	case "DELUSER":
		n := 0
		for _, u := range args[2:] {
			if reg.DelUser(string(u)) {
				n++
			}
		}
		return resp3.Integer(int64(n)), true, nil
	case "SETUSER":
		if len(args) < 3 {
			return resp3.Frame{}, false, ErrWrongArgNum
		}
		name := string(args[2])
		if name == "default_ac" {
			return resp3.Frame{}, false, ServerError{Msg: "the default user is read-only"}
		}
		op, err := parseSetUserOp(args[3:])
		if err != nil {
			return resp3.Frame{}, false, err
		}
		reg.SetUser(name, op)
		return resp3.SimpleString("OK"), true, nil
	default:
		return resp3.Frame{}, false, ErrSyntax
	}
}

// consumeCommaList reads a comma-joined run of tokens starting at toks[0]:
// every token but the last must end in ',' (the separator is stripped),
// and the first token with no trailing ',' is consumed whole and ends the
// list. It mirrors AclSetUser::parse's ALLOWCMD/DENYCMD/ALLOWCAT/DENYCAT/
// DENYRKEY/DENYWKEY/DENYCHANNEL token-collection loop, which has no
// closing delimiter of its own: the list simply runs until a token that
// isn't comma-suffixed. Returns the parsed items and how many tokens were
// consumed.
func consumeCommaList(toks [][]byte) ([]string, int, error) {
	if len(toks) == 0 {
		return nil, 0, ErrSyntax
	}
	var items []string
	for i, raw := range toks {
		if len(raw) > 0 && raw[len(raw)-1] == ',' {
			items = append(items, string(raw[:len(raw)-1]))
			continue
		}
		items = append(items, string(raw))
		return items, i + 1, nil
	}
	return items, len(toks), nil
}

// parseSetUserOp translates ACL SETUSER's token stream into a SetUserOp.
// The grammar is case-sensitive and matches the documented rule tokens:
// enable|disable, PWD <p|RESET>, ALLOWCMD/DENYCMD <cmd,...|ALL>,
// ALLOWCAT/DENYCAT <cat,...|ALL>, DENYRKEY/DENYWKEY/DENYCHANNEL
// <pattern,...|RESET>.
func parseSetUserOp(tokens [][]byte) (acl.SetUserOp, error) {
	var op acl.SetUserOp
	i := 0
	for i < len(tokens) {
		tok := string(tokens[i])
		switch tok {
		case "enable":
			op.Enable = true
			i++
		case "disable":
			op.Disable = true
			i++
		case "PWD":
			if i+1 >= len(tokens) {
				return op, ErrSyntax
			}
			val := string(tokens[i+1])
			op.HasPassword = true
			if !strings.EqualFold(val, "RESET") {
				op.Password = val
			}
			i += 2
		case "ALLOWCMD":
			list, n, err := consumeCommaList(tokens[i+1:])
			if err != nil {
				return op, err
			}
			for _, name := range list {
				if strings.EqualFold(name, "ALL") {
					op.AllowCmdAll = true
					continue
				}
				bit, ok := cmdBitByName(name)
				if !ok {
					return op, UnknownCommandError{Name: name}
				}
				op.AllowCmd = op.AllowCmd.Or(bit)
			}
			i += 1 + n
		case "DENYCMD":
			list, n, err := consumeCommaList(tokens[i+1:])
			if err != nil {
				return op, err
			}
			for _, name := range list {
				if strings.EqualFold(name, "ALL") {
					op.DenyCmdAll = true
					continue
				}
				bit, ok := cmdBitByName(name)
				if !ok {
					return op, UnknownCommandError{Name: name}
				}
				op.DenyCmd = op.DenyCmd.Or(bit)
			}
			i += 1 + n
		case "ALLOWCAT":
			list, n, err := consumeCommaList(tokens[i+1:])
			if err != nil {
				return op, err
			}
			for _, name := range list {
				if strings.EqualFold(name, "ALL") {
					op.AllowCatAll = true
					continue
				}
				cat, err := acl.CategoryByName(name)
				if err != nil {
					return op, err
				}
				op.AllowCat = append(op.AllowCat, cat)
			}
			i += 1 + n
		case "DENYCAT":
			list, n, err := consumeCommaList(tokens[i+1:])
			if err != nil {
				return op, err
			}
			for _, name := range list {
				if strings.EqualFold(name, "ALL") {
					op.DenyCatAll = true
					continue
				}
				cat, err := acl.CategoryByName(name)
				if err != nil {
					return op, err
				}
				op.DenyCat = append(op.DenyCat, cat)
			}
			i += 1 + n
		case "DENYRKEY":
			list, n, err := consumeCommaList(tokens[i+1:])
			if err != nil {
				return op, err
			}
			if containsFold(list, "RESET") {
				op.ResetReadKeys = true
			} else {
				op.DenyReadKeys = append(op.DenyReadKeys, list...)
			}
			i += 1 + n
		case "DENYWKEY":
			list, n, err := consumeCommaList(tokens[i+1:])
			if err != nil {
				return op, err
			}
			if containsFold(list, "RESET") {
				op.ResetWriteKeys = true
			} else {
				op.DenyWriteKeys = append(op.DenyWriteKeys, list...)
			}
			i += 1 + n
		case "DENYCHANNEL":
			list, n, err := consumeCommaList(tokens[i+1:])
			if err != nil {
				return op, err
			}
			if containsFold(list, "RESET") {
				op.ResetChannels = true
			} else {
				op.DenyChannels = append(op.DenyChannels, list...)
			}
			i += 1 + n
		default:
			return op, ErrSyntax
		}
	}
	return op, nil
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

// CONFIG is backed by a tiny in-process key/value map rather than
// internal/config's viper-sourced Store: runtime CONFIG GET/SET is a
// narrower, best-effort admin surface over a handful of tunables, while
// internal/config governs the process's startup configuration.
var (
	configMu sync.RWMutex
	configKV = map[string]string{
		"maxmemory":        "0",
		"maxmemory-policy": "noeviction",
		"appendonly":       "no",
		"save":             "",
	}
)

func cmdConfig(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	switch string(upper(args[1])) {
	case "GET":
		if len(args) < 3 {
			return resp3.Frame{}, false, ErrWrongArgNum
		}
		pattern := string(args[2])
		configMu.RLock()
		defer configMu.RUnlock()
		var pairs []resp3.KV
		for k, v := range configKV {
			if acl.MatchGlob(pattern, k) {
				pairs = append(pairs, resp3.KV{Key: resp3.BlobStringFromString(k), Value: resp3.BlobStringFromString(v)})
			}
		}
		return resp3.Map(pairs...), true, nil
	case "SET":
		if len(args) < 4 {
			return resp3.Frame{}, false, ErrWrongArgNum
		}
		configMu.Lock()
		configKV[string(args[2])] = string(args[3])
		configMu.Unlock()
		return resp3.SimpleString("OK"), true, nil
	default:
		return resp3.Frame{}, false, ErrSyntax
	}
}

func cmdCommand(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	if len(args) >= 2 && string(upper(args[1])) == "COUNT" {
		return resp3.Integer(int64(Count())), true, nil
	}
	var elems []resp3.Frame
	for _, n := range Names() {
		elems = append(elems, resp3.BlobStringFromString(n))
	}
	return resp3.Array(elems...), true, nil
}

func cmdInfo(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	n := ctx.DB().Len()
	lines := "# Server\r\n" +
		"redis_version:7.4.0\r\n" +
		"rkv_mode:standalone\r\n" +
		"# Clients\r\n" +
		"connected_clients:1\r\n" +
		"# Keyspace\r\n" +
		"db0:keys=" + strconv.Itoa(n) + ",expires=0,avg_ttl=0\r\n"
	return resp3.BlobStringFromString(lines), true, nil
}

func cmdShutdown(ctx Context, args [][]byte) (resp3.Frame, bool, error) {
	ctx.RequestShutdown()
	return resp3.Frame{}, false, nil
}
