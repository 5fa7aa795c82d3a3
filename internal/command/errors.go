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
	"errors"

	"github.com/launix-de/rkv/internal/acl"
	"github.com/launix-de/rkv/internal/resp3"
	"github.com/launix-de/rkv/internal/store"
)

// The error taxonomy below maps one-to-one to the reply forms a client
// sees; ToFrame is the single place that performs that mapping so every
// command handler can just return a plain Go error.

var (
	ErrUnknownCmd    = errors.New("ERR unknown command")
	ErrWrongArgNum   = errors.New("ERR wrong number of arguments")
	ErrSyntax        = errors.New("ERR syntax error")
	ErrOverflow      = errors.New("ERR value out of range")
	ErrUnknownCmdCat = errors.New("ERR unknown command category")
)

// A2IParseError reports that bytes failed integer parsing.
type A2IParseError struct{ Bytes []byte }

func (e A2IParseError) Error() string {
	return "ERR value '" + string(e.Bytes) + "' is not an integer or out of range"
}

// A2FParseError reports that bytes failed float parsing.
type A2FParseError struct{ Bytes []byte }

func (e A2FParseError) Error() string {
	return "ERR value '" + string(e.Bytes) + "' is not a valid float"
}

// InvalidPatternError reports a malformed glob pattern argument.
type InvalidPatternError struct{ Pattern string }

func (e InvalidPatternError) Error() string {
	return "ERR invalid pattern: " + e.Pattern
}

// UnknownCommandError reports that an ACL SETUSER ALLOWCMD/DENYCMD token
// named a command absent from the registry.
type UnknownCommandError struct{ Name string }

func (e UnknownCommandError) Error() string {
	return "ERR unknown command '" + e.Name + "'"
}

// ServerError is a catch-all internal error ("ERR " + msg).
type ServerError struct{ Msg string }

func (e ServerError) Error() string { return "ERR " + e.Msg }

// ToFrame converts any error a handler or the dispatch pipeline produced
// into its wire reply, per the error taxonomy's reply-form column.
func ToFrame(err error) resp3.Frame {
	if err == nil {
		return resp3.Null()
	}
	var wrongType *store.ErrWrongType
	switch {
	case errors.As(err, &wrongType):
		return resp3.SimpleError("WRONGTYPE Operation against a key holding the wrong kind of value")
	case errors.Is(err, acl.ErrNoPermission):
		return resp3.SimpleError(err.Error())
	case errors.Is(err, store.ErrNotFound):
		return resp3.Null()
	case errors.Is(err, store.ErrOutOfMemory{}):
		return resp3.SimpleError("OOM command not allowed when used memory > maxmemory")
	default:
		return resp3.SimpleError(err.Error())
	}
}
