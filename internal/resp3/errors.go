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
package resp3

import "errors"

// ErrIncomplete means the buffer does not yet contain a full frame. The
// caller must read more bytes and retry decoding from the same offset;
// it is never surfaced across a pipeline batch boundary, only within the
// decode of a single frame.
var ErrIncomplete = errors.New("resp3: incomplete frame")

// FormatError reports a malformed frame (bad length prefix, missing
// terminator, non-decimal integer, bare \n, unknown type byte, ...). It is
// fatal to the connection: the handler logs and disconnects.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "resp3: invalid format: " + e.Reason }

func newFormatError(reason string) error { return &FormatError{Reason: reason} }
