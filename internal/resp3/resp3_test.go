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

import (
	"io"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrames() []Frame {
	return []Frame{
		SimpleString("OK"),
		SimpleError("ERR boom"),
		Integer(42),
		Integer(-7),
		BlobString([]byte("hello world")),
		BlobString([]byte{}),
		BlobError([]byte("WRONGTYPE oops")),
		VerbatimString("txt", []byte("plain text")),
		Null(),
		Boolean(true),
		Boolean(false),
		Double(3.5),
		Double(10),
		BigNumber(big.NewInt(123456789012345)),
		Array(Integer(1), Integer(2), BlobString([]byte("three"))),
		Set(Integer(1), Integer(2), Integer(3)),
		Push(BlobString([]byte("message")), BlobString([]byte("ch")), BlobString([]byte("hi"))),
		Map(KV{Key: BlobString([]byte("a")), Value: Integer(1)}, KV{Key: BlobString([]byte("b")), Value: Integer(2)}),
		Array(Array(Integer(1), Integer(2)), Map(KV{Key: SimpleString("k"), Value: Null()})),
	}
}

// Invariant 1: decode(encode(f)) == f up to unordered map/set equality.
func TestRoundTrip(t *testing.T) {
	for _, f := range sampleFrames() {
		buf := Encode(nil, f)
		got, n, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.True(t, f.Equal(got), "frame mismatch: %+v != %+v", f, got)
	}
}

// Invariant 2: for any split of a byte stream, decoding the first half
// yields Incomplete, and decoding the concatenation after the second half
// arrives produces the same frame as decoding the whole buffer at once.
func TestSplitBufferIncomplete(t *testing.T) {
	for _, f := range sampleFrames() {
		buf := Encode(nil, f)
		for split := 0; split < len(buf); split++ {
			_, _, err := Decode(buf[:split])
			assert.Equal(t, ErrIncomplete, err, "split=%d type=%v", split, f.Type)
		}
		whole, n, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.True(t, f.Equal(whole))
	}
}

func TestChunkedStringDecode(t *testing.T) {
	raw := []byte("$?\r\n;4\r\nHell\r\n;1\r\no\r\n;0\r\n")
	f, n, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.True(t, f.Chunked)
	assert.Equal(t, [][]byte{[]byte("Hell"), []byte("o")}, f.Chunks)
}

func TestBareNewlineRejected(t *testing.T) {
	_, _, err := Decode([]byte("+OK\n"))
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
}

func TestUnknownPrefixRejected(t *testing.T) {
	_, _, err := Decode([]byte("?garbage\r\n"))
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
}

func TestDecodeHello(t *testing.T) {
	h, err := DecodeHello([][]byte{[]byte("3"), []byte("AUTH"), []byte("default"), []byte("pw")})
	require.NoError(t, err)
	assert.Equal(t, 3, h.Version)
	assert.True(t, h.HasAuth)
	assert.Equal(t, "default", h.User)
	assert.Equal(t, "pw", h.Pass)
}

func TestReaderPipelinedBatch(t *testing.T) {
	var buf []byte
	buf = Encode(buf, Array(BlobString([]byte("PING"))))
	buf = Encode(buf, Array(BlobString([]byte("GET")), BlobString([]byte("k"))))

	r := NewReader(newByteReader(buf))
	bd := BatchDecoder{MaxBatch: 10}
	cmds, err := bd.DecodeBatch(r)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "PING", string(cmds[0][0]))
	assert.Equal(t, "GET", string(cmds[1][0]))
}

// byteReader feeds a fixed buffer then reports EOF, used to exercise Reader
// without a real socket.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (b *byteReader) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}
