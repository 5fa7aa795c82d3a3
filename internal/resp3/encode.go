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
	"strconv"
)

// Encode appends the byte-exact RESP3 representation of f to dst and
// returns the extended slice. It never errors on well-formed Frame values;
// a Frame built only through the constructors in frame.go is always
// well-formed.
func Encode(dst []byte, f Frame) []byte {
	switch f.Type {
	case TypeSimpleString, TypeSimpleError:
		dst = append(dst, byte(f.Type))
		dst = append(dst, f.Str...)
		return append(dst, '\r', '\n')

	case TypeInteger:
		dst = append(dst, byte(f.Type))
		dst = strconv.AppendInt(dst, f.Int, 10)
		return append(dst, '\r', '\n')

	case TypeBigNumber:
		dst = append(dst, byte(f.Type))
		if f.Big != nil {
			dst = append(dst, f.Big.String()...)
		} else {
			dst = append(dst, '0')
		}
		return append(dst, '\r', '\n')

	case TypeDouble:
		dst = append(dst, byte(f.Type))
		dst = appendDouble(dst, f.Dbl)
		return append(dst, '\r', '\n')

	case TypeBoolean:
		dst = append(dst, byte(f.Type))
		if f.Bool {
			dst = append(dst, 't')
		} else {
			dst = append(dst, 'f')
		}
		return append(dst, '\r', '\n')

	case TypeNull:
		return append(dst, '_', '\r', '\n')

	case TypeBlobString, TypeBlobError:
		if f.Chunked {
			return encodeChunked(dst, f)
		}
		dst = append(dst, byte(f.Type))
		dst = strconv.AppendInt(dst, int64(len(f.Str)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, f.Str...)
		return append(dst, '\r', '\n')

	case TypeVerbatimString:
		dst = append(dst, byte(f.Type))
		dst = strconv.AppendInt(dst, int64(len(f.Str)+4), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, f.Format[:]...)
		dst = append(dst, ':')
		dst = append(dst, f.Str...)
		return append(dst, '\r', '\n')

	case TypeArray, TypeSet, TypePush:
		dst = append(dst, byte(f.Type))
		dst = strconv.AppendInt(dst, int64(len(f.Elems)), 10)
		dst = append(dst, '\r', '\n')
		for _, e := range f.Elems {
			dst = Encode(dst, e)
		}
		return dst

	case TypeMap:
		dst = append(dst, byte(f.Type))
		dst = strconv.AppendInt(dst, int64(len(f.Pairs)), 10)
		dst = append(dst, '\r', '\n')
		for _, kv := range f.Pairs {
			dst = Encode(dst, kv.Key)
			dst = Encode(dst, kv.Value)
		}
		return dst

	default:
		return append(dst, '_', '\r', '\n')
	}
}

func encodeChunked(dst []byte, f Frame) []byte {
	dst = append(dst, '$', '?', '\r', '\n')
	for _, c := range f.Chunks {
		dst = append(dst, ';')
		dst = strconv.AppendInt(dst, int64(len(c)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, c...)
		dst = append(dst, '\r', '\n')
	}
	return append(dst, ';', '0', '\r', '\n')
}

// appendDouble renders f as its integer form when the fractional part is
// zero, else the shortest round-trip decimal representation.
func appendDouble(dst []byte, f float64) []byte {
	if f == float64(int64(f)) && !isNegZero(f) {
		return strconv.AppendInt(dst, int64(f), 10)
	}
	return strconv.AppendFloat(dst, f, 'g', -1, 64)
}

func isNegZero(f float64) bool {
	return f == 0 && (1/f) < 0
}
