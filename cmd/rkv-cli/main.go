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

// rkv-cli is an interactive RESP3 client, a readline REPL in the same
// style as memcp's own scm.Repl: read a line, send it, print the result,
// repeat.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/launix-de/rkv/internal/resp3"
)

const (
	newPrompt    = "\033[32mrkv>\033[0m "
	resultPrompt = "\033[31m=\033[0m "
)

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 6380, "server port")
	flag.Parse()

	addr := net.JoinHostPort(*host, strconv.Itoa(*port))
	c, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Println("rkv-cli: could not connect:", err)
		return
	}
	defer c.Close()

	reader := resp3.NewReader(c)

	l, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       ".rkv-cli-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Printf("connected to %s\n", addr)
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := splitArgs(line)
		if len(args) == 0 {
			continue
		}

		if _, err := c.Write(encodeCommand(args)); err != nil {
			fmt.Println("(error) write failed:", err)
			return
		}

		f, err := reader.ReadFrame()
		if err != nil {
			fmt.Println("(error) read failed:", err)
			return
		}
		fmt.Print(resultPrompt)
		fmt.Println(render(f))
	}
}

func encodeCommand(args []string) []byte {
	elems := make([]resp3.Frame, len(args))
	for i, a := range args {
		elems[i] = resp3.BlobStringFromString(a)
	}
	return resp3.Encode(nil, resp3.Array(elems...))
}

// splitArgs tokenizes a command line, honoring single/double quotes the
// way redis-cli's own line parser does, so a value containing spaces can
// be passed as one argument.
func splitArgs(line string) []string {
	var args []string
	var cur strings.Builder
	inQuote := byte(0)
	hasCur := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case inQuote != 0:
			if ch == inQuote {
				inQuote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			inQuote = ch
			hasCur = true
		case ch == ' ' || ch == '\t':
			if hasCur {
				args = append(args, cur.String())
				cur.Reset()
				hasCur = false
			}
		default:
			cur.WriteByte(ch)
			hasCur = true
		}
	}
	if hasCur {
		args = append(args, cur.String())
	}
	return args
}

// render formats a reply frame the way redis-cli prints results: simple
// values inline, arrays as numbered lines.
func render(f resp3.Frame) string {
	switch f.Type {
	case resp3.TypeSimpleString, resp3.TypeVerbatimString:
		return string(f.Str)
	case resp3.TypeSimpleError, resp3.TypeBlobError:
		return "(error) " + string(f.Str)
	case resp3.TypeInteger:
		return fmt.Sprintf("(integer) %d", f.Int)
	case resp3.TypeDouble:
		return fmt.Sprintf("(double) %v", f.Dbl)
	case resp3.TypeBoolean:
		if f.Bool {
			return "(true)"
		}
		return "(false)"
	case resp3.TypeNull:
		return "(nil)"
	case resp3.TypeBlobString:
		if f.Chunked {
			var sb strings.Builder
			for _, ch := range f.Chunks {
				sb.Write(ch)
			}
			return strconv.Quote(sb.String())
		}
		return strconv.Quote(string(f.Str))
	case resp3.TypeBigNumber:
		return "(big) " + string(f.Str)
	case resp3.TypeArray, resp3.TypeSet, resp3.TypePush:
		if len(f.Elems) == 0 {
			return "(empty array)"
		}
		var sb strings.Builder
		for i, e := range f.Elems {
			if i > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "%d) %s", i+1, render(e))
		}
		return sb.String()
	case resp3.TypeMap:
		if len(f.Pairs) == 0 {
			return "(empty map)"
		}
		var sb strings.Builder
		for i, kv := range f.Pairs {
			if i > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "%d) %s => %s", i+1, render(kv.Key), render(kv.Value))
		}
		return sb.String()
	default:
		return fmt.Sprintf("%v", f)
	}
}
