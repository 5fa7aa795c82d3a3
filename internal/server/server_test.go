package server

import (
	"bufio"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/launix-de/rkv/internal/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServerAcceptsConnectionsAndDispatchesCommands(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir, config.Flags{})
	require.NoError(t, err)
	cfg.Persistence.Path = dir
	cfg.Metrics.Enabled = false
	cfg.Dashboard.Enabled = false
	cfg.Server.Port = freePort(t)
	cfg.Server.Host = "127.0.0.1"

	srv, err := New(cfg)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen() }()
	defer srv.Shutdown()

	var c net.Conn
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	for i := 0; i < 50; i++ {
		c, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"))
	require.NoError(t, err)

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(c).ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "OK")
}
