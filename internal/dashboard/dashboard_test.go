package dashboard

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/launix-de/rkv/internal/store"
)

type fakeSampler struct{}

func (fakeSampler) ConnectedClients() int64  { return 4 }
func (fakeSampler) ConnectedReplicas() int   { return 1 }
func (fakeSampler) ReplicationOffset() int64 { return 42 }

func TestHubBroadcastsStatsToConnectedClient(t *testing.T) {
	db := store.NewDb()
	hub := NewHub(db, fakeSampler{}, 10*time.Millisecond)
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var stats Stats
	require.NoError(t, json.Unmarshal(msg, &stats))
	require.Equal(t, int64(4), stats.ConnectedClients)
	require.Equal(t, 1, stats.ConnectedReplicas)
	require.Equal(t, int64(42), stats.ReplicationOffset)
}
