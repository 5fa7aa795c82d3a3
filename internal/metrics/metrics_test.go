package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := New()
	reg.CommandsTotal.WithLabelValues("GET").Inc()
	reg.ConnectedClients.Set(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "rkv_commands_total")
	assert.Contains(t, body, `command="GET"`)
	assert.Contains(t, body, "rkv_connected_clients 3")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.KeyspaceHits.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	assert.False(t, strings.Contains(w.Body.String(), "rkv_keyspace_hits_total 1"))
}
