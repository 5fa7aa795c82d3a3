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

// Package metrics exposes a Prometheus registry tracking the same
// operational counters the dashboard feed samples live, so an operator
// can choose scrape-based or push-based monitoring without two separate
// instrumentation sites.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every counter/gauge rkv instruments. Each field is
// already registered against its own prometheus.Registry at
// construction time, so handlers never touch the global default
// registry (keeping metrics isolated per test and per embedded caller).
type Registry struct {
	reg *prometheus.Registry

	CommandsTotal   *prometheus.CounterVec
	CommandErrors   *prometheus.CounterVec
	ConnectedClients prometheus.Gauge
	KeyspaceHits    prometheus.Counter
	KeyspaceMisses  prometheus.Counter
	ExpiredKeys     prometheus.Counter
	EvictedKeys     prometheus.Counter
	ReplicaCount    prometheus.Gauge
	ReplicationOffset prometheus.Gauge
	AofRewrites     prometheus.Counter
}

// New builds a fresh registry with every metric pre-registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rkv",
			Name:      "commands_total",
			Help:      "Total commands dispatched, labeled by command name.",
		}, []string{"command"}),
		CommandErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rkv",
			Name:      "command_errors_total",
			Help:      "Total commands that returned an error, labeled by command name.",
		}, []string{"command"}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rkv",
			Name:      "connected_clients",
			Help:      "Number of client connections currently open.",
		}),
		KeyspaceHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rkv",
			Name:      "keyspace_hits_total",
			Help:      "Number of successful key lookups.",
		}),
		KeyspaceMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rkv",
			Name:      "keyspace_misses_total",
			Help:      "Number of key lookups that found no key.",
		}),
		ExpiredKeys: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rkv",
			Name:      "expired_keys_total",
			Help:      "Number of keys that have expired.",
		}),
		EvictedKeys: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rkv",
			Name:      "evicted_keys_total",
			Help:      "Number of keys evicted due to a maxmemory policy.",
		}),
		ReplicaCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rkv",
			Name:      "connected_replicas",
			Help:      "Number of replicas currently attached to this node.",
		}),
		ReplicationOffset: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rkv",
			Name:      "replication_offset",
			Help:      "Master replication offset in bytes.",
		}),
		AofRewrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rkv",
			Name:      "aof_rewrites_total",
			Help:      "Number of AOF/snapshot rewrites triggered, manual or automatic.",
		}),
	}
}

// Handler returns the /metrics scrape endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
