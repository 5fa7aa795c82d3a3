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

// Package config loads rkv's startup configuration from TOML defaults,
// an optional override file, and the environment/flags layered on top,
// the same viper-based shape odin-ws-server-3's internal/config uses.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
)

// Config holds everything a freshly started (or hot-reloaded) rkv
// process needs.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Replication ReplicationConfig `mapstructure:"replication"`
	Acl         AclConfig         `mapstructure:"acl"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
}

// ServerConfig is the TCP/TLS listener surface.
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	MaxConnections int    `mapstructure:"max_connections"`
	TLSCertFile    string `mapstructure:"tls_cert_file"`
	TLSKeyFile     string `mapstructure:"tls_key_file"`
}

// PersistenceConfig covers C8: backend selection and the AOF policy.
type PersistenceConfig struct {
	Backend              string `mapstructure:"backend"` // "file", "s3", "ceph"
	Path                 string `mapstructure:"path"`
	MaxMemory            string `mapstructure:"maxmemory"`
	MaxMemoryPolicy      string `mapstructure:"maxmemory_policy"`
	AppendOnly           bool   `mapstructure:"appendonly"`
	Fsync                string `mapstructure:"fsync"` // "always", "everysec", "no"
	AutoAofRewriteMinSize string `mapstructure:"auto_aof_rewrite_min_size"`
	SnapshotCodec        string `mapstructure:"snapshot_codec"` // "none", "lz4", "xz"

	S3 S3Config   `mapstructure:"s3"`
	Ceph CephConfig `mapstructure:"ceph"`
}

// S3Config configures PersistenceConfig.Backend == "s3".
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// CephConfig configures PersistenceConfig.Backend == "ceph".
type CephConfig struct {
	UserName    string `mapstructure:"user_name"`
	ClusterName string `mapstructure:"cluster_name"`
	ConfFile    string `mapstructure:"conf_file"`
	Pool        string `mapstructure:"pool"`
	Prefix      string `mapstructure:"prefix"`
}

// ReplicationConfig covers C9.
type ReplicationConfig struct {
	ReplicaOf              string        `mapstructure:"replicaof"` // "host:port", empty for master
	MasterAuth             string        `mapstructure:"master_auth"`
	ReplTimeout            time.Duration `mapstructure:"repl_timeout"`
	ReplPingReplicaPeriod  time.Duration `mapstructure:"repl_ping_replica_period"`
	BacklogSize            string        `mapstructure:"backlog_size"`
}

// AclConfig seeds the default user.
type AclConfig struct {
	RequireAuth bool   `mapstructure:"require_auth"`
	Password    string `mapstructure:"password"`
}

// LoggingConfig controls zap logger construction (internal/logging).
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// DashboardConfig controls the websocket live-counters feed.
type DashboardConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Flags is the subset of Config overridable from the command line, per
// the CLI surface: --host, --port, --log-level, --replicaof,
// --max-connections.
type Flags struct {
	Host           string
	Port           int
	LogLevel       string
	ReplicaOf      string
	MaxConnections int
}

// Load reads default.toml from dir plus an optional custom.toml override
// in the same directory, environment variables prefixed RKV_, and
// flags, in increasing priority order — the same layering
// odin-ws-server-3's config.Load uses, generalized to rkv's own sections.
func Load(dir string, flags Flags) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("default")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading default.toml: %w", err)
		}
	}

	v.SetConfigName("custom")
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: merging custom.toml: %w", err)
		}
	}

	v.SetEnvPrefix("RKV")
	// rkv's config keys are dotted section paths (server.port); env vars
	// can't contain dots, so RKV_SERVER_PORT needs the "." -> "_" mapping
	// AutomaticEnv doesn't apply on its own.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyFlags(v, flags)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 6380)
	v.SetDefault("server.max_connections", 10000)

	v.SetDefault("persistence.backend", "file")
	v.SetDefault("persistence.path", "./data")
	v.SetDefault("persistence.maxmemory", "0")
	v.SetDefault("persistence.maxmemory_policy", "noeviction")
	v.SetDefault("persistence.appendonly", false)
	v.SetDefault("persistence.fsync", "everysec")
	v.SetDefault("persistence.auto_aof_rewrite_min_size", "64mb")
	v.SetDefault("persistence.snapshot_codec", "lz4")

	v.SetDefault("replication.repl_timeout", 60*time.Second)
	v.SetDefault("replication.repl_ping_replica_period", 10*time.Second)
	v.SetDefault("replication.backlog_size", "8mb")

	v.SetDefault("acl.require_auth", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9121")

	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.listen_addr", ":8070")
}

func applyFlags(v *viper.Viper, f Flags) {
	if f.Host != "" {
		v.Set("server.host", f.Host)
	}
	if f.Port != 0 {
		v.Set("server.port", f.Port)
	}
	if f.LogLevel != "" {
		v.Set("logging.level", f.LogLevel)
	}
	if f.ReplicaOf != "" {
		v.Set("replication.replicaof", f.ReplicaOf)
	}
	if f.MaxConnections != 0 {
		v.Set("server.max_connections", f.MaxConnections)
	}
}

// MaxMemoryBytes parses persistence.maxmemory ("0", "512mb", "2gb", ...)
// the way docker/go-units parses Docker's own --memory flag.
func (c *Config) MaxMemoryBytes() (int64, error) {
	return units.RAMInBytes(c.Persistence.MaxMemory)
}

// AutoAofRewriteMinSizeBytes parses persistence.auto_aof_rewrite_min_size.
func (c *Config) AutoAofRewriteMinSizeBytes() (int64, error) {
	return units.RAMInBytes(c.Persistence.AutoAofRewriteMinSize)
}

// BacklogSizeBytes parses replication.backlog_size.
func (c *Config) BacklogSizeBytes() (int64, error) {
	return units.RAMInBytes(c.Replication.BacklogSize)
}
