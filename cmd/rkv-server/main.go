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

// rkv-server is the RESP3 key/value server's entry point: load
// configuration, wire logging, bootstrap persistence/replication, and
// accept connections until told to stop.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dc0d/onexit"
	"go.uber.org/zap"

	"github.com/launix-de/rkv/internal/config"
	"github.com/launix-de/rkv/internal/logging"
	"github.com/launix-de/rkv/internal/server"
)

func main() {
	configDir := flag.String("config-dir", "./config", "directory containing default.toml/custom.toml")
	host := flag.String("host", "", "override server.host")
	port := flag.Int("port", 0, "override server.port")
	logLevel := flag.String("log-level", "", "override logging.level")
	replicaOf := flag.String("replicaof", "", "override replication.replicaof (host:port)")
	maxConnections := flag.Int("max-connections", 0, "override server.max_connections")
	flag.Parse()

	fmt.Print(`rkv  Copyright (C) 2026  rkv contributors
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	cfg, err := config.Load(*configDir, config.Flags{
		Host:           *host,
		Port:           *port,
		LogLevel:       *logLevel,
		ReplicaOf:      *replicaOf,
		MaxConnections: *maxConnections,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "rkv-server: loading configuration:", err)
		os.Exit(1)
	}

	cleanupLogging, err := logging.Install(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rkv-server: building logger:", err)
		os.Exit(1)
	}
	defer cleanupLogging()

	watcher, err := config.WatchDir(*configDir, config.Flags{
		Host: *host, Port: *port, LogLevel: *logLevel, ReplicaOf: *replicaOf, MaxConnections: *maxConnections,
	}, func(reloaded *config.Config) {
		zap.L().Info("config: reloaded", zap.String("level", reloaded.Logging.Level))
	})
	if err != nil {
		zap.L().Warn("rkv-server: config hot reload disabled", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	srv, err := server.New(cfg)
	if err != nil {
		zap.L().Fatal("rkv-server: bootstrap failed", zap.Error(err))
	}
	onexit.Register(func() { srv.Shutdown() })

	if err := srv.Listen(); err != nil {
		zap.L().Error("rkv-server: listener stopped", zap.Error(err))
		os.Exit(1)
	}
}
