/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package main is the entry point for the Aviary record server.

Startup Flow:
=============

 1. Load configuration: defaults, config file, environment, then flags
 2. Validate and configure logging, print the banner
 3. Open the persistence gateway (creating the data directory) and load
    the table into the record store
 4. Bind the listening socket
 5. Start the snapshot scheduler, metrics, health and mDNS endpoints
 6. Serve until a Quit request or SIGINT/SIGTERM, then drain, save once
    and exit

Exit Codes:
===========

	0  clean shutdown
	1  startup failure (config, data directory, load, bind) or a failed
	   final save

SIGHUP reloads the configuration file and applies the new log level.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"aviary/internal/banner"
	"aviary/internal/config"
	"aviary/internal/discovery"
	"aviary/internal/errors"
	"aviary/internal/health"
	"aviary/internal/logging"
	"aviary/internal/metrics"
	"aviary/internal/persistence"
	"aviary/internal/server"
	"aviary/internal/snapshot"
	"aviary/internal/store"
	"aviary/pkg/cli"
)

// saveTimeout bounds every snapshot save, the final one included.
const saveTimeout = 2 * time.Minute

func printUsage() {
	fmt.Println()
	fmt.Printf("%s - Multi-client bird sighting record server\n", cli.Highlight("Aviary Server v"+banner.Version))
	fmt.Println(cli.Separator(60))
	fmt.Println()

	fmt.Println(cli.Highlight("USAGE:"))
	fmt.Println("  aviary [options]")
	fmt.Println()

	fmt.Println(cli.Highlight("OPTIONS:"))
	fmt.Printf("  -port <port>               TCP port for clients (default: %d)\n", config.DefaultPort)
	fmt.Printf("  -workers <n>               Worker pool size (default: %d)\n", config.DefaultWorkers)
	fmt.Printf("  -data-dir <path>           Directory for snapshots (default: %s)\n", config.GetDefaultDataDir())
	fmt.Printf("  -snapshot-interval <dur>   Time between snapshots, 0 = shutdown only (default: %s)\n", config.DefaultSnapshotInterval)
	fmt.Println("  -conn-timeout <dur>        Per-connection read/write deadline (default: none)")
	fmt.Println("  -max-connections <n>       Cap on open connections (default: unlimited)")
	fmt.Println("  -backend <name>            Storage backend: xml, sqlite, postgres, leveldb, s3 (default: xml)")
	fmt.Println("  -config <path>             Path to configuration file")
	fmt.Println("  -log-level <level>         Log level: debug, info, warn, error (default: info)")
	fmt.Println("  -log-json                  Enable JSON log output")
	fmt.Println("  -metrics-addr <addr>       Serve Prometheus metrics on addr")
	fmt.Println("  -health-addr <addr>        Serve health checks on addr")
	fmt.Println("  -discovery                 Advertise the server over mDNS")
	fmt.Println("  -version                   Show version information")
	fmt.Println("  -help                      Show this help message")
	fmt.Println()

	fmt.Println(cli.Highlight("ENVIRONMENT VARIABLES:"))
	fmt.Println("  AVIARY_PORT, AVIARY_WORKERS, AVIARY_DATA_DIR, AVIARY_SNAPSHOT_INTERVAL")
	fmt.Println("  AVIARY_STORAGE_BACKEND, AVIARY_SQLITE_PATH, AVIARY_POSTGRES_DSN, AVIARY_LEVELDB_PATH")
	fmt.Println("  AVIARY_S3_BUCKET, AVIARY_S3_REGION, AVIARY_S3_ENDPOINT, AVIARY_S3_PREFIX")
	fmt.Println("  AVIARY_METRICS_ADDR, AVIARY_HEALTH_ADDR, AVIARY_DISCOVERY")
	fmt.Println("  AVIARY_LOG_LEVEL, AVIARY_LOG_JSON, AVIARY_CONFIG_FILE")
	fmt.Println()

	fmt.Println(cli.Highlight("EXAMPLES:"))
	fmt.Println()
	fmt.Println("  " + cli.Dimmed("# XML snapshots in ./data every 10 minutes"))
	fmt.Println("  aviary -data-dir ./data -snapshot-interval 10m")
	fmt.Println()
	fmt.Println("  " + cli.Dimmed("# SQLite backend with metrics"))
	fmt.Println("  aviary -backend sqlite -metrics-addr :9094")
	fmt.Println()
	fmt.Println("  " + cli.Dimmed("# Debug logging in JSON"))
	fmt.Println("  aviary -log-level debug -log-json")
	fmt.Println()
}

func main() {
	os.Exit(run())
}

func run() int {
	cfgMgr := config.Global()
	if err := cfgMgr.Load(); err != nil {
		cli.PrintWarning("%v", err)
	}
	cfg := cfgMgr.Get()

	port := flag.String("port", strconv.Itoa(cfg.Port), "TCP port for client connections")
	workers := flag.Int("workers", cfg.Workers, "Worker pool size")
	dataDir := flag.String("data-dir", cfg.DataDir, "Directory for snapshot files")
	snapshotInterval := flag.Duration("snapshot-interval", cfg.SnapshotInterval, "Time between snapshots (0 = shutdown only)")
	connTimeout := flag.Duration("conn-timeout", cfg.ConnTimeout, "Per-connection deadline (0 = none)")
	maxConns := flag.Int("max-connections", cfg.MaxConnections, "Cap on open connections (0 = unlimited)")
	backend := flag.String("backend", cfg.Storage.Backend, "Storage backend")
	configFile := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", cfg.LogJSON, "Enable JSON log output")
	metricsAddr := flag.String("metrics-addr", cfg.Metrics.Addr, "Prometheus metrics address")
	healthAddr := flag.String("health-addr", cfg.Health.Addr, "Health check address")
	advertise := flag.Bool("discovery", cfg.Discovery.Enabled, "Advertise over mDNS")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help message")

	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("aviary version %s\n", banner.Version)
		return 0
	}
	if *showHelp {
		printUsage()
		return 0
	}

	if *configFile != "" {
		if err := cfgMgr.LoadFromFile(*configFile); err != nil {
			cli.PrintError("Error loading config file: %v", err)
			return 1
		}
		// Environment still wins over the file.
		cfgMgr.LoadFromEnv()
		cfg = cfgMgr.Get()
	}

	// Only explicitly set flags override file and environment.
	var badFlag error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			p, err := strconv.Atoi(*port)
			if err != nil {
				badFlag = fmt.Errorf("invalid -port %q", *port)
				return
			}
			cfg.Port = p
		case "workers":
			cfg.Workers = *workers
		case "data-dir":
			cfg.DataDir = *dataDir
		case "snapshot-interval":
			cfg.SnapshotInterval = *snapshotInterval
		case "conn-timeout":
			cfg.ConnTimeout = *connTimeout
		case "max-connections":
			cfg.MaxConnections = *maxConns
		case "backend":
			cfg.Storage.Backend = *backend
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-json":
			cfg.LogJSON = *logJSON
		case "metrics-addr":
			cfg.Metrics.Enabled = true
			cfg.Metrics.Addr = *metricsAddr
		case "health-addr":
			cfg.Health.Enabled = true
			cfg.Health.Addr = *healthAddr
		case "discovery":
			cfg.Discovery.Enabled = *advertise
		}
	})
	if badFlag != nil {
		cli.PrintError("%v", badFlag)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		cli.PrintError("%s", errors.FormatError(errors.ConfigInvalid(err)))
		return 1
	}
	cfgMgr.Set(cfg)

	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSONMode(cfg.LogJSON)
	log := logging.NewLogger("main")

	banner.PrintServerWithConfig(cfg)

	if cfg.ConfigFile != "" {
		log.Info("Configuration loaded", "file", cfg.ConfigFile)
	}
	log.Info("Aviary server starting",
		"version", banner.Version,
		"port", cfg.Port,
		"workers", cfg.Workers,
		"backend", cfg.Storage.Backend,
		"data_dir", cfg.DataDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := persistence.Open(ctx, cfg)
	if err != nil {
		log.Error("Failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		cli.PrintError("%s", errors.FormatError(err))
		return 1
	}
	defer func() {
		if err := gw.Close(); err != nil {
			log.Warn("Error closing storage", "error", err)
		}
	}()

	birds, err := gw.Load(ctx)
	if err != nil {
		// Serving an empty table here would overwrite the stored one at
		// the next snapshot.
		log.Error("Failed to load records", "backend", gw.Name(), "error", err)
		cli.PrintError("%s", errors.FormatError(err))
		return 1
	}
	st := store.New()
	loaded := st.Load(birds)
	log.Info("Records loaded", "backend", gw.Name(), "birds", loaded)

	m := metrics.New()
	m.TrackBirds(st.Len)

	sched := snapshot.New(st, gw, snapshot.Config{
		Interval:    cfg.SnapshotInterval,
		SaveTimeout: saveTimeout,
		Observer:    m.RecordSnapshot,
	})

	opts := server.OptionsFromConfig(cfg)
	srv := server.New(st, sched, opts)
	srv.SetMetrics(m)

	if err := srv.Listen(); err != nil {
		log.Error("Failed to bind", "addr", opts.Addr, "error", err)
		cli.PrintError("%s", errors.FormatError(err))
		return 1
	}
	sched.Start()

	metricsSrv := metrics.NewServer(&cfg.Metrics, m)
	if err := metricsSrv.Start(); err != nil {
		log.Warn("Metrics server not started", "error", err)
	}

	checker := health.NewChecker(banner.Version)
	checker.RegisterCheck("server", health.ServerCheck(func() string { return srv.State().String() }))
	checker.RegisterCheck("snapshot", health.SnapshotCheck(sched.LastSave, sched.LastFailed))
	if p, ok := gw.(persistence.Pinger); ok {
		checker.RegisterCheck("storage", health.StorageCheck(p.Ping))
	}
	healthSrv := health.NewServer(&cfg.Health, checker)
	if err := healthSrv.Start(); err != nil {
		log.Warn("Health server not started", "error", err)
	}

	var adv *discovery.Advertiser
	if cfg.Discovery.Enabled {
		adv = discovery.NewAdvertiser(discovery.Config{
			Instance: cfg.Discovery.Instance,
			Port:     boundPort(srv.Addr(), cfg.Port),
			Version:  banner.Version,
			Backend:  gw.Name(),
			Workers:  opts.Workers,
		})
		if err := adv.Start(); err != nil {
			log.Warn("mDNS advertisement failed, continuing without it", "error", err)
			adv = nil
		}
	}

	cfgMgr.OnReload(func(c *config.Config) {
		logging.SetGlobalLevel(logging.ParseLevel(c.LogLevel))
		log.Info("Configuration reloaded", "log_level", c.LogLevel)
	})
	go watchReload(ctx, cfgMgr, log)

	fmt.Println()
	cli.PrintSuccess("Aviary server is ready!")
	fmt.Println()
	cli.KeyValue("Address", fmt.Sprintf("localhost:%d", boundPort(srv.Addr(), cfg.Port)), 16)
	cli.KeyValue("Backend", gw.Name(), 16)
	cli.KeyValue("Records", strconv.Itoa(loaded), 16)
	if cfg.ConfigFile != "" {
		cli.KeyValue("Config File", cfg.ConfigFile, 16)
	}
	fmt.Println()
	fmt.Println(cli.Dimmed("Send a quit request or press Ctrl+C to stop the server"))
	fmt.Println()

	runErr := srv.Run(ctx)

	if adv != nil {
		if err := adv.Stop(); err != nil {
			log.Warn("Error stopping mDNS advertisement", "error", err)
		}
	}
	if err := healthSrv.Stop(); err != nil {
		log.Warn("Error stopping health server", "error", err)
	}
	if err := metricsSrv.Stop(); err != nil {
		log.Warn("Error stopping metrics server", "error", err)
	}

	if runErr != nil {
		log.Error("Shutdown finished with errors", "error", runErr)
		cli.PrintError("%s", errors.FormatError(runErr))
		return 1
	}
	log.Info("Aviary server stopped", "saves", sched.SaveCount(), "failed_saves", sched.FailureCount())
	cli.PrintSuccess("Aviary server stopped gracefully")
	return 0
}

func watchReload(ctx context.Context, cfgMgr *config.Manager, log *logging.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := cfgMgr.Reload(); err != nil {
				log.Warn("Configuration reload failed", "error", err)
			}
		}
	}
}

func boundPort(addr net.Addr, fallback int) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return fallback
}
