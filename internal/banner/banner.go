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
Package banner prints the startup banner for the Aviary server.

The ASCII logo is embedded from banner.txt at compile time. The server
banner is followed by a compact view of the effective configuration and
a marker where log output begins.

Colors are ANSI escape sequences and follow pkg/cli's color detection.
*/
package banner

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"aviary/internal/config"
	"aviary/pkg/cli"
)

//go:embed banner.txt
var banner string

// Version information for Aviary.
const (
	Version   = "1.0.0"
	Copyright = "(c)2026 Firefly Software Solutions Inc"
	License   = "Licensed under Apache 2.0"
)

const lineWidth = 78

// Print displays the short banner used by the client tools.
func Print() {
	PrintTo(os.Stdout, "Aviary")
}

// PrintTo writes the logo and a title line to w.
func PrintTo(w io.Writer, title string) {
	fmt.Fprintln(w, color(cli.Green, banner))
	fmt.Fprintln(w, color(cli.Green+cli.Bold, fmt.Sprintf(":: %s ::", title)+strings.Repeat(" ", padTo(len(title)))+"(v"+Version+")"))
	fmt.Fprintln(w, cli.Dimmed(Copyright+" - "+License))
	fmt.Fprintln(w)
}

// PrintServerWithConfig prints the server banner and configuration to stdout.
func PrintServerWithConfig(cfg *config.Config) {
	PrintServerWithConfigTo(os.Stdout, cfg)
}

// PrintServerWithConfigTo writes the server banner and configuration to w.
func PrintServerWithConfigTo(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w)
	PrintTo(w, "Aviary Server")

	fmt.Fprint(w, "  "+cli.Dimmed("Config: "))
	if cfg.ConfigFile != "" {
		fmt.Fprintln(w, cli.Warning(cfg.ConfigFile))
	} else {
		fmt.Fprintln(w, cli.Dimmed("defaults + environment"))
	}
	fmt.Fprintln(w)

	printSectionHeader(w, "Server")
	printRow3(w,
		fmtKV("Port", cli.Success(fmt.Sprintf("%d", cfg.Port))),
		fmtKV("Workers", fmt.Sprintf("%d", cfg.Workers)),
		fmtKV("Log", cfg.LogLevel))
	maxConns := "unlimited"
	if cfg.MaxConnections > 0 {
		maxConns = fmt.Sprintf("%d", cfg.MaxConnections)
	}
	connTimeout := "none"
	if cfg.ConnTimeout > 0 {
		connTimeout = cfg.ConnTimeout.String()
	}
	printRow3(w, fmtKV("Max conns", maxConns), fmtKV("Conn timeout", connTimeout), "")
	fmt.Fprintln(w)

	printSectionHeader(w, "Storage")
	printRow2(w, fmtKV("Backend", cli.Success(cfg.Storage.Backend)), fmtKV("Location", storageLocation(cfg)))
	snapshots := "shutdown only"
	if cfg.SnapshotInterval > 0 {
		snapshots = "every " + cfg.SnapshotInterval.String()
	}
	printRow2(w, fmtKV("Snapshots", snapshots), "")
	fmt.Fprintln(w)

	printSectionHeader(w, "Endpoints")
	printRow3(w,
		fmtEnabled("Metrics", cfg.Metrics.Enabled, cfg.Metrics.Addr),
		fmtEnabled("Health", cfg.Health.Enabled, cfg.Health.Addr),
		fmtEnabled("mDNS", cfg.Discovery.Enabled, ""))
	printRow3(w,
		fmtKV("CPUs", fmt.Sprintf("%d", runtime.NumCPU())),
		fmtKV("GOMAXPROCS", fmt.Sprintf("%d", runtime.GOMAXPROCS(0))),
		"")
	fmt.Fprintln(w)

	PrintLogSeparatorTo(w)
}

// PrintLogSeparatorTo prints the marker before log output starts.
func PrintLogSeparatorTo(w io.Writer) {
	text := " LOGS START HERE "
	padding := (lineWidth - len(text) - 4) / 2
	if padding < 0 {
		padding = 0
	}
	line := strings.Repeat("-", padding)
	fmt.Fprintf(w, "  %s%s%s\n\n", cli.Warning("vv"+line), cli.Highlight(text), cli.Warning(line+"vv"))
}

func storageLocation(cfg *config.Config) string {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return cfg.SQLitePath()
	case config.BackendLevelDB:
		return cfg.LevelDBPath()
	case config.BackendPostgres:
		return "postgres (dsn hidden)"
	case config.BackendS3:
		return "s3://" + cfg.Storage.S3.Bucket + "/" + cfg.Storage.S3.Prefix
	default:
		return cfg.DataDir
	}
}

func color(code, s string) string {
	if !cli.ColorsEnabled() {
		return s
	}
	return code + s + cli.Reset
}

func padTo(n int) int {
	if p := 32 - n; p > 1 {
		return p
	}
	return 1
}

func printSectionHeader(w io.Writer, title string) {
	rightPad := lineWidth - 2 - len(title) - 4
	if rightPad < 0 {
		rightPad = 0
	}
	fmt.Fprintf(w, "  %s[ %s ]%s\n", cli.Dimmed("--"), cli.Info(title), cli.Dimmed(strings.Repeat("-", rightPad)))
}

func fmtKV(key, value string) string {
	return fmt.Sprintf("%s %s", cli.Dimmed(key+":"), value)
}

func fmtEnabled(name string, enabled bool, addr string) string {
	if !enabled {
		return cli.Dimmed(name + " off")
	}
	if addr != "" {
		return cli.Success(name) + " " + addr
	}
	return cli.Success(name)
}

func printRow3(w io.Writer, col1, col2, col3 string) {
	fmt.Fprintf(w, "  %-32s %-26s %s\n", col1, col2, col3)
}

func printRow2(w io.Writer, col1, col2 string) {
	fmt.Fprintf(w, "  %-40s %s\n", col1, col2)
}
