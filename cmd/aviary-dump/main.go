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
Package main is the Aviary dump utility.

It reads the stored snapshot through any persistence backend and either
exports it as JSON, copies it into another backend, or imports a JSON
export back into storage. Backend locations come from the same config
file and environment variables as the server.

Usage:

	aviary-dump [options]

Options:

	-config <path>     Configuration file
	-data-dir <path>   Data directory (overrides config)
	-from <backend>    Backend to read (default: configured backend)
	-to <backend>      Copy into this backend instead of exporting
	-o <file>          Export file (default: stdout)
	-z                 Gzip the export
	-import <file>     Import a JSON export (.gz is detected) into -from
	-v                 Verbose output
	-version           Show version information

Examples:

	# Export the XML snapshot as JSON
	aviary-dump -data-dir ./data -o birds.json

	# Move from XML files to SQLite
	aviary-dump -data-dir ./data -from xml -to sqlite

	# Restore an export into LevelDB
	aviary-dump -data-dir ./data -from leveldb -import birds.json.gz

Run it while the server is stopped; a running server overwrites the
stored snapshot on its next save.
*/
package main

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"aviary/internal/banner"
	"aviary/internal/config"
	"aviary/internal/errors"
	"aviary/internal/model"
	"aviary/internal/persistence"
	"aviary/internal/store"
	"aviary/pkg/cli"
)

var (
	configFile  = flag.String("config", "", "Configuration file")
	dataDir     = flag.String("data-dir", "", "Data directory (overrides config)")
	from        = flag.String("from", "", "Backend to read (default: configured backend)")
	to          = flag.String("to", "", "Copy into this backend instead of exporting")
	outputFile  = flag.String("o", "", "Export file (default: stdout)")
	compress    = flag.Bool("z", false, "Gzip the export")
	importFile  = flag.String("import", "", "Import a JSON export into -from")
	verbose     = flag.Bool("v", false, "Verbose output")
	showVersion = flag.Bool("version", false, "Show version information")
)

// dumpFile is the JSON export format.
type dumpFile struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Backend    string        `json:"backend"`
	Birds      []*model.Bird `json:"birds"`
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("aviary-dump version %s\n", banner.Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	start := time.Now()

	switch {
	case *importFile != "":
		err = runImport(ctx, cfg)
	case *to != "":
		err = runCopy(ctx, cfg)
	default:
		err = runExport(ctx, cfg)
	}
	if err != nil {
		cli.PrintError("%s", errors.FormatError(err))
		os.Exit(1)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "   %s %v\n", cli.Dimmed("Duration:"), time.Since(start).Round(time.Millisecond))
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "%s - export, copy and import Aviary snapshots\n\n", cli.Highlight("aviary-dump v"+banner.Version))
	fmt.Fprintf(os.Stderr, "   %s aviary-dump [options]\n\n", cli.Dimmed("Usage:"))
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "   %s %s\n", cli.Dimmed("Backends:"), strings.Join(backends, ", "))
}

var backends = []string{config.BackendXML, config.BackendSQLite, config.BackendPostgres, config.BackendLevelDB, config.BackendS3}

func loadConfig() (*config.Config, error) {
	mgr := config.NewManager()
	if *configFile != "" {
		if err := mgr.LoadFromFile(*configFile); err != nil {
			return nil, err
		}
		mgr.LoadFromEnv()
	} else if err := mgr.Load(); err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *from != "" {
		cfg.Storage.Backend = strings.ToLower(*from)
	}
	return cfg, nil
}

// withBackend returns a copy of cfg that selects backend.
func withBackend(cfg *config.Config, backend string) *config.Config {
	c := *cfg
	c.Storage.Backend = strings.ToLower(backend)
	return &c
}

func runExport(ctx context.Context, cfg *config.Config) error {
	gw, err := persistence.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	var out io.Writer = os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			return errors.IOFailure("create "+*outputFile, err)
		}
		defer f.Close()
		out = f
	}

	n, err := export(ctx, gw, out, *compress)
	if err != nil {
		return err
	}
	if *outputFile != "" {
		fmt.Fprintf(os.Stderr, "%s Export completed successfully\n", cli.SuccessIcon())
		fmt.Fprintf(os.Stderr, "   %s %d birds from %s\n", cli.Dimmed("Exported:"), n, gw.Name())
		fmt.Fprintf(os.Stderr, "   %s %s\n", cli.Dimmed("Output:"), *outputFile)
	}
	return nil
}

func runCopy(ctx context.Context, cfg *config.Config) error {
	src, err := persistence.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := persistence.Open(ctx, withBackend(cfg, *to))
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := copyBackend(ctx, src, dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s Copied %d birds from %s to %s\n", cli.SuccessIcon(), n, src.Name(), dst.Name())
	return nil
}

func runImport(ctx context.Context, cfg *config.Config) error {
	f, err := os.Open(*importFile)
	if err != nil {
		return errors.IOFailure("open "+*importFile, err)
	}
	defer f.Close()

	gw, err := persistence.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	n, err := importDump(ctx, gw, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s Import completed successfully\n", cli.SuccessIcon())
	fmt.Fprintf(os.Stderr, "   %s %d birds into %s\n", cli.Dimmed("Imported:"), n, gw.Name())
	return nil
}

// export writes the stored table as JSON and returns the bird count.
func export(ctx context.Context, gw persistence.Gateway, w io.Writer, gz bool) (int, error) {
	birds, err := gw.Load(ctx)
	if err != nil {
		return 0, err
	}

	var zw *gzip.Writer
	if gz {
		zw = gzip.NewWriter(w)
		w = zw
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err = enc.Encode(dumpFile{
		Version:    banner.Version,
		ExportedAt: time.Now().UTC(),
		Backend:    gw.Name(),
		Birds:      birds,
	})
	if err == nil && zw != nil {
		err = zw.Close()
	}
	if err != nil {
		return 0, errors.IOFailure("write export", err)
	}
	return len(birds), nil
}

// copyBackend replaces dst's snapshot with src's.
func copyBackend(ctx context.Context, src, dst persistence.Gateway) (int, error) {
	birds, err := src.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := dst.Save(ctx, birds); err != nil {
		return 0, err
	}
	return len(birds), nil
}

// importDump reads a JSON export, gzipped or not, and replaces gw's
// snapshot with it. Records the server would reject are dropped.
func importDump(ctx context.Context, gw persistence.Gateway, r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return 0, errors.IOFailure("read gzip header", err)
		}
		defer zr.Close()
		r = zr
	} else {
		r = br
	}

	var dump dumpFile
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return 0, errors.NewInvalidInput("malformed export file").WithCause(err)
	}

	st := store.New()
	n := st.Load(dump.Birds)
	if dropped := len(dump.Birds) - n; dropped > 0 {
		cli.PrintWarning("Skipped %d invalid or duplicate birds", dropped)
	}
	if err := gw.Save(ctx, st.Snapshot()); err != nil {
		return 0, err
	}
	return n, nil
}
