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
aviary-discover lists Aviary servers advertised on the local network
over mDNS.

Usage:

	aviary-discover                 # 3 second scan
	aviary-discover -timeout 10s    # longer scan
	aviary-discover -json           # JSON array
	aviary-discover -quiet          # comma-separated addresses only
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"aviary/internal/banner"
	"aviary/internal/discovery"
	"aviary/pkg/cli"
)

func main() {
	timeout := flag.Duration("timeout", discovery.DefaultTimeout, "How long to listen for answers")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	quiet := flag.Bool("quiet", false, "Only output server addresses (for scripting)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(quiet, "q", false, "Only output server addresses (for scripting)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("aviary-discover version %s\n%s\n", banner.Version, banner.Copyright)
		return
	}

	// The mDNS library logs non-fatal IPv6 errors through the standard logger.
	stdlog.SetOutput(io.Discard)

	human := !*quiet && !*jsonOutput
	if human {
		banner.PrintTo(os.Stdout, "Aviary Discover")
		cli.PrintInfo("Scanning for Aviary servers (timeout: %s)...", *timeout)
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	servers, err := discovery.Discover(ctx, *timeout)
	if err != nil {
		if !*quiet {
			cli.PrintError("Discovery failed: %v", err)
		}
		os.Exit(1)
	}

	switch {
	case *jsonOutput:
		if err := outputJSON(os.Stdout, servers); err != nil {
			cli.PrintError("%v", err)
			os.Exit(1)
		}
	case *quiet:
		outputQuiet(os.Stdout, servers)
	case len(servers) == 0:
		printTroubleshooting()
	default:
		outputHuman(os.Stdout, servers)
	}
}

func printUsage() {
	fmt.Println()
	fmt.Printf("%s - find Aviary servers on the local network\n", cli.Highlight("aviary-discover v"+banner.Version))
	fmt.Println(cli.Separator(60))
	fmt.Println()
	fmt.Println(cli.Highlight("USAGE:"))
	fmt.Println("  aviary-discover [options]")
	fmt.Println()
	fmt.Println(cli.Highlight("OPTIONS:"))
	fmt.Printf("  -timeout <dur>   Scan duration (default: %s)\n", discovery.DefaultTimeout)
	fmt.Println("  -json            Output results as JSON")
	fmt.Println("  -quiet, -q       Only output addresses")
	fmt.Println("  -version         Show version information")
	fmt.Println()
	fmt.Println(cli.Highlight("NETWORK REQUIREMENTS:"))
	fmt.Println("  mDNS uses UDP port 5353 (multicast); servers must share the network segment")
	fmt.Println()
}

func printTroubleshooting() {
	cli.PrintWarning("No Aviary servers found on the network.")
	fmt.Println()
	fmt.Println("  " + cli.Highlight("Common issues:"))
	fmt.Println("    " + cli.Warning("•") + " the server was started without -discovery")
	fmt.Println("    " + cli.Warning("•") + " UDP port 5353 is blocked by a firewall")
	fmt.Println("    " + cli.Warning("•") + " the server is on a different network segment")
	fmt.Println()
	fmt.Println("  " + cli.Dimmed("Try: aviary-discover -timeout 10s"))
	fmt.Println()
}

func outputJSON(w io.Writer, servers []*discovery.Server) error {
	data, err := json.MarshalIndent(servers, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputQuiet(w io.Writer, servers []*discovery.Server) {
	addrs := make([]string, len(servers))
	for i, s := range servers {
		addrs[i] = s.Addr
	}
	fmt.Fprintln(w, strings.Join(addrs, ","))
}

func outputHuman(w io.Writer, servers []*discovery.Server) {
	fmt.Fprintf(w, "%s Found %d Aviary server(s)\n\n", cli.SuccessIcon(), len(servers))
	for i, s := range servers {
		fmt.Fprintf(w, "  %s %s\n", cli.Dimmed(fmt.Sprintf("[%d]", i+1)), cli.Info(s.Instance))
		fmt.Fprintf(w, "      %s %s\n", cli.Dimmed("Address:"), cli.Success(s.Addr))
		if s.Backend != "" {
			fmt.Fprintf(w, "      %s %s\n", cli.Dimmed("Backend:"), s.Backend)
		}
		if s.Workers > 0 {
			fmt.Fprintf(w, "      %s %d\n", cli.Dimmed("Workers:"), s.Workers)
		}
		if s.Version != "" {
			fmt.Fprintf(w, "      %s %s\n", cli.Dimmed("Version:"), s.Version)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "  "+cli.Dimmed("Connect with: aviary-cli -host <ip> -server-port <port> -listbirds"))
}
