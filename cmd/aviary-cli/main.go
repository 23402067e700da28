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
Package main is the Aviary command-line client.

Each invocation performs exactly one request:

	aviary-cli -addbird          prompt for name, color, weight, height
	aviary-cli -addsighting      prompt for name, location, date
	aviary-cli -listbirds        print all birds
	aviary-cli -listsightings    prompt for a name pattern and a date window
	aviary-cli -remove           prompt for a name (empty input does nothing)
	aviary-cli -quit             ask the server to shut down

Dates are entered as DD/MM/YY HH:MM in local time. The server is found
at -host:-server-port, or on the local network with -discover.

The process exits 0 when the server accepted the request and 1 otherwise.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"aviary/internal/banner"
	"aviary/internal/client"
	"aviary/internal/config"
	"aviary/internal/discovery"
	"aviary/pkg/cli"
)

type action string

const (
	actAddBird       action = "addbird"
	actAddSighting   action = "addsighting"
	actListBirds     action = "listbirds"
	actListSightings action = "listsightings"
	actRemove        action = "remove"
	actQuit          action = "quit"
)

var allActions = []action{actAddBird, actAddSighting, actListBirds, actListSightings, actRemove, actQuit}

func printUsage() {
	fmt.Println()
	fmt.Printf("%s - Aviary command-line client\n", cli.Highlight("aviary-cli v"+banner.Version))
	fmt.Println(cli.Separator(60))
	fmt.Println()
	fmt.Println(cli.Highlight("USAGE:"))
	fmt.Println("  aviary-cli [-server-port <port>] [-host <host>] [-discover] <request>")
	fmt.Println()
	fmt.Println(cli.Highlight("REQUESTS (exactly one):"))
	fmt.Println("  -addbird          Add a bird")
	fmt.Println("  -addsighting      Add a sighting of an existing bird")
	fmt.Println("  -listbirds        List all birds")
	fmt.Println("  -listsightings    List sightings by name pattern and date window")
	fmt.Println("  -remove           Remove a bird and its sightings")
	fmt.Println("  -quit             Shut the server down")
	fmt.Println()
	fmt.Println(cli.Highlight("OPTIONS:"))
	fmt.Printf("  -server-port <port>   Server port (default: %d)\n", config.DefaultPort)
	fmt.Println("  -host <host>          Server host (default: localhost)")
	fmt.Println("  -discover             Find the server over mDNS instead of -host/-server-port")
	fmt.Printf("  -timeout <dur>        Request timeout (default: %s)\n", client.DefaultTimeout)
	fmt.Println()
}

func main() {
	os.Exit(run())
}

func run() int {
	port := flag.Int("server-port", config.DefaultPort, "Server port")
	host := flag.String("host", "localhost", "Server host")
	discover := flag.Bool("discover", false, "Find the server over mDNS")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "Request timeout")
	selected := make(map[action]*bool, len(allActions))
	for _, a := range allActions {
		selected[a] = flag.Bool(string(a), false, "Request: "+string(a))
	}
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() > 0 {
		cli.PrintWarning("Ignoring unexpected arguments: %v", flag.Args())
	}

	act, err := chooseAction(selected)
	if err != nil {
		err.Print()
		return 1
	}

	if *port < 1 || *port > 65535 {
		cli.PrintWarning("-server-port should be between 1 and 65535, using default %d", config.DefaultPort)
		*port = config.DefaultPort
	}
	addr := net.JoinHostPort(*host, strconv.Itoa(*port))
	if *discover {
		found, err := discoverServer(*timeout)
		if err != nil {
			err.Print()
			return 1
		}
		addr = found
	}

	var p prompter
	if cli.IsInteractive() {
		rp, err := newReadlinePrompter()
		if err != nil {
			cli.PrintError("Cannot open terminal: %v", err)
			return 1
		}
		p = rp
	} else {
		p = newLinePrompter(os.Stdin, os.Stdout)
	}
	defer p.Close()

	c := client.New(addr, *timeout)
	return execute(c, act, p, os.Stdout)
}

func chooseAction(selected map[action]*bool) (action, *cli.CLIError) {
	var chosen []action
	for _, a := range allActions {
		if *selected[a] {
			chosen = append(chosen, a)
		}
	}
	switch len(chosen) {
	case 0:
		return "", cli.NewCLIError(cli.ErrMissingArgument, "no request given").
			WithHint("use one of -addbird -addsighting -listbirds -listsightings -remove -quit")
	case 1:
		return chosen[0], nil
	default:
		return "", cli.NewCLIError(cli.ErrInvalidCommand, fmt.Sprintf("only one request allowed, got %v", chosen))
	}
}

func discoverServer(timeout time.Duration) (string, *cli.CLIError) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	cli.PrintInfo("Looking for Aviary servers on the local network...")
	servers, err := discovery.Discover(ctx, timeout)
	if err != nil {
		return "", cli.NewCLIError(cli.ErrConnectionFailed, err.Error())
	}
	if len(servers) == 0 {
		return "", cli.NewCLIError(cli.ErrConnectionFailed, "no server found").
			WithHint("start the server with -discovery, or use -host and -server-port")
	}
	if len(servers) > 1 {
		cli.PrintWarning("%d servers found, using %s", len(servers), servers[0].Instance)
	}
	cli.PrintInfo("Using %s at %s", servers[0].Instance, servers[0].Addr)
	return servers[0].Addr, nil
}

// execute runs one request and returns the exit code.
func execute(c *client.Client, act action, p prompter, out io.Writer) int {
	var (
		msg string
		err error
	)

	switch act {
	case actAddBird:
		msg, err = addBird(c, p)
	case actAddSighting:
		msg, err = addSighting(c, p)
	case actListBirds:
		err = listBirds(c, out)
	case actListSightings:
		err = listSightings(c, p, out)
	case actRemove:
		msg, err = remove(c, p)
	case actQuit:
		msg, err = c.Quit()
	}

	if err != nil {
		return report(out, err)
	}
	if msg != "" {
		fmt.Fprintln(out, msg)
	}
	return 0
}
