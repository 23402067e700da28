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
Package discovery advertises Aviary servers on the local network and
finds them again.

SERVICE TYPE:
=============
Servers advertise themselves as _aviary._tcp.local.

Each server publishes:
  - Instance name: <instance>._aviary._tcp.local.
  - Port: the record protocol port
  - TXT records: version, backend, workers

USAGE:
======

	adv := discovery.NewAdvertiser(discovery.Config{Instance: "lab-1", Port: 3000})
	adv.Start()
	defer adv.Stop()

	servers, err := discovery.Discover(ctx, 3*time.Second)
*/
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"aviary/internal/logging"
)

const (
	// ServiceType is the mDNS service type for Aviary.
	ServiceType = "_aviary._tcp"

	// DefaultTimeout is the default lookup duration.
	DefaultTimeout = 3 * time.Second
)

var log = logging.NewLogger("discovery")

// Server is an Aviary server found on the network.
type Server struct {
	Instance     string    `json:"instance"`
	Addr         string    `json:"addr"`
	Version      string    `json:"version,omitempty"`
	Backend      string    `json:"backend,omitempty"`
	Workers      int       `json:"workers,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Config describes what an Advertiser publishes.
type Config struct {
	Instance string // defaults to the hostname
	Port     int
	Version  string
	Backend  string
	Workers  int
}

// Advertiser publishes this server over mDNS.
type Advertiser struct {
	cfg    Config
	mu     sync.Mutex
	server *mdns.Server
}

// NewAdvertiser creates an advertiser. Nothing is sent until Start.
func NewAdvertiser(cfg Config) *Advertiser {
	if cfg.Instance == "" {
		cfg.Instance = defaultInstance()
	}
	return &Advertiser{cfg: cfg}
}

// Instance returns the advertised instance name.
func (a *Advertiser) Instance() string {
	return a.cfg.Instance
}

// Start begins answering mDNS queries.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}
	if a.cfg.Port < 1 || a.cfg.Port > 65535 {
		return fmt.Errorf("invalid advertised port: %d", a.cfg.Port)
	}

	service, err := mdns.NewMDNSService(
		a.cfg.Instance,
		ServiceType,
		"", // .local
		"", // host name from the OS
		a.cfg.Port,
		localIPs(),
		txtRecords(a.cfg),
	)
	if err != nil {
		return fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mDNS server: %w", err)
	}
	a.server = server

	log.Info("Advertising server", "instance", a.cfg.Instance, "port", a.cfg.Port, "service", ServiceType)
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return nil
	}
	err := a.server.Shutdown()
	a.server = nil
	log.Info("Advertisement stopped", "instance", a.cfg.Instance)
	return err
}

// Running reports whether the advertisement is active.
func (a *Advertiser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// Discover queries the network for timeout and returns the servers that
// answered, sorted by instance name. A cancelled context returns early.
func Discover(ctx context.Context, timeout time.Duration) ([]*Server, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	collected := make(chan []*Server, 1)

	go func() {
		seen := make(map[string]*Server)
		for entry := range entries {
			if srv := parseEntry(entry); srv != nil {
				seen[srv.Instance] = srv
			}
		}
		out := make([]*Server, 0, len(seen))
		for _, srv := range seen {
			out = append(out, srv)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
		collected <- out
	}()

	queryErr := make(chan error, 1)
	go func() {
		params := mdns.DefaultParams(ServiceType)
		params.Timeout = timeout
		params.Entries = entries
		params.WantUnicastResponse = true
		params.DisableIPv6 = true
		err := mdns.Query(params)
		close(entries)
		queryErr <- err
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-queryErr:
		servers := <-collected
		if err != nil {
			return nil, fmt.Errorf("mDNS query failed: %w", err)
		}
		return servers, nil
	}
}

func txtRecords(cfg Config) []string {
	return []string{
		"version=" + cfg.Version,
		"backend=" + cfg.Backend,
		"workers=" + strconv.Itoa(cfg.Workers),
	}
}

// parseEntry converts an answer into a Server. Entries for other services
// or without an address are dropped.
func parseEntry(entry *mdns.ServiceEntry) *Server {
	if entry == nil || !strings.Contains(entry.Name, ServiceType) {
		return nil
	}

	var ip string
	switch {
	case entry.AddrV4 != nil:
		ip = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		ip = entry.AddrV6.String()
	default:
		return nil
	}

	srv := &Server{
		Instance:     instanceName(entry.Name),
		Addr:         net.JoinHostPort(ip, strconv.Itoa(entry.Port)),
		DiscoveredAt: time.Now(),
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "version":
			srv.Version = value
		case "backend":
			srv.Backend = value
		case "workers":
			srv.Workers, _ = strconv.Atoi(value)
		}
	}
	return srv
}

// instanceName strips the service suffix from a fully qualified name and
// undoes DNS escaping of spaces.
func instanceName(name string) string {
	if i := strings.Index(name, "."+ServiceType); i > 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, `\ `, " ")
}

func defaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "aviary"
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return host
}

// localIPs returns all non-loopback IPv4 addresses.
func localIPs() []net.IP {
	var ips []net.IP

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ips
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ipnet.IP.To4() != nil {
			ips = append(ips, ipnet.IP)
		}
	}
	return ips
}
