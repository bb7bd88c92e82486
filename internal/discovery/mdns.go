// ABOUTME: Discovery of SoundDrift servers over UDP broadcast and mDNS
// ABOUTME: Browsing for the player and advertisement for the development server
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service type SoundDrift servers advertise
const ServiceType = "_sounddrift._tcp"

const (
	domain        = "local"
	queryInterval = 3 * time.Second
)

// ErrNoServer is returned when no server answers within the timeout
var ErrNoServer = errors.New("no server found")

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
}

// Manager handles discovery operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo

	query        func(*mdns.QueryParam) error
	targets      func() []string
	listenPacket func(network, address string) (net.PacketConn, error)
}

// ServerInfo describes a discovered server
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// Addr returns the host:port of the server
func (s *ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),

		query:        mdns.Query,
		targets:      BroadcastAddresses,
		listenPacket: net.ListenPacket,
	}
}

// Advertise advertises a SoundDrift server via mDNS until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"format=s16le", "rate=44100", "channels=1"},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Info("Advertising mDNS service", "name", m.config.ServiceName, "port", m.config.Port, "type", ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for SoundDrift servers until Stop is called. Phones are
// found with broadcast requests, development servers with either method.
func (m *Manager) Browse() {
	go m.broadcastLoop()
	go m.browseLoop()
}

// browseLoop continuously browses for mDNS servers
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				server := entryToServer(entry)
				if server == nil {
					continue
				}

				log.Debug("Discovered server", "name", server.Name, "addr", server.Addr())

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Domain = domain
		params.Timeout = queryInterval
		params.Entries = entries
		params.DisableIPv6 = true

		if err := m.query(params); err != nil {
			log.Debug("mDNS query failed", "error", err)
		}
		close(entries)
		<-done

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// Discover browses until the first server answers, the timeout elapses or
// ctx is done.
func Discover(ctx context.Context, timeout time.Duration) (*ServerInfo, error) {
	return discover(ctx, NewManager(Config{}), timeout)
}

func discover(ctx context.Context, m *Manager, timeout time.Duration) (*ServerInfo, error) {
	defer m.Stop()
	m.Browse()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case server := <-m.Servers():
		return server, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrNoServer, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// entryToServer converts an mDNS answer, preferring the IPv4 address
func entryToServer(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	var host string
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	default:
		return nil
	}

	return &ServerInfo{
		Name: entry.Name,
		Host: host,
		Port: entry.Port,
	}
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
