// ABOUTME: Tests for mDNS discovery
// ABOUTME: Browsing is driven through a scripted query function, requests stay local
package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Test Server", Port: 12345})
	require.NotNil(t, mgr)
	mgr.Stop()
}

func TestServerInfoAddr(t *testing.T) {
	assert.Equal(t, "192.168.1.5:12345", (&ServerInfo{Host: "192.168.1.5", Port: 12345}).Addr())
	assert.Equal(t, "[fe80::1]:12345", (&ServerInfo{Host: "fe80::1", Port: 12345}).Addr())
}

func TestEntryToServer(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  *ServerInfo
	}{
		{"nil", nil, nil},
		{"no port", &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 1)}, nil},
		{"no address", &mdns.ServiceEntry{Port: 12345}, nil},
		{
			"ipv4",
			&mdns.ServiceEntry{Name: "phone", AddrV4: net.IPv4(10, 0, 0, 1), Port: 12345},
			&ServerInfo{Name: "phone", Host: "10.0.0.1", Port: 12345},
		},
		{
			"ipv6 fallback",
			&mdns.ServiceEntry{Name: "phone", AddrV6: net.ParseIP("fe80::1"), Port: 12345},
			&ServerInfo{Name: "phone", Host: "fe80::1", Port: 12345},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entryToServer(tt.entry))
		})
	}
}

// newTestManager returns a manager that sends no broadcast requests
func newTestManager() *Manager {
	mgr := NewManager(Config{})
	mgr.targets = func() []string { return nil }
	return mgr
}

func TestDiscoverFirstServer(t *testing.T) {
	mgr := newTestManager()
	mgr.query = func(p *mdns.QueryParam) error {
		if p.Service != ServiceType {
			return nil
		}
		p.Entries <- &mdns.ServiceEntry{Name: "phone", AddrV4: net.IPv4(192, 168, 1, 7), Port: 12345}
		return nil
	}

	server, err := discover(context.Background(), mgr, time.Second)

	require.NoError(t, err)
	assert.Equal(t, "192.168.1.7:12345", server.Addr())
}

func TestDiscoverTimeout(t *testing.T) {
	mgr := newTestManager()
	mgr.query = func(*mdns.QueryParam) error { return nil }

	_, err := discover(context.Background(), mgr, 20*time.Millisecond)

	assert.ErrorIs(t, err, ErrNoServer)
}

func TestDiscoverCancelled(t *testing.T) {
	mgr := newTestManager()
	mgr.query = func(*mdns.QueryParam) error { return nil }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := discover(ctx, mgr, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
}
