// ABOUTME: TCP network source implementation
// ABOUTME: Dials host:port and exposes the connection as a closable reader
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPort is the port the phone-side server listens on
const DefaultPort = 12345

// ErrEmptyHost is returned when no server address was given
var ErrEmptyHost = errors.New("server address is empty")

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds source configuration
type Config struct {
	// Host is an IPv4/IPv6 address or hostname, optionally with ":port"
	Host string

	// Port is used when Host carries no port (default: 12345)
	Port int

	// DialTimeout bounds the connect call; zero means no timeout
	DialTimeout time.Duration
}

// Address returns the host:port the source connects to
func (c Config) Address() (string, error) {
	host := strings.TrimSpace(c.Host)
	if host == "" {
		return "", ErrEmptyHost
	}

	// An explicit port typed by the operator wins over the default
	if h, p, err := net.SplitHostPort(host); err == nil && h != "" && p != "" {
		return net.JoinHostPort(h, p), nil
	}

	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// TCPSource is a connected stream socket
type TCPSource struct {
	conn net.Conn
	addr string

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the server. A nil dialer uses net.Dialer.
func Dial(ctx context.Context, dialer Dialer, cfg Config) (*TCPSource, error) {
	addr, err := cfg.Address()
	if err != nil {
		return nil, err
	}

	if dialer == nil {
		dialer = &net.Dialer{}
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &TCPSource{conn: conn, addr: addr}, nil
}

// Addr returns the dialed address
func (s *TCPSource) Addr() string {
	return s.addr
}

// Read receives up to len(p) bytes. It returns io.EOF once the server has
// closed the connection.
func (s *TCPSource) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

// SetReadDeadline bounds the current and future Read calls.
// A deadline in the past unblocks a pending Read.
func (s *TCPSource) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// Close closes the connection. Safe to call more than once.
func (s *TCPSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
