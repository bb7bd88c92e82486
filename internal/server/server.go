// ABOUTME: Development server standing in for the phone
// ABOUTME: Streams raw PCM over TCP to one client at a time, paced in real time
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/SoundDrift/sounddrift-go/internal/discovery"
	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/SoundDrift/sounddrift-go/pkg/source"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config holds server configuration
type Config struct {
	// Addr to listen on (default ":12345")
	Addr string

	// Name advertised over mDNS and in discovery replies
	Name string

	// EnableMDNS advertises the server as _sounddrift._tcp
	EnableMDNS bool

	// EnableBroadcast answers UDP discovery requests the way the phone does
	EnableBroadcast bool

	// DiscoveryAddr is the UDP address requests arrive on (default ":55558")
	DiscoveryAddr string

	// Source selects the audio to stream to each client
	Source SourceConfig

	// ChunkSize is the maximum bytes per write (default 1024)
	ChunkSize int

	// MaxBytes closes each stream after this many bytes; zero streams until
	// the source ends or the client leaves
	MaxBytes int64

	// NoPacing sends as fast as the client reads
	NoPacing bool

	// OpenSource overrides how a client's source is opened
	OpenSource func(SourceConfig) (Source, error)
}

// Server represents the SoundDrift development server
type Server struct {
	config Config
	format audio.Format

	sessions atomic.Int64
	sent     atomic.Int64
}

// New creates a server with defaults applied
func New(config Config) *Server {
	if config.Addr == "" {
		config.Addr = net.JoinHostPort("", strconv.Itoa(source.DefaultPort))
	}
	if config.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		config.Name = hostname + "-sounddrift-server"
	}
	if config.DiscoveryAddr == "" {
		config.DiscoveryAddr = net.JoinHostPort("", strconv.Itoa(discovery.DiscoveryPort))
	}
	if config.ChunkSize < 2 {
		config.ChunkSize = audio.ChunkSize
	}
	if config.OpenSource == nil {
		config.OpenSource = OpenSource
	}
	return &Server{
		config: config,
		format: audio.DefaultFormat(),
	}
}

// ListenAndServe listens on the configured address and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts clients from ln one at a time until ctx is done. The
// listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	log.Info("Server listening", "addr", ln.Addr().String(), "format", s.format)

	if s.config.EnableMDNS || s.config.EnableBroadcast {
		port := ln.Addr().(*net.TCPAddr).Port
		disc := discovery.NewManager(discovery.Config{ServiceName: s.config.Name, Port: port})
		defer disc.Stop()

		if s.config.EnableMDNS {
			if err := disc.Advertise(); err != nil {
				log.Warn("mDNS advertisement failed", "err", err)
			}
		}
		if s.config.EnableBroadcast {
			if err := s.answerDiscovery(ctx, disc); err != nil {
				log.Warn("Discovery responder failed", "err", err)
			}
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			s.handle(ctx, conn)
		}
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (s *Server) answerDiscovery(ctx context.Context, disc *discovery.Manager) error {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", s.config.DiscoveryAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.DiscoveryAddr, err)
	}
	if err := disc.AnswerDiscovery(conn); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// Stats returns the number of sessions served and bytes sent
func (s *Server) Stats() (sessions, bytes int64) {
	return s.sessions.Load(), s.sent.Load()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	sessionID := uuid.NewString()
	logger := log.With("session", sessionID, "client", conn.RemoteAddr().String())
	s.sessions.Add(1)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	src, err := s.config.OpenSource(s.config.Source)
	if err != nil {
		logger.Error("Failed to open audio source", "err", err)
		return
	}
	defer src.Close()

	logger.Info("Client connected", "source", src.Title())
	start := time.Now()

	n, err := s.stream(ctx, conn, NewPCMReader(src, s.format.SampleRate))
	switch {
	case err == nil:
		logger.Info("Stream finished", "bytes", n, "elapsed", time.Since(start).Round(time.Millisecond))
	case ctx.Err() != nil:
		logger.Info("Server stopping", "bytes", n)
	default:
		logger.Info("Client disconnected", "bytes", n, "err", err)
	}
}

// stream copies r to w in chunks, paced to the audio byte rate
func (s *Server) stream(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if !s.config.NoPacing {
		// A few chunks of burst let the client fill its device buffer
		limiter = rate.NewLimiter(rate.Limit(s.format.BytesPerSecond()), s.config.ChunkSize*4)
	}

	buf := make([]byte, s.config.ChunkSize)
	var total int64

	for {
		chunk := buf
		if s.config.MaxBytes > 0 {
			remaining := s.config.MaxBytes - total
			if remaining <= 0 {
				return total, nil
			}
			if remaining < int64(len(chunk)) {
				// whole samples only
				chunk = chunk[:remaining&^1]
			}
			if len(chunk) == 0 {
				return total, nil
			}
		}

		n, err := r.Read(chunk)
		if n > 0 {
			if werr := limiter.WaitN(ctx, n); werr != nil {
				return total, werr
			}
			if _, werr := w.Write(chunk[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
			s.sent.Add(int64(n))
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
