// ABOUTME: High-level Player API for SoundDrift streaming
// ABOUTME: Opens the sink, connects to the server, relays audio and tears down in order
package sounddrift

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/SoundDrift/sounddrift-go/pkg/audio/output"
	"github.com/SoundDrift/sounddrift-go/pkg/relay"
	"github.com/SoundDrift/sounddrift-go/pkg/source"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Player states reported through OnStateChange
const (
	StateIdle       = "idle"
	StateConnecting = "connecting"
	StateStreaming  = "streaming"
	StateStopping   = "stopping"
	StateStopped    = "stopped"
)

var (
	// ErrNoServer is returned when no server address is configured
	ErrNoServer = errors.New("no server address")

	// ErrAlreadyRun is returned when Run is called a second time
	ErrAlreadyRun = errors.New("player already ran")
)

// OpenSystemFunc initializes an audio host for a backend
type OpenSystemFunc func(backend string, cfg output.Config) (output.System, error)

// PlayerConfig holds player configuration
type PlayerConfig struct {
	// ServerAddr is the phone address (host or host:port)
	ServerAddr string

	// ResolveServer supplies the address when ServerAddr is empty. It is
	// called after the audio sink is open, right before connecting.
	ResolveServer func(ctx context.Context) (string, error)

	// Port is used when ServerAddr has no port (default: 12345)
	Port int

	// Backend selects the audio output (default: oto)
	Backend string

	// Format is the PCM format the server sends (default: s16le mono 44100Hz)
	Format audio.Format

	// FramesPerBuffer is the device buffer size in frames (default: 1024)
	FramesPerBuffer int

	// ChunkSize is the maximum bytes per receive (default: 1024)
	ChunkSize int

	// DialTimeout bounds the connect call; zero waits as long as the OS does
	DialTimeout time.Duration

	// Dialer opens the TCP connection (default: net.Dialer)
	Dialer source.Dialer

	// OpenSystem creates the audio host (default: output.Initialize)
	OpenSystem OpenSystemFunc

	// OnStateChange is called when the player state changes
	OnStateChange func(PlayerState)
}

// PlayerState describes the current state
type PlayerState struct {
	State      string
	SessionID  string
	ServerAddr string
	Backend    string
	Format     audio.Format
	Connected  bool
	Reason     relay.StopReason // set once stopping
}

// PlayerStats contains playback statistics
type PlayerStats struct {
	State  relay.State
	Chunks int64
	Bytes  int64
	Played time.Duration
}

// Player relays one server stream to one audio output
type Player struct {
	config    PlayerConfig
	sessionID string

	ran   atomic.Bool
	relay atomic.Pointer[relay.Relay]

	mu    sync.Mutex
	state PlayerState
}

// NewPlayer creates a new player with the given configuration
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.Port == 0 {
		config.Port = source.DefaultPort
	}
	if config.Backend == "" {
		config.Backend = output.DefaultBackend
	}
	if config.Format == (audio.Format{}) {
		config.Format = audio.DefaultFormat()
	}
	if config.FramesPerBuffer == 0 {
		config.FramesPerBuffer = audio.FramesPerBuffer
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = audio.ChunkSize
	}
	if config.OpenSystem == nil {
		config.OpenSystem = output.Initialize
	}

	var addr string
	if config.ServerAddr != "" || config.ResolveServer == nil {
		var err error
		addr, err = resolveAddr(config.ServerAddr, config.Port)
		if err != nil {
			return nil, err
		}
	}

	p := &Player{
		config:    config,
		sessionID: uuid.NewString(),
	}
	p.state = PlayerState{
		State:      StateIdle,
		SessionID:  p.sessionID,
		ServerAddr: addr,
		Backend:    config.Backend,
		Format:     config.Format,
	}
	return p, nil
}

// Addr returns the host:port the player connects to, empty until resolved
func (p *Player) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.ServerAddr
}

func resolveAddr(host string, port int) (string, error) {
	addr, err := source.Config{Host: host, Port: port}.Address()
	if errors.Is(err, source.ErrEmptyHost) {
		return "", ErrNoServer
	}
	return addr, err
}

// Run opens the audio sink, connects to the server and relays audio until the
// server closes the stream or ctx is cancelled. Both resources are released
// before Run returns, the source first and then the sink.
// Run can only be called once.
func (p *Player) Run(ctx context.Context) (res relay.Result, err error) {
	if !p.ran.CompareAndSwap(false, true) {
		return relay.Result{}, ErrAlreadyRun
	}

	logger := log.With("session", p.sessionID)

	defer func() {
		p.updateState(func(s *PlayerState) {
			s.State = StateStopped
			s.Connected = false
			s.Reason = res.Reason
		})
		logger.Info("Player stopped", "reason", res.Reason, "chunks", res.Chunks, "bytes", res.Bytes, "err", err)
	}()

	sys, err := p.config.OpenSystem(p.config.Backend, output.Config{
		Format:          p.config.Format,
		FramesPerBuffer: p.config.FramesPerBuffer,
	})
	if err != nil {
		return relay.Result{Reason: relay.Failed}, fmt.Errorf("audio output: %w", err)
	}

	sink, err := output.OpenSink(sys)
	if err != nil {
		return relay.Result{Reason: relay.Failed}, fmt.Errorf("audio output: %w", err)
	}
	defer func() {
		if rerr := sink.Release(); rerr != nil {
			logger.Warn("Audio sink release failed", "err", rerr)
		}
	}()

	host := p.config.ServerAddr
	if host == "" {
		host, err = p.config.ResolveServer(ctx)
		if err == nil {
			var addr string
			if addr, err = resolveAddr(host, p.config.Port); err == nil {
				p.mu.Lock()
				p.state.ServerAddr = addr
				p.mu.Unlock()
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				p.stopping(relay.Interrupted)
				return relay.Result{Reason: relay.Interrupted}, nil
			}
			p.stopping(relay.Failed)
			return relay.Result{Reason: relay.Failed}, fmt.Errorf("server address: %w", err)
		}
	}

	p.updateState(func(s *PlayerState) { s.State = StateConnecting })
	logger.Info("Connecting", "addr", p.Addr(), "backend", sink.Backend())

	src, err := source.Dial(ctx, p.config.Dialer, source.Config{
		Host:        host,
		Port:        p.config.Port,
		DialTimeout: p.config.DialTimeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			p.stopping(relay.Interrupted)
			return relay.Result{Reason: relay.Interrupted}, nil
		}
		p.stopping(relay.Failed)
		return relay.Result{Reason: relay.Failed}, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("Source close failed", "err", cerr)
		}
	}()

	r, err := relay.New(src, sink, relay.WithChunkSize(p.config.ChunkSize))
	if err != nil {
		p.stopping(relay.Failed)
		return relay.Result{Reason: relay.Failed}, err
	}
	p.relay.Store(r)

	p.updateState(func(s *PlayerState) {
		s.State = StateStreaming
		s.Connected = true
	})
	logger.Info("Connected", "addr", src.Addr())

	res, err = r.Run(ctx)
	p.stopping(res.Reason)
	return res, err
}

// Status returns the current player state
func (p *Player) Status() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns live relay statistics
func (p *Player) Stats() PlayerStats {
	r := p.relay.Load()
	if r == nil {
		return PlayerStats{State: relay.StateIdle}
	}
	s := r.Stats()
	return PlayerStats{
		State:  s.State,
		Chunks: s.Chunks,
		Bytes:  s.Bytes,
		Played: p.config.Format.Duration(s.Bytes),
	}
}

func (p *Player) stopping(reason relay.StopReason) {
	p.updateState(func(s *PlayerState) {
		s.State = StateStopping
		s.Reason = reason
	})
}

func (p *Player) updateState(fn func(*PlayerState)) {
	p.mu.Lock()
	fn(&p.state)
	state := p.state
	p.mu.Unlock()

	if p.config.OnStateChange != nil {
		p.config.OnStateChange(state)
	}
}
