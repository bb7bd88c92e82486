// ABOUTME: Audio output interface definition and backend registry
// ABOUTME: Common interfaces for audio playback backends
package output

import (
	"errors"
	"fmt"
	"sort"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
)

// Backend names accepted by Initialize
const (
	BackendOto       = "oto"
	BackendMalgo     = "malgo"
	BackendBeep      = "beep"
	BackendPortAudio = "portaudio"

	DefaultBackend = BackendOto
)

var (
	// ErrUnknownBackend is returned for a backend name that is not registered
	ErrUnknownBackend = errors.New("unknown audio backend")

	// ErrNotEnabled is returned for a backend compiled out of this binary
	ErrNotEnabled = errors.New("audio backend not enabled in this build")

	// ErrClosed is returned when writing to a stopped or closed stream
	ErrClosed = errors.New("audio stream closed")
)

// Config describes the stream every backend opens
type Config struct {
	Format          audio.Format
	FramesPerBuffer int
}

func (c Config) withDefaults() Config {
	if c.Format == (audio.Format{}) {
		c.Format = audio.DefaultFormat()
	}
	if c.FramesPerBuffer <= 0 {
		c.FramesPerBuffer = audio.FramesPerBuffer
	}
	return c
}

// bufferBytes is the size of one device buffer in bytes
func (c Config) bufferBytes() int {
	return c.FramesPerBuffer * c.Format.FrameSize()
}

// System is an initialized audio host. Only one should exist per process.
type System interface {
	// Name returns the backend name
	Name() string

	// OpenStream opens and starts a playback stream
	OpenStream() (Stream, error)

	// Terminate releases the audio host
	Terminate() error
}

// Stream is an open playback stream
type Stream interface {
	// Write queues PCM bytes for playback (blocks until accepted)
	Write(p []byte) (int, error)

	// Stop stops active playback
	Stop() error

	// Close releases the stream
	Close() error
}

type newSystemFunc func(Config) (System, error)

var backends = map[string]newSystemFunc{
	BackendOto:       newOtoSystem,
	BackendMalgo:     newMalgoSystem,
	BackendBeep:      newBeepSystem,
	BackendPortAudio: newPortAudioSystem,
}

// Backends returns the registered backend names
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Initialize creates the audio host for the named backend
func Initialize(backend string, cfg Config) (System, error) {
	if backend == "" {
		backend = DefaultBackend
	}

	newSystem, ok := backends[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, backend, Backends())
	}

	cfg = cfg.withDefaults()
	if err := cfg.Format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid output format: %w", err)
	}

	sys, err := newSystem(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", backend, err)
	}
	return sys, nil
}
