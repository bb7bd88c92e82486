// ABOUTME: Relay loop moving raw PCM chunks from a reader to a writer
// ABOUTME: One read then one write per iteration, stopping on EOF or cancellation
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/charmbracelet/log"
)

// ErrInvalidChunkSize is returned by New for a non-positive chunk size
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// State is the relay lifecycle state
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// StopReason says why Run returned
type StopReason int

const (
	// PeerClosed: the server closed the connection (zero-length read)
	PeerClosed StopReason = iota + 1
	// Interrupted: the context was cancelled by the operator
	Interrupted
	// Failed: a read or write fault; Run also returns the error
	Failed
)

func (r StopReason) String() string {
	switch r {
	case PeerClosed:
		return "peer closed"
	case Interrupted:
		return "interrupted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarizes a finished run
type Result struct {
	Reason StopReason
	Chunks int64
	Bytes  int64
}

// Stats is a live snapshot of relay counters
type Stats struct {
	State  State
	Chunks int64
	Bytes  int64
}

// deadliner is implemented by sources whose blocking reads can be cut short
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Option configures a Relay
type Option func(*Relay)

// WithChunkSize sets the maximum bytes per read (default 1024)
func WithChunkSize(n int) Option {
	return func(r *Relay) {
		r.chunkSize = n
	}
}

// Relay forwards bytes from src to dst, unmodified and in order
type Relay struct {
	src       io.Reader
	dst       io.Writer
	chunkSize int

	state  atomic.Int32
	chunks atomic.Int64
	bytes  atomic.Int64
}

// New creates a relay from src to dst
func New(src io.Reader, dst io.Writer, opts ...Option) (*Relay, error) {
	r := &Relay{
		src:       src,
		dst:       dst,
		chunkSize: audio.ChunkSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, r.chunkSize)
	}
	return r, nil
}

// Run relays until the source reports an orderly close, ctx is cancelled, or
// an I/O fault occurs. A chunk in flight when ctx is cancelled is dropped.
func (r *Relay) Run(ctx context.Context) (Result, error) {
	r.state.Store(int32(StateRunning))
	defer r.state.Store(int32(StateStopped))

	// Cancellation must be able to break a read that is blocked on the network
	if d, ok := r.src.(deadliner); ok {
		stop := context.AfterFunc(ctx, func() {
			if err := d.SetReadDeadline(time.Now()); err != nil {
				log.Debug("Failed to interrupt read", "err", err)
			}
		})
		defer stop()
	}

	buf := make([]byte, r.chunkSize)
	for {
		if ctx.Err() != nil {
			return r.result(Interrupted), nil
		}

		n, err := r.src.Read(buf)
		if ctx.Err() != nil {
			return r.result(Interrupted), nil
		}

		if n > 0 {
			if _, werr := r.dst.Write(buf[:n]); werr != nil {
				return r.result(Failed), fmt.Errorf("write chunk: %w", werr)
			}
			r.chunks.Add(1)
			r.bytes.Add(int64(n))
		}

		switch {
		case errors.Is(err, io.EOF):
			return r.result(PeerClosed), nil
		case err != nil:
			return r.result(Failed), fmt.Errorf("receive chunk: %w", err)
		case n == 0:
			return r.result(PeerClosed), nil
		}
	}
}

// Stats returns the current counters; safe to call from any goroutine
func (r *Relay) Stats() Stats {
	return Stats{
		State:  State(r.state.Load()),
		Chunks: r.chunks.Load(),
		Bytes:  r.bytes.Load(),
	}
}

func (r *Relay) result(reason StopReason) Result {
	return Result{
		Reason: reason,
		Chunks: r.chunks.Load(),
		Bytes:  r.bytes.Load(),
	}
}
