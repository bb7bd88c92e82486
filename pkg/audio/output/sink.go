// ABOUTME: Sink owns an audio host and its playback stream
// ABOUTME: Releases them exactly once in stop, close, terminate order
package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Sink is the playback end of the relay
type Sink struct {
	system System
	stream Stream

	releaseOnce sync.Once
	releaseErr  error
}

// OpenSink opens a stream on sys and takes ownership of both.
// If the stream cannot be opened, sys is terminated before returning.
func OpenSink(sys System) (*Sink, error) {
	stream, err := sys.OpenStream()
	if err != nil {
		if terr := sys.Terminate(); terr != nil {
			err = errors.Join(err, fmt.Errorf("terminate: %w", terr))
		}
		return nil, fmt.Errorf("failed to open %s stream: %w", sys.Name(), err)
	}

	log.Debug("Audio sink opened", "backend", sys.Name())

	return &Sink{
		system: sys,
		stream: stream,
	}, nil
}

// Backend returns the name of the underlying backend
func (s *Sink) Backend() string {
	return s.system.Name()
}

// Write queues one chunk for playback
func (s *Sink) Write(p []byte) (int, error) {
	return s.stream.Write(p)
}

// Release stops the stream, closes it and terminates the audio host.
// Every step runs even if an earlier one fails. Safe to call more than once.
func (s *Sink) Release() error {
	s.releaseOnce.Do(func() {
		var errs []error
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop stream: %w", err))
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}
		if err := s.system.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("terminate %s: %w", s.system.Name(), err))
		}
		s.releaseErr = errors.Join(errs...)
		log.Debug("Audio sink released", "backend", s.system.Name(), "err", s.releaseErr)
	})
	return s.releaseErr
}
