// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams raw PCM bytes through a pipe into a persistent oto player
package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// otoSystem wraps the process-wide oto context
type otoSystem struct {
	cfg    Config
	otoCtx *oto.Context
}

func newOtoSystem(cfg Config) (System, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.Format.SampleRate,
		ChannelCount: cfg.Format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(cfg.FramesPerBuffer) * time.Second / time.Duration(cfg.Format.SampleRate),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	log.Info("Audio output initialized", "backend", BackendOto, "format", cfg.Format.String(),
		"frames_per_buffer", cfg.FramesPerBuffer)

	return &otoSystem{cfg: cfg, otoCtx: ctx}, nil
}

func (s *otoSystem) Name() string { return BackendOto }

func (s *otoSystem) OpenStream() (Stream, error) {
	if err := s.otoCtx.Err(); err != nil {
		return nil, fmt.Errorf("oto context failed: %w", err)
	}

	// Persistent player reading from a pipe; each Write blocks until oto has
	// pulled the bytes into its own buffer.
	pr, pw := io.Pipe()
	player := s.otoCtx.NewPlayer(pr)
	player.Play()

	return &otoStream{
		player:     player,
		pipeReader: pr,
		pipeWriter: pw,
	}, nil
}

func (s *otoSystem) Terminate() error {
	// oto allows one context per process and has no teardown; suspending
	// releases the device.
	if err := s.otoCtx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend oto context: %w", err)
	}
	return nil
}

type otoStream struct {
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	closeOnce  sync.Once
}

func (o *otoStream) Write(p []byte) (int, error) {
	n, err := o.pipeWriter.Write(p)
	if err == io.ErrClosedPipe {
		return n, ErrClosed
	}
	if err != nil {
		return n, fmt.Errorf("pipe write failed: %w", err)
	}
	return n, nil
}

func (o *otoStream) Stop() error {
	o.player.Pause()
	return nil
}

func (o *otoStream) Close() error {
	var err error
	o.closeOnce.Do(func() {
		_ = o.pipeWriter.Close()
		err = o.player.Close()
		_ = o.pipeReader.Close()
	})
	return err
}
