//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Blocking-write PortAudio stream with int16 samples
package output

import (
	"fmt"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

type portAudioSystem struct {
	cfg Config
}

func newPortAudioSystem(cfg Config) (System, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	log.Info("Audio output initialized", "backend", BackendPortAudio, "format", cfg.Format.String(),
		"frames_per_buffer", cfg.FramesPerBuffer)

	return &portAudioSystem{cfg: cfg}, nil
}

func (s *portAudioSystem) Name() string { return BackendPortAudio }

func (s *portAudioSystem) OpenStream() (Stream, error) {
	p := &portAudioStream{
		frameSize: s.cfg.Format.FrameSize(),
		samples:   make([]int16, s.cfg.FramesPerBuffer*s.cfg.Format.Channels),
	}
	p.buffer = p.samples

	// Pointer to the buffer so each Write can play a partial chunk
	stream, err := portaudio.OpenDefaultStream(0, s.cfg.Format.Channels,
		float64(s.cfg.Format.SampleRate), s.cfg.FramesPerBuffer, &p.buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	return p, nil
}

func (s *portAudioSystem) Terminate() error {
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream    *portaudio.Stream
	frameSize int
	samples   []int16 // backing array, one device buffer
	buffer    []int16 // slice handed to PortAudio
	carry     []byte  // bytes of an incomplete frame from the previous write
}

func (p *portAudioStream) Write(data []byte) (int, error) {
	if p.stream == nil {
		return 0, ErrClosed
	}

	in := data
	if len(p.carry) > 0 {
		in = append(p.carry, data...)
		p.carry = nil
	}

	whole := len(in) - len(in)%p.frameSize
	if whole < len(in) {
		p.carry = append([]byte(nil), in[whole:]...)
	}

	for off := 0; off < whole; {
		n := audio.DecodeInt16(p.samples, in[off:whole])
		p.buffer = p.samples[:n]
		if err := p.stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
			return 0, fmt.Errorf("portaudio write: %w", err)
		}
		off += n * 2
	}
	return len(data), nil
}

func (p *portAudioStream) Stop() error {
	if p.stream == nil {
		return nil
	}
	return p.stream.Stop()
}

func (p *portAudioStream) Close() error {
	if p.stream == nil {
		return nil
	}
	err := p.stream.Close()
	p.stream = nil
	return err
}
