// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with a blocking ring buffer feeding the device callback
package output

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
)

// ringBuffers is how many device buffers the ring holds
const ringBuffers = 4

type malgoSystem struct {
	cfg      Config
	malgoCtx *malgo.AllocatedContext
}

func newMalgoSystem(cfg Config) (System, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	log.Info("Audio output initialized", "backend", BackendMalgo, "format", cfg.Format.String(),
		"frames_per_buffer", cfg.FramesPerBuffer)

	return &malgoSystem{cfg: cfg, malgoCtx: ctx}, nil
}

func (s *malgoSystem) Name() string { return BackendMalgo }

func (s *malgoSystem) OpenStream() (Stream, error) {
	frameSize := s.cfg.Format.FrameSize()
	ring := NewRingBuffer(s.cfg.bufferBytes() * ringBuffers)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(s.cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(s.cfg.Format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(s.cfg.FramesPerBuffer)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			ring.Read(pOutput[:int(frameCount)*frameSize], frameSize)
		},
	}

	device, err := malgo.InitDevice(s.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	return &malgoStream{device: device, ring: ring}, nil
}

func (s *malgoSystem) Terminate() error {
	err := s.malgoCtx.Uninit()
	s.malgoCtx.Free()
	if err != nil {
		return fmt.Errorf("malgo context uninit: %w", err)
	}
	return nil
}

type malgoStream struct {
	device    *malgo.Device
	ring      *RingBuffer
	closeOnce sync.Once
}

func (m *malgoStream) Write(p []byte) (int, error) {
	return m.ring.Write(p)
}

func (m *malgoStream) Stop() error {
	m.ring.Close()
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("device stop: %w", err)
	}
	return nil
}

func (m *malgoStream) Close() error {
	m.closeOnce.Do(func() {
		m.ring.Close()
		m.device.Uninit()
	})
	return nil
}
