// ABOUTME: Beep speaker audio output implementation
// ABOUTME: Feeds the gopxl/beep speaker from a blocking ring buffer
package output

import (
	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

type beepSystem struct {
	cfg Config
}

func newBeepSystem(cfg Config) (System, error) {
	if err := speaker.Init(beep.SampleRate(cfg.Format.SampleRate), cfg.FramesPerBuffer); err != nil {
		return nil, err
	}

	log.Info("Audio output initialized", "backend", BackendBeep, "format", cfg.Format.String(),
		"frames_per_buffer", cfg.FramesPerBuffer)

	return &beepSystem{cfg: cfg}, nil
}

func (s *beepSystem) Name() string { return BackendBeep }

func (s *beepSystem) OpenStream() (Stream, error) {
	st := &beepStream{
		ring:     NewRingBuffer(s.cfg.bufferBytes() * ringBuffers),
		channels: s.cfg.Format.Channels,
	}
	speaker.Play(st)
	return st, nil
}

func (s *beepSystem) Terminate() error {
	speaker.Close()
	return nil
}

// beepStream implements beep.Streamer over queued s16le bytes
type beepStream struct {
	ring     *RingBuffer
	channels int
	scratch  []byte
	closed   bool
}

func (b *beepStream) Write(p []byte) (int, error) {
	return b.ring.Write(p)
}

// Stream converts queued PCM to float frames. Underruns play silence.
func (b *beepStream) Stream(samples [][2]float64) (n int, ok bool) {
	if b.closed {
		return 0, false
	}

	frameSize := 2 * b.channels
	need := len(samples) * frameSize
	if cap(b.scratch) < need {
		b.scratch = make([]byte, need)
	}
	buf := b.scratch[:need]
	b.ring.Read(buf, frameSize)

	for i := range samples {
		left := int16(uint16(buf[i*frameSize]) | uint16(buf[i*frameSize+1])<<8)
		right := left
		if b.channels == 2 {
			right = int16(uint16(buf[i*frameSize+2]) | uint16(buf[i*frameSize+3])<<8)
		}
		samples[i][0] = audio.Int16ToFloat(left)
		samples[i][1] = audio.Int16ToFloat(right)
	}
	return len(samples), true
}

func (b *beepStream) Err() error { return nil }

func (b *beepStream) Stop() error {
	b.ring.Close()
	speaker.Clear()
	return nil
}

func (b *beepStream) Close() error {
	speaker.Lock()
	b.closed = true
	speaker.Unlock()
	b.ring.Close()
	return nil
}
