// ABOUTME: Audio output registry tests
// ABOUTME: Verifies backend lookup without touching audio hardware
package output

import (
	"testing"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackends(t *testing.T) {
	assert.Equal(t, []string{"beep", "malgo", "oto", "portaudio"}, Backends())
}

func TestInitializeUnknownBackend(t *testing.T) {
	sys, err := Initialize("alsa-direct", Config{})

	require.ErrorIs(t, err, ErrUnknownBackend)
	assert.Nil(t, sys)
	assert.Contains(t, err.Error(), "alsa-direct")
}

func TestInitializeRejectsFormat(t *testing.T) {
	cfg := Config{Format: audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 1, BitDepth: 24}}

	_, err := Initialize(BackendOto, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bit depth")
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, audio.DefaultFormat(), cfg.Format)
	assert.Equal(t, 1024, cfg.FramesPerBuffer)
	assert.Equal(t, 2048, cfg.bufferBytes())
}

func TestConfigKeepsExplicitValues(t *testing.T) {
	format := audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}
	cfg := Config{Format: format, FramesPerBuffer: 256}.withDefaults()

	assert.Equal(t, format, cfg.Format)
	assert.Equal(t, 256, cfg.FramesPerBuffer)
	assert.Equal(t, 1024, cfg.bufferBytes())
}
