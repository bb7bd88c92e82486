// ABOUTME: Audio sources for the development server
// ABOUTME: Test tone generator plus looping decoded audio files
package server

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/SoundDrift/sounddrift-go/pkg/audio/decode"
	"github.com/charmbracelet/log"
)

// DefaultToneFrequency is the test tone pitch (A4)
const DefaultToneFrequency = 440.0

// Source provides interleaved 16-bit PCM samples
type Source interface {
	// Read fills samples and returns how many were written; io.EOF ends the stream
	Read(samples []int16) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Title names the audio for logs
	Title() string
	// Close closes the audio source
	Close() error
}

// SourceConfig selects what the server streams
type SourceConfig struct {
	// Path to an .mp3, .flac or raw .pcm file; empty plays the test tone
	Path string
	// Loop restarts files at the end instead of closing the stream
	Loop bool
	// ToneFrequency in Hz (default 440)
	ToneFrequency float64
}

// OpenSource opens the configured audio source
func OpenSource(cfg SourceConfig) (Source, error) {
	if cfg.Path == "" {
		freq := cfg.ToneFrequency
		if freq <= 0 {
			freq = DefaultToneFrequency
		}
		return NewToneSource(freq, audio.SampleRate), nil
	}

	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}
	return NewFileSource(cfg.Path, cfg.Loop)
}

func titleOf(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// ToneSource generates an endless mono sine wave
type ToneSource struct {
	sampleIndex uint64
	sampleRate  int
	frequency   float64
}

// NewToneSource creates a new test tone generator
func NewToneSource(frequency float64, sampleRate int) *ToneSource {
	return &ToneSource{
		frequency:  frequency,
		sampleRate: sampleRate,
	}
}

func (s *ToneSource) Read(samples []int16) (int, error) {
	for i := range samples {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		sample := math.Sin(2 * math.Pi * s.frequency * t)

		// 50% volume
		samples[i] = int16(sample * 32767.0 * 0.5)
	}

	s.sampleIndex += uint64(len(samples))

	return len(samples), nil
}

func (s *ToneSource) SampleRate() int { return s.sampleRate }
func (s *ToneSource) Channels() int   { return 1 }
func (s *ToneSource) Title() string {
	return fmt.Sprintf("Test Tone %.0f Hz", s.frequency)
}
func (s *ToneSource) Close() error { return nil }

// FileSource plays a decoded audio file, optionally looping
type FileSource struct {
	path  string
	loop  bool
	title string
	dec   decode.Decoder
}

// NewFileSource opens path with the decoder for its extension
func NewFileSource(path string, loop bool) (*FileSource, error) {
	dec, err := decode.Open(path)
	if err != nil {
		return nil, err
	}

	title := titleOf(path)
	format := dec.Format()
	log.Info("Loaded audio file", "title", title, "rate", format.SampleRate, "channels", format.Channels)

	return &FileSource{
		path:  path,
		loop:  loop,
		title: title,
		dec:   dec,
	}, nil
}

func (s *FileSource) Read(samples []int16) (int, error) {
	n, err := s.dec.Read(samples)
	if !errors.Is(err, io.EOF) || !s.loop {
		return n, err
	}

	// Loop back to start
	if cerr := s.dec.Close(); cerr != nil {
		log.Warn("Failed to close decoder", "err", cerr)
	}
	dec, err := decode.Open(s.path)
	if err != nil {
		return n, fmt.Errorf("failed to reopen %s: %w", s.path, err)
	}
	s.dec = dec
	return n, nil
}

func (s *FileSource) SampleRate() int { return s.dec.Format().SampleRate }
func (s *FileSource) Channels() int   { return s.dec.Format().Channels }
func (s *FileSource) Title() string   { return s.title }
func (s *FileSource) Close() error {
	return s.dec.Close()
}
