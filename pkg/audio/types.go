// ABOUTME: Audio type definitions
// ABOUTME: Defines the fixed stream format and PCM sample conversions
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Stream parameters shared by convention with the phone-side server.
const (
	SampleRate      = 44100
	Channels        = 1
	BitDepth        = 16
	FramesPerBuffer = 1024

	// ChunkSize is the maximum number of bytes moved per receive/write call
	ChunkSize = 1024

	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns the raw s16le mono 44.1kHz format
func DefaultFormat() Format {
	return Format{
		Codec:      "pcm",
		SampleRate: SampleRate,
		Channels:   Channels,
		BitDepth:   BitDepth,
	}
}

// Validate checks the format can be played by a 16-bit output
func (f Format) Validate() error {
	if f.Codec != "" && f.Codec != "pcm" {
		return fmt.Errorf("unsupported codec: %s (supported: pcm)", f.Codec)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("invalid channel count: %d (supported: 1, 2)", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16)", f.BitDepth)
	}
	return nil
}

// FrameSize returns the number of bytes in one frame (one sample per channel)
func (f Format) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

// BytesPerSecond returns the byte rate of the stream
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Duration returns the playback time of n bytes
func (f Format) Duration(n int64) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %s %d-bit", f.Codec, f.SampleRate, ChannelName(f.Channels), f.BitDepth)
}

// ChannelName returns a human-readable channel layout
func ChannelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit range to 16-bit range
	return int16(sample >> 8)
}

// ScaleTo24Bit moves a sample of the given bit depth into the 24-bit range
func ScaleTo24Bit(sample int32, bitDepth int) int32 {
	shift := bitDepth - 24
	if shift > 0 {
		return sample >> shift
	}
	return sample << -shift
}

// Int16ToFloat converts a sample to the [-1, 1) range
func Int16ToFloat(sample int16) float64 {
	return float64(sample) / 32768.0
}

// DecodeInt16 reads little-endian samples from data into dst.
// It returns the number of samples decoded; a trailing odd byte is ignored.
func DecodeInt16(dst []int16, data []byte) int {
	n := len(data) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return n
}

// EncodeInt16 writes samples as little-endian bytes into dst and returns the byte count
func EncodeInt16(dst []byte, samples []int16) int {
	n := len(samples)
	if n > len(dst)/2 {
		n = len(dst) / 2
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(samples[i]))
	}
	return n * 2
}

// Downmix averages interleaved frames of the given channel count into mono
// and appends them to dst.
func Downmix(dst, interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return append(dst, interleaved...)
	}
	frames := len(interleaved) / channels
	for i := 0; i < frames; i++ {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			sum += int32(interleaved[i*channels+ch])
		}
		dst = append(dst, int16(sum/int32(channels)))
	}
	return dst
}
