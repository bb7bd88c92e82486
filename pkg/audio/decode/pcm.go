// ABOUTME: PCM audio decoder
// ABOUTME: Reads headerless 16-bit little-endian PCM
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
)

// PCMDecoder decodes raw s16le PCM
type PCMDecoder struct {
	r      io.Reader
	format audio.Format
	buf    []byte
}

// NewPCM creates a new PCM decoder for audio in the given format
func NewPCM(r io.Reader, format audio.Format) (*PCMDecoder, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PCM format: %w", err)
	}
	return &PCMDecoder{r: r, format: format}, nil
}

// Read decodes up to len(samples) samples in whole frames
func (d *PCMDecoder) Read(samples []int16) (int, error) {
	frameSize := d.format.FrameSize()
	want := (len(samples) * 2 / frameSize) * frameSize
	if cap(d.buf) < want {
		d.buf = make([]byte, want)
	}
	buf := d.buf[:want]

	n, err := io.ReadFull(d.r, buf)
	numSamples := audio.DecodeInt16(samples, buf[:n-n%frameSize])

	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return numSamples, nil
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	}
	return numSamples, err
}

// Format describes the decoded PCM
func (d *PCMDecoder) Format() audio.Format {
	return d.format
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return closeReader(d.r)
}
