// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC streams frame by frame to 16-bit samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio of any bit depth to 16-bit samples
type FLACDecoder struct {
	r      io.Reader
	stream *flac.Stream
	format audio.Format
	depth  int

	// decoded samples of the current frame not yet returned
	pending  []int16
	frameBuf []int16
}

// NewFLAC creates a new FLAC decoder reading from r. Close closes r when it
// is an io.Closer.
func NewFLAC(r io.Reader) (*FLACDecoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLACDecoder{
		r:      r,
		stream: stream,
		format: audio.Format{
			Codec:      "pcm",
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   16,
		},
		depth: int(info.BitsPerSample),
	}, nil
}

// Read decodes up to len(samples) samples
func (d *FLACDecoder) Read(samples []int16) (int, error) {
	samplesRead := 0

	for samplesRead < len(samples) {
		if len(d.pending) > 0 {
			n := copy(samples[samplesRead:], d.pending)
			d.pending = d.pending[n:]
			samplesRead += n
			continue
		}

		frame, err := d.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			if samplesRead == 0 {
				return 0, io.EOF
			}
			break
		}
		if err != nil {
			return samplesRead, fmt.Errorf("flac decode error: %w", err)
		}

		// Interleave and convert to 16-bit
		d.frameBuf = d.frameBuf[:0]
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < d.format.Channels; ch++ {
				sample := audio.ScaleTo24Bit(frame.Subframes[ch].Samples[i], d.depth)
				d.frameBuf = append(d.frameBuf, audio.SampleToInt16(sample))
			}
		}
		d.pending = d.frameBuf
	}

	return samplesRead, nil
}

// Format describes the decoded PCM
func (d *FLACDecoder) Format() audio.Format {
	return d.format
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return closeReader(d.r)
}
