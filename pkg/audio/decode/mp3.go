// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 streams to 16-bit stereo samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio. go-mp3 always produces 16-bit stereo.
type MP3Decoder struct {
	r       io.Reader
	decoder *mp3.Decoder
	buf     []byte
}

// NewMP3 creates a new MP3 decoder reading from r. Close closes r when it
// is an io.Closer.
func NewMP3(r io.Reader) (*MP3Decoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &MP3Decoder{r: r, decoder: decoder}, nil
}

// Read decodes up to len(samples) samples
func (d *MP3Decoder) Read(samples []int16) (int, error) {
	// Whole stereo frames only, 4 bytes each
	want := (len(samples) / 2) * 4
	if cap(d.buf) < want {
		d.buf = make([]byte, want)
	}
	buf := d.buf[:want]

	n, err := io.ReadFull(d.decoder, buf)
	numSamples := audio.DecodeInt16(samples, buf[:n-n%4])

	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return numSamples, nil
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case err != nil:
		return numSamples, fmt.Errorf("mp3 decode error: %w", err)
	}
	return numSamples, nil
}

// Format describes the decoded PCM
func (d *MP3Decoder) Format() audio.Format {
	return audio.Format{Codec: "pcm", SampleRate: d.decoder.SampleRate(), Channels: 2, BitDepth: 16}
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return closeReader(d.r)
}
