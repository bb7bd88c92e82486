// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders plus file opening by extension
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/SoundDrift/sounddrift-go/pkg/audio"
)

// ErrUnsupported is returned for file types without a decoder
var ErrUnsupported = errors.New("unsupported audio format")

// Decoder streams decoded audio as interleaved int16 samples
type Decoder interface {
	// Read fills samples with whole frames; io.EOF marks the end of the audio
	Read(samples []int16) (int, error)

	// Format describes the decoded PCM
	Format() audio.Format

	// Close releases decoder resources
	Close() error
}

// Open picks a decoder by file extension: .mp3, .flac, or .pcm/.raw for
// headerless s16le mono 44100 Hz audio.
func Open(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".flac", ".pcm", ".raw":
	default:
		return nil, fmt.Errorf("%w: %s (supported: .mp3, .flac, .pcm, .raw)", ErrUnsupported, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var dec Decoder
	switch ext {
	case ".mp3":
		dec, err = NewMP3(f)
	case ".flac":
		dec, err = NewFLAC(f)
	default:
		dec, err = NewPCM(f, audio.DefaultFormat())
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return dec, nil
}

func closeReader(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
