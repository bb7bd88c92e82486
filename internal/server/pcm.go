// ABOUTME: Converts a Source into the player's wire format
// ABOUTME: Downmix to mono, resample, encode as 16-bit little-endian bytes
package server

import (
	"github.com/SoundDrift/sounddrift-go/pkg/audio"
	"github.com/SoundDrift/sounddrift-go/pkg/audio/resample"
)

const readFrames = 1024

// PCMReader reads a Source as raw s16le mono bytes at a fixed rate
type PCMReader struct {
	src       Source
	channels  int
	resampler *resample.Resampler

	in   []int16
	mono []int16
	conv []int16
	out  []int16 // converted samples not yet returned
	err  error
}

// NewPCMReader wraps src, converting to mono at sampleRate
func NewPCMReader(src Source, sampleRate int) *PCMReader {
	channels := max(src.Channels(), 1)
	resampler := resample.New(src.SampleRate(), sampleRate, 1)
	return &PCMReader{
		src:       src,
		channels:  channels,
		resampler: resampler,
		in:        make([]int16, readFrames*channels),
		mono:      make([]int16, 0, readFrames),
		conv:      make([]int16, 0, resampler.OutputSamplesNeeded(readFrames)+1),
	}
}

// Read fills p with whole samples. The source's error, usually io.EOF, is
// returned once all converted audio has been read.
func (r *PCMReader) Read(p []byte) (int, error) {
	if len(p) < 2 {
		return 0, nil
	}
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill()
	}

	n := audio.EncodeInt16(p, r.out)
	r.out = r.out[n/2:]
	return n, nil
}

func (r *PCMReader) fill() {
	n, err := r.src.Read(r.in)
	n -= n % r.channels

	r.mono = audio.Downmix(r.mono[:0], r.in[:n], r.channels)
	r.conv = r.resampler.Resample(r.conv[:0], r.mono)
	r.out = r.conv
	r.err = err
}
