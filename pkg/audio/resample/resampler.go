// ABOUTME: Streaming linear resampler for interleaved int16 PCM
// ABOUTME: Used by the development server to feed 44100 Hz to the player
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// position of the next output frame, in input frames relative to the
	// start of the next chunk; -1 refers to lastFrame
	position  float64
	lastFrame []int16
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int16, channels),
	}
}

// Resample appends the input, converted to the output rate, to dst and
// returns the extended slice. Input and output are interleaved; a trailing
// partial frame in input is ignored.
func (r *Resampler) Resample(dst, input []int16) []int16 {
	frames := len(input) / r.channels
	if frames == 0 {
		return dst
	}
	if r.inputRate == r.outputRate {
		return append(dst, input[:frames*r.channels]...)
	}

	for {
		idx := int(math.Floor(r.position))
		if idx+1 >= frames {
			break
		}
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			var s1 int16
			if idx < 0 {
				s1 = r.lastFrame[ch]
			} else {
				s1 = input[idx*r.channels+ch]
			}
			s2 := input[(idx+1)*r.channels+ch]

			v := float64(s1)*(1.0-frac) + float64(s2)*frac
			dst = append(dst, int16(math.Round(v)))
		}

		r.position += r.ratio
	}

	r.position -= float64(frames)
	copy(r.lastFrame, input[(frames-1)*r.channels:frames*r.channels])
	return dst
}

// OutputSamplesNeeded estimates how many output samples inputSamples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(math.Ceil(float64(inputFrames) / r.ratio))
	return outputFrames * r.channels
}
