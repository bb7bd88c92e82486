// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts 16-bit PCM between sample rates across chunk boundaries
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates and keeps
// the last input frame so consecutive chunks join without a seam.
//
// Example:
//
//	r := resample.New(48000, 44100, 1)
//	out = r.Resample(out[:0], in)
package resample
