// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the stream Format and s16le sample conversions
// Package audio provides the audio types shared by the player and the
// development server.
//
// The wire format is fixed: signed 16-bit little-endian samples, one channel,
// 44100 Hz. Nothing on the wire describes it; both ends agree by convention.
//
//   - Format: describes a PCM stream (sample rate, channels, bit depth)
//   - DecodeInt16 / EncodeInt16: convert between s16le bytes and samples
//   - ScaleTo24Bit / SampleToInt16: bring decoded samples of any bit depth
//     down to 16 bits through the 24-bit range
//
// Example:
//
//	format := audio.DefaultFormat()
//	samples := make([]int16, audio.ChunkSize/2)
//	n := audio.DecodeInt16(samples, chunk)
package audio
