// ABOUTME: Audio decoder package for file playback
// ABOUTME: Provides the Decoder interface and MP3, FLAC and raw PCM implementations
// Package decode turns encoded audio into interleaved 16-bit PCM samples.
//
// Supports: MP3 (go-mp3), FLAC (mewkiz/flac) and raw s16le PCM.
//
// Example:
//
//	dec, err := decode.Open("song.flac")
//	n, err := dec.Read(samples)
package decode
