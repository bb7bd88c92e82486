// ABOUTME: Audio output package for playing raw PCM
// ABOUTME: Provides the System/Stream backends and the ordered Sink
// Package output provides audio playback backends.
//
// A System is the process-wide audio host handle (an oto context, a miniaudio
// context, an initialized PortAudio library, the beep speaker). A Stream is one
// open playback stream on that host. Sink ties the two together and releases
// them in a fixed order: stop the stream, close the stream, terminate the host.
//
// Backends:
//   - oto (default)
//   - malgo (miniaudio)
//   - beep (gopxl/beep speaker)
//   - portaudio (build with -tags portaudio)
//
// Example:
//
//	sys, err := output.Initialize(output.BackendOto, output.Config{})
//	sink, err := output.OpenSink(sys)
//	defer sink.Release()
//	_, err = sink.Write(chunk)
package output
