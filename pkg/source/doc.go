// ABOUTME: Network source package
// ABOUTME: Raw TCP byte stream from the phone-side server
// Package source connects to the server that produces the PCM stream.
//
// The stream is raw: no handshake, no framing, no length prefixes. Bytes are
// read exactly as the server wrote them, and an orderly close by the server
// shows up as io.EOF.
//
// Example:
//
//	src, err := source.Dial(ctx, nil, source.Config{Host: "192.168.1.20"})
//	defer src.Close()
//	n, err := src.Read(buf)
package source
