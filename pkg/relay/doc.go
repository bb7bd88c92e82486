// Package relay implements the playback loop: receive a chunk from the
// network, write it to the audio sink, repeat.
//
// The loop is deliberately synchronous. A write that blocks because the
// device queue is full stalls the next read, which in turn lets TCP flow
// control slow the server down.
package relay
