// ABOUTME: Tests for Sink ownership and release ordering
// ABOUTME: Uses a recording fake backend instead of audio hardware
package output

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSystem struct {
	mu       sync.Mutex
	events   []string
	written  []byte
	openErr  error
	stopErr  error
	closeErr error
	termErr  error
}

func (f *fakeSystem) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeSystem) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeSystem) Name() string { return "fake" }

func (f *fakeSystem) OpenStream() (Stream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.record("open")
	return &fakeStream{sys: f}, nil
}

func (f *fakeSystem) Terminate() error {
	f.record("terminate")
	return f.termErr
}

type fakeStream struct {
	sys *fakeSystem
}

func (s *fakeStream) Write(p []byte) (int, error) {
	s.sys.mu.Lock()
	defer s.sys.mu.Unlock()
	s.sys.written = append(s.sys.written, p...)
	return len(p), nil
}

func (s *fakeStream) Stop() error {
	s.sys.record("stop")
	return s.sys.stopErr
}

func (s *fakeStream) Close() error {
	s.sys.record("close")
	return s.sys.closeErr
}

func TestSinkReleaseOrder(t *testing.T) {
	sys := &fakeSystem{}
	sink, err := OpenSink(sys)
	require.NoError(t, err)

	n, err := sink.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "fake", sink.Backend())

	require.NoError(t, sink.Release())
	assert.Equal(t, []string{"open", "stop", "close", "terminate"}, sys.Events())
	assert.Equal(t, []byte{1, 2, 3}, sys.written)
}

func TestSinkReleaseOnce(t *testing.T) {
	sys := &fakeSystem{}
	sink, err := OpenSink(sys)
	require.NoError(t, err)

	require.NoError(t, sink.Release())
	require.NoError(t, sink.Release())

	assert.Equal(t, []string{"open", "stop", "close", "terminate"}, sys.Events())
}

func TestSinkReleaseContinuesAfterErrors(t *testing.T) {
	stopErr := errors.New("stop failed")
	termErr := errors.New("terminate failed")
	sys := &fakeSystem{stopErr: stopErr, termErr: termErr}
	sink, err := OpenSink(sys)
	require.NoError(t, err)

	err = sink.Release()

	require.Error(t, err)
	assert.ErrorIs(t, err, stopErr)
	assert.ErrorIs(t, err, termErr)
	assert.Equal(t, []string{"open", "stop", "close", "terminate"}, sys.Events())

	// Second call reports the same outcome without repeating the steps
	assert.Equal(t, err, sink.Release())
	assert.Len(t, sys.Events(), 4)
}

func TestOpenSinkFailureTerminatesSystem(t *testing.T) {
	openErr := errors.New("no output device")
	sys := &fakeSystem{openErr: openErr}

	sink, err := OpenSink(sys)

	require.ErrorIs(t, err, openErr)
	assert.Nil(t, sink)
	assert.Equal(t, []string{"terminate"}, sys.Events())
}
