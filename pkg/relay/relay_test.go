// ABOUTME: Tests for the relay loop
// ABOUTME: Covers pass-through identity, termination and interruption
package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	data []byte
	err  error
}

// scriptedReader replays steps and fails the test on any read past the script
type scriptedReader struct {
	t     *testing.T
	steps []step
	reads int
	sizes []int
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	r.sizes = append(r.sizes, len(p))
	if r.reads >= len(r.steps) {
		r.t.Errorf("unexpected read #%d past end of script", r.reads+1)
		return 0, io.ErrUnexpectedEOF
	}
	s := r.steps[r.reads]
	r.reads++
	n := copy(p, s.data)
	return n, s.err
}

type recordingWriter struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.writes = append(w.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (w *recordingWriter) sizes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	sizes := make([]int, len(w.writes))
	for i, b := range w.writes {
		sizes[i] = len(b)
	}
	return sizes
}

func (w *recordingWriter) joined() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return bytes.Join(w.writes, nil)
}

func filled(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func run(t *testing.T, steps []step, opts ...Option) (Result, *scriptedReader, *recordingWriter, error) {
	t.Helper()
	src := &scriptedReader{t: t, steps: steps}
	dst := &recordingWriter{}
	r, err := New(src, dst, opts...)
	require.NoError(t, err)
	res, runErr := r.Run(context.Background())
	return res, src, dst, runErr
}

func TestTwoFullChunksThenClose(t *testing.T) {
	res, src, dst, err := run(t, []step{
		{data: filled(1024, 1)},
		{data: filled(1024, 2)},
		{err: io.EOF},
	})

	require.NoError(t, err)
	assert.Equal(t, PeerClosed, res.Reason)
	assert.Equal(t, []int{1024, 1024}, dst.sizes())
	assert.Equal(t, int64(2), res.Chunks)
	assert.Equal(t, int64(2048), res.Bytes)
	assert.Equal(t, 3, src.reads)
}

func TestShortChunkThenClose(t *testing.T) {
	res, _, dst, err := run(t, []step{
		{data: filled(500, 7)},
		{err: io.EOF},
	})

	require.NoError(t, err)
	assert.Equal(t, PeerClosed, res.Reason)
	assert.Equal(t, []int{500}, dst.sizes())
	assert.Equal(t, filled(500, 7), dst.joined())
}

func TestZeroLengthReadStops(t *testing.T) {
	// A third step would fail the test if the relay kept reading
	res, src, dst, err := run(t, []step{
		{data: filled(10, 1)},
		{data: nil},
	})

	require.NoError(t, err)
	assert.Equal(t, PeerClosed, res.Reason)
	assert.Equal(t, 2, src.reads)
	assert.Equal(t, []int{10}, dst.sizes())
}

func TestDataWithEOFIsWritten(t *testing.T) {
	res, _, dst, err := run(t, []step{
		{data: []byte{1, 2, 3}, err: io.EOF},
	})

	require.NoError(t, err)
	assert.Equal(t, PeerClosed, res.Reason)
	assert.Equal(t, []byte{1, 2, 3}, dst.joined())
}

func TestPassThroughIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		var steps []step
		var expected []byte
		count := 1 + rng.Intn(40)
		for i := 0; i < count; i++ {
			chunk := make([]byte, 1+rng.Intn(1024))
			rng.Read(chunk)
			steps = append(steps, step{data: chunk})
			expected = append(expected, chunk...)
		}
		steps = append(steps, step{err: io.EOF})

		res, src, dst, err := run(t, steps)

		require.NoError(t, err)
		assert.Equal(t, PeerClosed, res.Reason)
		assert.Equal(t, expected, dst.joined(), "trial %d", trial)
		assert.Len(t, dst.writes, len(steps)-1, "one write per non-empty read")
		for _, size := range src.sizes {
			assert.Equal(t, 1024, size)
		}
	}
}

func TestCustomChunkSize(t *testing.T) {
	_, src, _, err := run(t, []step{{err: io.EOF}}, WithChunkSize(256))

	require.NoError(t, err)
	assert.Equal(t, []int{256}, src.sizes)
}

func TestInvalidChunkSize(t *testing.T) {
	_, err := New(&bytes.Buffer{}, io.Discard, WithChunkSize(0))
	require.ErrorIs(t, err, ErrInvalidChunkSize)
}

func TestWriteErrorIsFatal(t *testing.T) {
	deviceErr := errors.New("device lost")
	src := &scriptedReader{t: t, steps: []step{{data: filled(4, 1)}}}
	dst := &recordingWriter{err: deviceErr}

	r, err := New(src, dst)
	require.NoError(t, err)
	res, err := r.Run(context.Background())

	require.ErrorIs(t, err, deviceErr)
	assert.Equal(t, Failed, res.Reason)
	assert.Equal(t, int64(0), res.Chunks)
}

func TestReadErrorIsFatal(t *testing.T) {
	reset := errors.New("connection reset by peer")
	res, _, dst, err := run(t, []step{
		{data: filled(8, 1)},
		{err: reset},
	})

	require.ErrorIs(t, err, reset)
	assert.Equal(t, Failed, res.Reason)
	assert.Equal(t, []int{8}, dst.sizes())
}

func TestCancelledBeforeStart(t *testing.T) {
	src := &scriptedReader{t: t}
	r, err := New(src, &recordingWriter{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, Interrupted, res.Reason)
	assert.Equal(t, 0, src.reads)
}

func TestInterruptDuringBlockingRead(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	dst := &recordingWriter{}
	r, err := New(client, dst)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan Result, 1)
	go func() {
		res, err := r.Run(ctx)
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case res := <-done:
		assert.Equal(t, Interrupted, res.Reason)
		assert.Empty(t, dst.sizes())
		assert.Equal(t, StateStopped, r.Stats().State)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
}

func TestStats(t *testing.T) {
	src := &scriptedReader{t: t, steps: []step{
		{data: filled(100, 1)},
		{data: filled(200, 2)},
		{err: io.EOF},
	}}

	r, err := New(src, &recordingWriter{})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, r.Stats().State)

	_, err = r.Run(context.Background())
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, StateStopped, stats.State)
	assert.Equal(t, int64(2), stats.Chunks)
	assert.Equal(t, int64(300), stats.Bytes)
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "peer closed", PeerClosed.String())
	assert.Equal(t, "interrupted", Interrupted.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", StopReason(0).String())
}
