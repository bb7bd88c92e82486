// ABOUTME: Tests for the development server
// ABOUTME: Runs the server on loopback and reads streams as the player would
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/SoundDrift/sounddrift-go/internal/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv, ln.Addr().String()
}

func readAll(t *testing.T, addr string) []byte {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	return data
}

func TestNewDefaults(t *testing.T) {
	srv := New(Config{})

	assert.Equal(t, ":12345", srv.config.Addr)
	assert.Equal(t, ":55558", srv.config.DiscoveryAddr)
	assert.Equal(t, 1024, srv.config.ChunkSize)
	assert.NotEmpty(t, srv.config.Name)
	assert.NotNil(t, srv.config.OpenSource)
}

func TestServerAnswersDiscoveryRequests(t *testing.T) {
	// reserve a free UDP port for the responder
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	discoveryAddr := pc.LocalAddr().String()
	require.NoError(t, pc.Close())

	_, addr := startServer(t, Config{Name: "dev-server", EnableBroadcast: true, DiscoveryAddr: discoveryAddr})
	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	client, err := net.Dial("udp4", discoveryAddr)
	require.NoError(t, err)
	defer client.Close()

	buf := make([]byte, 256)
	var reply []byte
	require.Eventually(t, func() bool {
		if _, err := client.Write([]byte(discovery.DiscoveryMessage)); err != nil {
			return false
		}
		if err := client.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			return false
		}
		n, err := client.Read(buf)
		if err != nil {
			return false
		}
		reply = buf[:n]
		return true
	}, 2*time.Second, 10*time.Millisecond)

	assert.JSONEq(t, `{"deviceName":"dev-server","port":`+port+`}`, string(reply))
}

func TestServerMaxBytes(t *testing.T) {
	srv, addr := startServer(t, Config{MaxBytes: 5000, NoPacing: true})

	data := readAll(t, addr)

	assert.Len(t, data, 5000)
	sessions, sent := srv.Stats()
	assert.Equal(t, int64(1), sessions)
	assert.Equal(t, int64(5000), sent)
}

func TestServerOddMaxBytesSendsWholeSamples(t *testing.T) {
	_, addr := startServer(t, Config{MaxBytes: 1025, NoPacing: true})

	assert.Len(t, readAll(t, addr), 1024)
}

func TestServerClosesAtEndOfSource(t *testing.T) {
	open := func(SourceConfig) (Source, error) {
		return &sliceSource{samples: make([]int16, 250), sampleRate: 44100, channels: 1}, nil
	}
	_, addr := startServer(t, Config{NoPacing: true, OpenSource: open})

	assert.Len(t, readAll(t, addr), 500)
}

func TestServerSequentialClients(t *testing.T) {
	srv, addr := startServer(t, Config{MaxBytes: 2048, NoPacing: true})

	assert.Len(t, readAll(t, addr), 2048)
	assert.Len(t, readAll(t, addr), 2048)

	sessions, _ := srv.Stats()
	assert.Equal(t, int64(2), sessions)
}

func TestServerSourceOpenFailureClosesClient(t *testing.T) {
	open := func(SourceConfig) (Source, error) { return nil, errors.New("no file") }
	_, addr := startServer(t, Config{OpenSource: open})

	assert.Empty(t, readAll(t, addr))
}

func TestServerPacing(t *testing.T) {
	// 0.1s of audio; the first 4 chunks are burst
	_, addr := startServer(t, Config{MaxBytes: 8820})

	start := time.Now()
	data := readAll(t, addr)

	assert.Len(t, data, 8820)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestServerStopsStreamOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Config{}).Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 1024)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = io.Copy(io.Discard, conn)
	assert.NoError(t, err, "stream ends with an orderly close")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStreamClosesSource(t *testing.T) {
	src := &sliceSource{samples: make([]int16, 10), sampleRate: 44100, channels: 1}
	open := func(SourceConfig) (Source, error) { return src, nil }
	_, addr := startServer(t, Config{NoPacing: true, OpenSource: open})

	readAll(t, addr)

	assert.Eventually(t, func() bool { return src.closed.Load() }, time.Second, 10*time.Millisecond)
}
