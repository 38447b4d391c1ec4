package webhook

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewHTTPServer(ln.Addr().String(), NewMux(http.NotFoundHandler(), logging.Nop()), logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + HealthPath)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestHTTPServer_RunBadAddress(t *testing.T) {
	s := NewHTTPServer("bad-address", http.NotFoundHandler(), logging.Nop())
	require.Error(t, s.Run(context.Background()))
}

func TestHTTPServer_ServeErrorReleasesShutdownGoroutine(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	s := NewHTTPServer("unused", http.NotFoundHandler(), logging.Nop())

	// ctx is never cancelled; Serve must still return once the listener fails
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(context.Background(), ln) }()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after listener failure")
	}
}
