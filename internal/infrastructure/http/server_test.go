package http

import (
	"context"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_RunStopsOnCancel(t *testing.T) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	srv := NewServer(e, "0", time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return e.ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestServer_RunReturnsListenError(t *testing.T) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	srv := NewServer(e, "-1", time.Second, zerolog.Nop())

	err := srv.Run(context.Background())
	assert.Error(t, err)
}

func TestNewServer_DefaultsShutdownTimeout(t *testing.T) {
	srv := NewServer(echo.New(), "5000", 0, zerolog.Nop())
	assert.Equal(t, defaultShutdownTimeout, srv.shutdownTimeout)
	assert.Equal(t, ":5000", srv.addr)
}
