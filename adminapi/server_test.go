/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-governor/ratelimit"
)

func TestServer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := NewDefaultConfig()
	srv := NewServerWithListener(cfg, nil, NewRouter(nil, ratelimit.NewRegistry(), nil), listener)

	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)
	require.Eventually(t, func() bool { return srv.Addr() != "" }, time.Second, time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(true))
	select {
	case err = <-fatalErr:
		require.NoError(t, err)
	default:
	}
	_, err = http.Get("http://" + listener.Addr().String() + "/healthz")
	require.Error(t, err)
}

func TestServer_StartFails(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = busy.Close() }()

	cfg := NewDefaultConfig()
	cfg.Address = busy.Addr().String()
	srv := NewServer(cfg, nil, http.NotFoundHandler())

	fatalErr := make(chan error, 1)
	srv.Start(fatalErr)
	require.Error(t, <-fatalErr)
	require.NoError(t, srv.Stop(false))
}
