package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipinski/animal-service/internal/api"
	"github.com/clipinski/animal-service/internal/config"
)

func TestHTTPHandler(t *testing.T) {
	h := HTTPHandler(api.NewDispatcher(testRouter(t), slog.New(slog.NewTextHandler(io.Discard, nil))), 64)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		want   string
	}{
		{name: "matched", method: http.MethodGet, target: "/hello", status: http.StatusOK, want: "Hello World!"},
		{name: "echo", method: http.MethodPost, target: "/echo", body: "ping", status: http.StatusOK, want: "ping"},
		{name: "unmatched", method: http.MethodPost, target: "/unknown", status: http.StatusNotFound},
		{name: "root", method: http.MethodGet, target: "/", status: http.StatusNotFound},
		{name: "fault", method: http.MethodGet, target: "/fail", status: http.StatusInternalServerError},
		{name: "too large", method: http.MethodPost, target: "/echo", body: strings.Repeat("x", 100), status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestStartHTTPServer(t *testing.T) {
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := probe.Addr().(*net.TCPAddr).Port
	require.NoError(t, probe.Close())

	cfg := config.Default()
	cfg.Server.Port = port
	cfg.Server.GracePeriod = 100 * time.Millisecond

	dispatcher := api.NewDispatcher(testRouter(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- StartHTTPServer(ctx, cfg, dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	url := "http://" + cfg.ServerAddress() + "/hello"
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello World!", string(body))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("net/http server did not shut down")
	}
}
