package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clipinski/animal-service/internal/config"
	"github.com/clipinski/animal-service/internal/types"
)

// HTTPHandler exposes a Dispatcher as a net/http handler with the same
// response contract as the accept-pool server.
func HTTPHandler(d Dispatcher, maxRequestSize int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(maxRequestSize)))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		req := types.NewRequest(r.Method, r.URL.Path, r.Header, body)
		req.ID = uuid.NewString()
		req.RemoteAddr = r.RemoteAddr

		resp := d.Dispatch(r.Context(), req)
		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(resp.Body)
	})
}

// StartHTTPServer runs the dispatcher behind net/http for benchmark
// comparison. It blocks until ctx is cancelled, then shuts down gracefully.
func StartHTTPServer(ctx context.Context, cfg *config.Config, d Dispatcher, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:           cfg.ServerAddress(),
		Handler:        HTTPHandler(d, cfg.Server.MaxRequestSize),
		ReadTimeout:    cfg.Server.ReadTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting net/http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracePeriod+time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
