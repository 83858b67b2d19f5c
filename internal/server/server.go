package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipinski/animal-service/internal/config"
	"github.com/clipinski/animal-service/internal/socket"
	"github.com/clipinski/animal-service/internal/types"
)

var ErrAlreadyStarted = errors.New("server already started")

// Dispatcher turns a parsed request into the response to send back.
type Dispatcher interface {
	Dispatch(ctx context.Context, req types.Request) types.Response
}

type State int32

const (
	Starting State = iota
	Listening
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Listening:
		return "listening"
	case ShuttingDown:
		return "shutting down"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Server accepts connections with a fixed number of outstanding accept
// operations and hands every connection to its own worker goroutine.
type Server struct {
	config     config.ServerConfig
	dispatcher Dispatcher
	logger     *slog.Logger

	listener  net.Listener
	closeOnce sync.Once

	state   atomic.Int32
	pending atomic.Int64
	started atomic.Bool

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	inflight    sync.WaitGroup
	connections sync.Map // request id -> context.CancelFunc
}

func New(cfg config.ServerConfig, dispatcher Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AcceptPool < 1 {
		cfg.AcceptPool = 1
	}
	if cfg.MaxRequestSize < 1 {
		cfg.MaxRequestSize = 1 << 20
	}
	return &Server{
		config:     cfg,
		dispatcher: dispatcher,
		logger:     logger,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start binds the listening endpoint and runs the accept loop in the
// background. It returns once the server is listening, or with the bind
// error, in which case the server goes straight to Stopped.
func (s *Server) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ln, err := socket.Listen(ctx, s.config.Host, s.config.Port)
	if err != nil {
		s.state.Store(int32(Stopped))
		close(s.done)
		return err
	}
	s.run(ctx, ln)
	return nil
}

// Serve is Start for a listener created by the caller. The server takes
// ownership of ln and closes it on shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.run(ctx, ln)
	return nil
}

func (s *Server) run(ctx context.Context, ln net.Listener) {
	s.listener = ln
	s.state.Store(int32(Listening))
	s.logger.Info("server listening", "addr", ln.Addr().String(), "accept_pool", s.config.AcceptPool)

	go s.acceptLoop(ctx)
}

// RequestShutdown stops the accept loop. Only the first call has an effect;
// in-flight requests keep running. Cancelling the context passed to Start
// has the same effect.
func (s *Server) RequestShutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("shutdown requested")
		close(s.shutdown)
	})
}

// Stop requests shutdown, waits for the accept loop to reach Stopped and
// then gives in-flight requests up to the grace period (or until ctx ends)
// to finish. Requests still running after that have their contexts
// cancelled.
func (s *Server) Stop(ctx context.Context) error {
	s.RequestShutdown()
	if !s.started.Load() {
		return nil
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()

	var grace <-chan time.Time
	if s.config.GracePeriod > 0 {
		timer := time.NewTimer(s.config.GracePeriod)
		defer timer.Stop()
		grace = timer.C
	}

	select {
	case <-drained:
		s.logger.Info("shutdown complete")
		return nil
	case <-grace:
		s.logger.Warn("grace period exceeded, cancelling requests in progress")
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached, cancelling requests in progress")
	}

	s.connections.Range(func(key, value any) bool {
		if cancel, ok := value.(context.CancelFunc); ok {
			cancel()
			s.logger.Debug("request cancelled due to shutdown", "request_id", key)
		}
		return true
	})
	return nil
}

// Done is closed once the accept loop has stopped and released the listener.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// Pending reports the number of outstanding accept operations as of the
// accept loop's last iteration boundary.
func (s *Server) Pending() int {
	return int(s.pending.Load())
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) closeListener() {
	s.closeOnce.Do(func() {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("error closing listener", "err", err)
		}
	})
}
