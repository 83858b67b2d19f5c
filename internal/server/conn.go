package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clipinski/animal-service/internal/socket"
	"github.com/clipinski/animal-service/internal/types"
)

// rejectConnection answers a connection that arrived after shutdown began.
func (s *Server) rejectConnection(conn net.Conn) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		respond(s.logger, conn, types.Empty(http.StatusServiceUnavailable))
		if err := closeConnection(conn); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("error closing connection", "err", err)
		}
	}()
}

// how long closeConnection waits for the client to finish sending
const lingerTimeout = 500 * time.Millisecond

var errRequestTooLarge = errors.New("request exceeds max request size")

func (s *Server) spawnWorker(conn net.Conn) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.handleConnection(conn)
	}()
}

// handleConnection serves a single request on conn and closes it. Every
// path out of here writes at most one response.
func (s *Server) handleConnection(conn net.Conn) {
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID, "remote_addr", conn.RemoteAddr().String())

	ctx, cancel := context.WithCancel(context.Background())
	s.connections.Store(requestID, cancel)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("connection worker panicked", "err", fmt.Sprint(r))
		}
		s.connections.Delete(requestID)
		cancel()
		if err := closeConnection(conn); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("error closing connection", "err", err)
		}
	}()

	if err := socket.SetClientOptions(conn); err != nil {
		logger.Debug("failed to set client socket options", "err", err)
	}
	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	req, err := readRequest(conn, s.config.MaxRequestSize)
	switch {
	case errors.Is(err, errRequestTooLarge):
		logger.Debug("request too large")
		respond(logger, conn, types.Empty(http.StatusRequestEntityTooLarge))
		return
	case errors.Is(err, io.EOF):
		// client went away before sending a request
		return
	case err != nil:
		logger.Debug("error parsing http request", "err", err)
		respond(logger, conn, types.Empty(http.StatusBadRequest))
		return
	}
	req.ID = requestID
	req.RemoteAddr = conn.RemoteAddr().String()

	start := time.Now()
	resp := s.dispatcher.Dispatch(ctx, req)
	respond(logger, conn, resp)
	logger.Debug("request served",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))
}

// readRequest parses one HTTP/1.x request, body included, from r. The
// request itself may take up to maxSize bytes; r is never read further
// than one byte past that.
func readRequest(r io.Reader, maxSize int) (types.Request, error) {
	limited := &io.LimitedReader{R: r, N: int64(maxSize) + 1}
	reader := bufio.NewReader(limited)

	httpReq, err := http.ReadRequest(reader)
	if err != nil {
		if limited.N <= 0 {
			return types.Request{}, errRequestTooLarge
		}
		return types.Request{}, err
	}
	defer httpReq.Body.Close()

	body, err := io.ReadAll(httpReq.Body)
	if err != nil {
		if limited.N <= 0 {
			return types.Request{}, errRequestTooLarge
		}
		return types.Request{}, fmt.Errorf("read body: %w", err)
	}
	// bytes still buffered belong to whatever the client sent after the request
	consumed := int64(maxSize) + 1 - limited.N - int64(reader.Buffered())
	if consumed > int64(maxSize) {
		return types.Request{}, errRequestTooLarge
	}

	return types.NewRequest(httpReq.Method, httpReq.URL.Path, httpReq.Header, body), nil
}

func respond(logger *slog.Logger, w io.Writer, resp types.Response) {
	if err := writeHTTPResponse(w, resp); err != nil {
		logger.Debug("write error", "err", err)
	}
}

func writeHTTPResponse(w io.Writer, resp types.Response) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	if resp.ContentType != "" {
		fmt.Fprintf(bw, "Content-Type: %s\r\n", resp.ContentType)
	}
	fmt.Fprintf(bw, "Content-Length: %d\r\nConnection: close\r\n\r\n", len(resp.Body))
	bw.Write(resp.Body)
	return bw.Flush()
}

// closeConnection half-closes conn and discards whatever the client still
// sends before closing it fully. Closing a socket with unread input resets
// the connection, which can drop a response the client has not read yet.
func closeConnection(conn net.Conn) error {
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err == nil {
			_ = tcp.SetReadDeadline(time.Now().Add(lingerTimeout))
			_, _ = io.Copy(io.Discard, io.LimitReader(tcp, 256<<10))
		}
	}
	return conn.Close()
}
