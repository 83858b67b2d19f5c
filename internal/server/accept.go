package server

import (
	"context"
	"errors"
	"net"
	"time"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = 1 * time.Second
)

// result of one accept operation
type acceptResult struct {
	op   uint64
	conn net.Conn
	err  error
}

// acceptLoop keeps config.AcceptPool accept operations outstanding against
// the listener. Whichever completes first is serviced first: its connection
// goes to a new worker and a replacement accept is issued straight away.
func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.done)

	size := s.config.AcceptPool
	// every pool member sends exactly once, so sends never block
	results := make(chan acceptResult, size)
	pool := make(map[uint64]struct{}, size)

	var nextOp uint64
	issue := func() {
		nextOp++
		pool[nextOp] = struct{}{}
		go s.accept(nextOp, results)
	}
	for range size {
		issue()
	}

	var delay time.Duration
	for {
		s.pending.Store(int64(len(pool)))

		select {
		case <-ctx.Done():
			s.drain(pool, results)
			return
		case <-s.shutdown:
			s.drain(pool, results)
			return
		case res := <-results:
			delete(pool, res.op)

			if res.err != nil {
				if errors.Is(res.err, net.ErrClosed) {
					s.logger.Warn("listener closed, stopping accept loop")
					s.drain(pool, results)
					return
				}

				if delay == 0 {
					delay = minAcceptDelay
				} else {
					delay *= 2
				}
				if delay > maxAcceptDelay {
					delay = maxAcceptDelay
				}
				s.logger.Warn("accept error", "err", res.err, "retry_in", delay)

				if !s.sleep(ctx, delay) {
					s.drain(pool, results)
					return
				}
				issue()
				continue
			}

			delay = 0
			s.spawnWorker(res.conn)
			issue()
		}
	}
}

func (s *Server) accept(op uint64, results chan<- acceptResult) {
	conn, err := s.listener.Accept()
	results <- acceptResult{op: op, conn: conn, err: err}
}

// sleep waits for d and reports false if shutdown began meanwhile.
func (s *Server) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.shutdown:
		return false
	}
}

// drain releases every outstanding accept by closing the listener, then
// waits for each of them to report back. Connections accepted in the
// meantime get a 503 instead of being served.
func (s *Server) drain(pool map[uint64]struct{}, results <-chan acceptResult) {
	s.state.Store(int32(ShuttingDown))
	s.closeListener()

	for len(pool) > 0 {
		res := <-results
		delete(pool, res.op)
		if res.conn != nil {
			s.rejectConnection(res.conn)
		}
	}

	s.pending.Store(0)
	s.state.Store(int32(Stopped))
	s.logger.Info("accept loop stopped")
}
