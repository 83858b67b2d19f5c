package socket

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// Listen binds a TCP listener on host:port with SO_REUSEADDR set, so a
// restarted server does not trip over sockets left in TIME_WAIT.
func Listen(ctx context.Context, host string, port int) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			if sockErr != nil {
				return fmt.Errorf("setsockopt error: %w", sockErr)
			}
			return nil
		},
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind error on %s: %w", addr, err)
	}
	return ln, nil
}

// SetClientOptions applies per-connection options to an accepted
// connection. TCP_NODELAY sends small responses immediately instead of
// queuing them.
func SetClientOptions(conn net.Conn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	if sockErr != nil {
		return fmt.Errorf("setsockopt TCP_NODELAY: %w", sockErr)
	}
	return nil
}
