package socket

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestListenSetsReuseAddr(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()

	raw, err := ln.(*net.TCPListener).SyscallConn()
	require.NoError(t, err)

	var v int
	var optErr error
	require.NoError(t, raw.Control(func(fd uintptr) {
		v, optErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR)
	}))
	require.NoError(t, optErr)
	assert.NotZero(t, v)
}

func TestListenPortInUse(t *testing.T) {
	first, err := Listen(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	defer first.Close()

	port := first.Addr().(*net.TCPAddr).Port
	_, err = Listen(context.Background(), "127.0.0.1", port)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind error")
}

func TestSetClientOptions(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err == nil {
			defer c.Close()
		}
	}()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, SetClientOptions(conn))

	raw, err := conn.(*net.TCPConn).SyscallConn()
	require.NoError(t, err)
	var v int
	var optErr error
	require.NoError(t, raw.Control(func(fd uintptr) {
		v, optErr = unix.GetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY)
	}))
	require.NoError(t, optErr)
	assert.NotZero(t, v)
}

func TestSetClientOptionsIgnoresNonSocketConns(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	assert.NoError(t, SetClientOptions(a))
}
