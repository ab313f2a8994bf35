package app

import (
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loopback = "127.0.0.1"

// holdPorts занимает n подряд идущих портов и возвращает первый
func holdPorts(t *testing.T, n int) int {
	t.Helper()
	for attempt := 0; attempt < 20; attempt++ {
		first, err := net.Listen("tcp", net.JoinHostPort(loopback, "0"))
		require.NoError(t, err)
		port := first.Addr().(*net.TCPAddr).Port

		held := []net.Listener{first}
		ok := true
		for i := 1; i < n; i++ {
			ln, err := net.Listen("tcp", net.JoinHostPort(loopback, fmt.Sprint(port+i)))
			if err != nil {
				ok = false
				break
			}
			held = append(held, ln)
		}
		if ok {
			t.Cleanup(func() {
				for _, ln := range held {
					ln.Close()
				}
			})
			return port
		}
		for _, ln := range held {
			ln.Close()
		}
	}
	t.Fatal("could not reserve consecutive ports")
	return 0
}

// portFree проверяет, что порт можно занять прямо сейчас
func portFree(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(loopback, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

func TestListenWithRetry_UsesNextPort(t *testing.T) {
	var port int
	for attempt := 0; attempt < 20; attempt++ {
		port = holdPorts(t, 1)
		if portFree(port + 1) {
			break
		}
	}

	ln, err := listenWithRetry(loopback, port, 3)
	require.NoError(t, err)
	defer ln.Close()

	assert.Equal(t, port+1, ln.Addr().(*net.TCPAddr).Port)
}

func TestListenWithRetry_FreePort(t *testing.T) {
	tmp, err := net.Listen("tcp", net.JoinHostPort(loopback, "0"))
	require.NoError(t, err)
	port := tmp.Addr().(*net.TCPAddr).Port
	tmp.Close()

	ln, err := listenWithRetry(loopback, port, 2)
	require.NoError(t, err)
	defer ln.Close()
	assert.Equal(t, port, ln.Addr().(*net.TCPAddr).Port)
}

func TestListenWithRetry_ZeroRetries(t *testing.T) {
	port := holdPorts(t, 1)

	ln, err := listenWithRetry(loopback, port, 0)
	require.Error(t, err)
	assert.Nil(t, ln)
	assert.ErrorIs(t, err, syscall.EADDRINUSE)
}

func TestListenWithRetry_RetriesExhausted(t *testing.T) {
	port := holdPorts(t, 2)

	ln, err := listenWithRetry(loopback, port, 1)
	require.Error(t, err)
	assert.Nil(t, ln)
	assert.ErrorIs(t, err, syscall.EADDRINUSE)
	assert.Contains(t, err.Error(), fmt.Sprintf("%d-%d", port, port+1))
}
