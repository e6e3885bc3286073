package beast

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestServer_BroadcastToClient(t *testing.T) {
	srv, err := NewServer(newTestLogger(), "127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	msg := []byte{SyncByte, ModeS, 0x01, 0x02}
	srv.Broadcast(msg)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	r := bufio.NewReader(conn)
	out := make([]byte, len(msg))
	_, err = r.Read(out)
	require.NoError(t, err)
	assert.Equal(t, msg, out)
}

func TestServer_ClientCount(t *testing.T) {
	srv, err := NewServer(newTestLogger(), "127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	assert.Equal(t, 0, srv.ClientCount())

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestServer_CloseDisconnectsClients(t *testing.T) {
	srv, err := NewServer(newTestLogger(), "127.0.0.1:0")
	require.NoError(t, err)

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, srv.Close())
	assert.Equal(t, 0, srv.ClientCount())
}
