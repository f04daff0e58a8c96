package rcon

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// echoServer answers every datagram with the given replies.
func echoServer(t *testing.T, replies ...string) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			_, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			for _, r := range replies {
				conn.WriteToUDP([]byte(r), addr)
			}
		}
	}()
	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func TestUDPTransportRoundTrip(t *testing.T) {
	_, port := echoServer(t, "\xff\xff\xff\xffprint\nhello\n")
	tr := NewUDPTransport("127.0.0.1", port)
	defer tr.Close()

	require.NoError(t, tr.Connect(context.Background()))
	require.NoError(t, tr.Connect(context.Background()))
	require.NoError(t, tr.Send([]byte("ping")))

	data, err := tr.Receive(time.Second)
	require.NoError(t, err)
	require.Equal(t, "\xff\xff\xff\xffprint\nhello\n", string(data))

	_, err = tr.Receive(50 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestUDPTransportNotConnected(t *testing.T) {
	tr := NewUDPTransport("127.0.0.1", 27960)
	require.ErrorIs(t, tr.Send([]byte("x")), ErrNotConnected)
	_, err := tr.Receive(time.Millisecond)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestUDPTransportClosed(t *testing.T) {
	_, port := echoServer(t)
	tr := NewUDPTransport("127.0.0.1", port)
	require.NoError(t, tr.Connect(context.Background()))
	require.NoError(t, tr.Close())

	require.ErrorIs(t, tr.Send([]byte("x")), ErrNotConnected)
	_, err := tr.Receive(time.Millisecond)
	require.ErrorIs(t, err, ErrNotConnected)
	require.ErrorIs(t, tr.Connect(context.Background()), ErrNotConnected)
}

func TestSessionOverUDP(t *testing.T) {
	_, port := echoServer(t,
		"\xff\xff\xff\xffprint\nMap: ut4_abbey\n",
		"\xff\xff\xff\xffprint\nGameTime: 00:00:10\n",
	)
	s := NewSession(NewUDPTransport("127.0.0.1", port), "secret", WithTimeout(200*time.Millisecond))
	defer s.Close()

	reply, err := s.Query(context.Background(), "players")
	require.NoError(t, err)
	require.Equal(t, "Map: ut4_abbey\nGameTime: 00:00:10\n", reply)
}
