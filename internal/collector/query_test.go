package collector

import (
	"context"
	"testing"
	"time"

	"github.com/ernie/bot30/internal/domain"
	"github.com/ernie/bot30/internal/rcon"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type replyTransport struct {
	replies [][]byte
	sent    int
	closed  bool
}

func (r *replyTransport) Connect(context.Context) error { return nil }

func (r *replyTransport) Send([]byte) error {
	r.sent++
	return nil
}

func (r *replyTransport) Receive(time.Duration) ([]byte, error) {
	if len(r.replies) == 0 {
		return nil, rcon.ErrTimeout
	}
	data := r.replies[0]
	r.replies = r.replies[1:]
	return data, nil
}

func (r *replyTransport) Close() error {
	r.closed = true
	return nil
}

func testQuerier(t *testing.T, tr *replyTransport) *RconQuerier {
	q := NewRconQuerier(zaptest.NewLogger(t))
	q.dial = func(string, int) rcon.Transport { return tr }
	return q
}

func TestQueryServerStatus(t *testing.T) {
	tr := &replyTransport{replies: [][]byte{
		append(append([]byte{}, rcon.ReplyPrefix...), ctfReply[:60]...),
		append(append([]byte{}, rcon.ReplyPrefix...), ctfReply[60:]...),
	}}
	srv, err := testQuerier(t, tr).QueryServerStatus(context.Background(), Target{Host: "127.0.0.1", Port: 27960, Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "ut4_abbey", srv.MapName())
	require.Len(t, srv.Players(), 3)
	require.True(t, tr.closed)
	require.Equal(t, 1, tr.sent)
}

func TestQueryServerStatusParseErrorClosesTransport(t *testing.T) {
	tr := &replyTransport{replies: [][]byte{[]byte("Map: ut4_abbey\nPlayers: 2\nGameTime: 00:00:00\n")}}
	_, err := testQuerier(t, tr).QueryServerStatus(context.Background(), Target{Password: "pw"})
	require.ErrorIs(t, err, domain.ErrParse)
	require.True(t, tr.closed)
	require.Equal(t, 1, tr.sent)
}

func TestQueryServerStatusNoData(t *testing.T) {
	tr := &replyTransport{}
	q := testQuerier(t, tr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := q.QueryServerStatus(ctx, Target{Password: "pw", Retries: 1, Timeout: 10 * time.Millisecond})
	require.ErrorIs(t, err, rcon.ErrNoData)
	require.True(t, tr.closed)
	require.Equal(t, 1, tr.sent)
}
