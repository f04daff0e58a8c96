package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ernie/bot30/internal/domain"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()
	opts := natstest.DefaultTestOptions
	opts.Port = -1
	srv := natstest.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv
}

func subscribe(t *testing.T, url, subject string) *nats.Subscription {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	sub, err := nc.SubscribeSync(subject)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	return sub
}

func testServer() *domain.Server {
	var settings domain.Settings
	settings.Set(domain.KeyMap, "ut4_casa")
	settings.Set(domain.KeyPlayers, "1")
	settings.Set(domain.KeyGameType, "FFA")
	settings.Set(domain.KeyGameTime, "00:01:00")
	return domain.NewServer(settings, []domain.Player{
		{Slot: 0, Name: "solo", Team: domain.TeamFree, Ping: 40},
	})
}

func TestPublishStatus(t *testing.T) {
	srv := runServer(t)
	sub := subscribe(t, srv.ClientURL(), "bot30.>")

	pub, err := Connect(srv.ClientURL(), "bot30", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pub.Close()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := domain.NewStatusEvent("main", testServer(), nil, at)
	require.NoError(t, pub.Publish(context.Background(), ev))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, "bot30.main.status", msg.Subject)

	var got struct {
		Event  string              `json:"event"`
		Server string              `json:"server"`
		Data   domain.ServerStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	require.Equal(t, domain.EventServerUpdate, got.Event)
	require.Equal(t, "main", got.Server)
	require.Equal(t, "ut4_casa", got.Data.Map)
	require.Len(t, got.Data.Players, 1)
}

func TestPublishOffline(t *testing.T) {
	srv := runServer(t)
	sub := subscribe(t, srv.ClientURL(), "bot30.*.offline")

	pub, err := Connect(srv.ClientURL(), "bot30", nil)
	require.NoError(t, err)
	defer pub.Close()

	ev := domain.NewStatusEvent("eu one", nil, errors.New("no data"), time.Now())
	require.NoError(t, pub.Publish(context.Background(), ev))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, "bot30.eu_one.offline", msg.Subject)
	require.Contains(t, string(msg.Data), `"error":"no data"`)
}

func TestConnectFailure(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "bot30", nil)
	require.Error(t, err)
}

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"main", "main"},
		{"", "default"},
		{"a.b", "a_b"},
		{"x*>y", "x__y"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, subjectToken(tt.in), tt.in)
	}
}
