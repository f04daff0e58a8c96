package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func settings(kv ...string) Settings {
	var s Settings
	for i := 0; i+1 < len(kv); i += 2 {
		s.Set(kv[i], kv[i+1])
	}
	return s
}

func names(players []Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Name)
	}
	return out
}

func TestSettingsOrder(t *testing.T) {
	s := settings("Map", "ut4_abbey", "Players", "0", "Map", "ut4_casa")
	require.Equal(t, 2, s.Len())
	require.Equal(t, []Setting{{"Map", "ut4_casa"}, {"Players", "0"}}, s.All())

	v, ok := s.Get("Players")
	require.True(t, ok)
	require.Equal(t, "0", v)
	_, ok = s.Get("Nope")
	require.False(t, ok)
}

func TestNewServerSortsRoster(t *testing.T) {
	in := []Player{
		player("foo", 20, 22, 3),
		player("bar", 20, 22, 3),
		player("baz", 32, 18, 0),
	}
	srv := NewServer(settings("Map", "ut4_abbey"), in)
	require.Equal(t, []string{"baz", "foo", "bar"}, names(srv.Players()))
	// input untouched
	require.Equal(t, "foo", in[0].Name)
}

func TestServerIsImmutable(t *testing.T) {
	s := settings("Map", "ut4_abbey")
	srv := NewServer(s, []Player{player("foo", 1, 0, 0)})
	s.Set("Map", "ut4_casa")

	players := srv.Players()
	players[0].Name = "changed"

	require.Equal(t, "ut4_abbey", srv.MapName())
	require.Equal(t, "foo", srv.Players()[0].Name)
}

func TestServerDerived(t *testing.T) {
	srv := NewServer(settings(
		"Map", "ut4_abbey",
		"Players", "3",
		"GameType", "CTF",
		"Scores", "R:5 B:10",
		"GameTime", "00:12:04",
	), nil)

	require.Equal(t, "ut4_abbey", srv.MapName())
	require.Equal(t, 3, srv.PlayerCount())
	require.Equal(t, "CTF", srv.GameType())
	require.Equal(t, "CTF", srv.DisplayGameType())

	red, ok := srv.ScoreRed()
	require.True(t, ok)
	require.Equal(t, "5", red)
	blue, ok := srv.ScoreBlue()
	require.True(t, ok)
	require.Equal(t, "10", blue)

	gt, err := srv.GameTime()
	require.NoError(t, err)
	require.Equal(t, "00:12:04", gt)
}

func TestServerOptionalFields(t *testing.T) {
	srv := NewServer(settings("Map", "ut4_docks", "GameType", "FFA"), nil)

	require.Equal(t, 0, srv.PlayerCount())
	require.Equal(t, "FFA", srv.GameType())
	require.Equal(t, "Gun Game/FFA", srv.DisplayGameType())

	_, ok := srv.Scores()
	require.False(t, ok)
	_, ok = srv.ScoreRed()
	require.False(t, ok)
	_, ok = srv.ScoreBlue()
	require.False(t, ok)

	_, err := srv.GameTime()
	require.True(t, errors.Is(err, ErrMissingGameTime))
}

func TestServerScoresMismatch(t *testing.T) {
	srv := NewServer(settings("Map", "ut4_abbey", "Scores", "red 5 blue 10"), nil)
	raw, ok := srv.Scores()
	require.True(t, ok)
	require.Equal(t, "red 5 blue 10", raw)
	_, ok = srv.ScoreRed()
	require.False(t, ok)
}

func TestServerTeams(t *testing.T) {
	mk := func(name string, team Team, kills int) Player {
		return Player{Name: name, Team: team, Score: Score{Kills: kills}}
	}
	srv := NewServer(settings("Map", "ut4_abbey"), []Player{
		mk("foo", TeamRed, 15),
		mk("bar", TeamBlue, 20),
		mk("baz", TeamRed, 32),
		mk("spec", TeamSpectator, 0),
		mk("free", TeamFree, 3),
	})
	require.Equal(t, []string{"baz", "foo"}, names(srv.TeamRed()))
	require.Equal(t, []string{"bar"}, names(srv.TeamBlue()))
	require.Equal(t, []string{"spec"}, names(srv.Spectators()))
	require.Equal(t, []string{"free"}, names(srv.TeamFree()))
}

func TestServerJSON(t *testing.T) {
	srv := NewServer(settings("Map", "ut4_abbey", "Players", "0", "GameType", "FFA"), nil)
	data, err := json.Marshal(srv)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, "ut4_abbey", got["map"])
	require.Equal(t, "Gun Game/FFA", got["display_game_type"])
	require.NotContains(t, got, "score_red")
	require.Equal(t, []any{}, got["players"])
}

func TestNewStatusEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := NewServer(settings("Map", "ut4_abbey"), nil)

	ev := NewStatusEvent("main", srv, nil, at)
	require.Equal(t, EventServerUpdate, ev.Type)
	require.Equal(t, "main", ev.Server)
	require.Equal(t, "ut4_abbey", ev.Data.(ServerStatus).Map)

	ev = NewStatusEvent("main", nil, errors.New("boom"), at)
	require.Equal(t, EventServerOffline, ev.Type)
	require.Equal(t, OfflineEvent{Error: "boom"}, ev.Data)
}
