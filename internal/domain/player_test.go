package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func player(name string, kills, deaths, assists int) Player {
	return Player{Name: name, Team: TeamRed, Score: Score{Kills: kills, Deaths: deaths, Assists: assists}}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		name  string
		lower Player
		upper Player
	}{
		{"name", player("bar", 20, 22, 3), player("foo", 20, 22, 3)},
		{"kills", player("bar", 20, 22, 3), player("foo", 24, 22, 3)},
		{"deaths", player("bar", 20, 22, 3), player("foo", 20, 20, 3)},
		{"assists", player("bar", 20, 22, 3), player("foo", 20, 22, 5)},
		{"numeric keys beat name", player("aaa", 1, 0, 0), player("zzz", 2, 0, 0)},
		{"negative kills", player("foo", -1, 2, 0), player("bar", 0, 2, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, tc.lower.Less(tc.upper))
			require.False(t, tc.upper.Less(tc.lower))
			require.Equal(t, -1, Compare(tc.lower, tc.upper))
			require.Equal(t, 1, Compare(tc.upper, tc.lower))
		})
	}
	require.Equal(t, 0, Compare(player("foo", 1, 1, 1), player("foo", 1, 1, 1)))
}

func TestCleanQ3Name(t *testing.T) {
	require.Equal(t, "foo", CleanQ3Name("foo^7"))
	require.Equal(t, "RedBlue", CleanQ3Name("^1Red^4Blue"))
	require.Equal(t, "a^b", CleanQ3Name("a^b"))
}

func TestConnecting(t *testing.T) {
	require.True(t, Player{Ping: PingConnecting}.Connecting())
	require.False(t, Player{Ping: 0}.Connecting())
}

func TestGameType(t *testing.T) {
	gt, err := ParseGameType("11")
	require.NoError(t, err)
	require.Equal(t, GameTypeGunGame, gt)
	require.Equal(t, "GUNGAME", gt.String())
	require.True(t, gt.Known())

	require.Equal(t, "GT 2", GameType(2).String())
	require.False(t, GameType(2).Known())

	_, err = ParseGameType("ctf")
	require.Error(t, err)
}
