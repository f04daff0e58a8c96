package mapcycle

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func names(c Cycle) []string {
	out := make([]string, 0, len(c))
	for _, m := range c {
		out = append(out, m.Name)
	}
	return out
}

func TestParseFile(t *testing.T) {
	cycle, err := ParseFile(filepath.Join("testdata", "mapcycle.txt"))
	require.NoError(t, err)
	require.Equal(t, []string{"ut4_casa", "ut4_abbey", "ut4_turnpike", "ut4_docks", "ut4_paris_", "ut4_uptown"}, names(cycle))

	casa, ok := cycle.Get("ut4_casa")
	require.True(t, ok)
	require.Equal(t, map[string]string{"g_gametype": "11", "mod_gungame": "1"}, casa)

	abbey, ok := cycle.Get("ut4_abbey")
	require.True(t, ok)
	require.Empty(t, abbey)

	_, ok = cycle.Get("ut4_nope")
	require.False(t, ok)
}

func TestParsePlain(t *testing.T) {
	cycle, err := ParseFile(filepath.Join("testdata", "mapcycle_plain.txt"))
	require.NoError(t, err)
	require.Equal(t, Cycle{
		{Name: "ut4_casa", Options: map[string]string{}},
		{Name: "ut4_abbey", Options: map[string]string{}},
		{Name: "ut4_paris", Options: map[string]string{}},
	}, cycle)
}

func TestParseDuplicateMap(t *testing.T) {
	cycle, err := Parse(strings.NewReader("a\n{\nx 1\n}\nb\na\n{\ny 2\n}\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names(cycle))
	require.Equal(t, map[string]string{"y": "2"}, cycle[0].Options)
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"{\n}\n",
		"ut4_casa\n}\n",
		"ut4_casa\n{\ng_gametype 7\n",
	} {
		_, err := Parse(strings.NewReader(in))
		require.Error(t, err, in)
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestMode(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"mod_ctf": "0", "mod_gungame": "0", "g_instagib": "0", "g_gametype": "7"}
	}
	cases := []struct {
		name string
		set  map[string]string
		want string
	}{
		{"ctf is default", nil, ""},
		{"gungame mod", map[string]string{"mod_gungame": "1"}, "(GUNGAME d3mod)"},
		{"ctf mod", map[string]string{"mod_ctf": "1"}, "(CTF d3mod)"},
		{"ctf mod with instagib", map[string]string{"mod_ctf": "1", "g_instagib": "1"}, "(CTF d3mod Instagib)"},
		{"gungame", map[string]string{"g_gametype": "11"}, "(GUNGAME)"},
		{"team survivor", map[string]string{"g_gametype": "4"}, "(TS)"},
		{"instagib ctf", map[string]string{"g_instagib": "1"}, "(CTF Instagib)"},
		{"unknown code", map[string]string{"g_gametype": "2"}, "(GT 2)"},
		{"garbage code", map[string]string{"g_gametype": "x"}, "(GT x)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := base()
			for k, v := range tc.set {
				opts[k] = v
			}
			require.Equal(t, tc.want, Mode(opts))
		})
	}
	require.Equal(t, "", Mode(map[string]string{}))
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "ut4_paris", DisplayName("ut4_paris_"))
	require.Equal(t, "ut4_casa", DisplayName("ut4_casa"))
}
