package rcon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeCommand(t *testing.T) {
	packet, err := EncodeCommand("secret", "players")
	require.NoError(t, err)
	require.Equal(t, []byte("\xff\xff\xff\xffrcon \"secret\" players\n"), packet)
}

func TestEncodeCommandLatin1(t *testing.T) {
	packet, err := EncodeCommand("pässwörd", "players")
	require.NoError(t, err)
	// ä and ö are single bytes in latin-1
	require.Equal(t, []byte("\xff\xff\xff\xffrcon \"p\xe4ssw\xf6rd\" players\n"), packet)
}

func TestEncodeCommandUnescapedQuote(t *testing.T) {
	packet, err := EncodeCommand(`a"b`, "players")
	require.NoError(t, err)
	require.Equal(t, "\xff\xff\xff\xffrcon \"a\"b\" players\n", string(packet))
}

func TestEncodeCommandOutsideLatin1(t *testing.T) {
	_, err := EncodeCommand("пароль", "players")
	require.Error(t, err)
}

func TestDecodeReply(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"prefixed", []byte("\xff\xff\xff\xffprint\nMap: ut4_abbey\n"), "Map: ut4_abbey\n"},
		{"bare", []byte("Map: ut4_abbey\n"), "Map: ut4_abbey\n"},
		{"only one prefix stripped", []byte("\xff\xff\xff\xffprint\n\xff\xff\xff\xffprint\nx"), "ÿÿÿÿprint\nx"},
		{"latin-1", []byte("0:J\xe9r\xf4me"), "0:Jérôme"},
		{"empty", []byte{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DecodeReply(tc.in))
		})
	}
}
