package rcon

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// OOBPrefix marks a connectionless (out-of-band) Quake 3 packet.
var OOBPrefix = []byte{0xFF, 0xFF, 0xFF, 0xFF}

// ReplyPrefix is the header a server puts in front of console output.
var ReplyPrefix = append(append([]byte{}, OOBPrefix...), "print\n"...)

// EncodeCommand frames an rcon command as a Latin-1 datagram:
//
//	\xff\xff\xff\xffrcon "<password>" <command>\n
//
// The password is not escaped; a password containing a double quote will
// break the framing on the server side.
func EncodeCommand(password, command string) ([]byte, error) {
	text := "rcon \"" + password + "\" " + command + "\n"
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encoding command %q as latin-1: %w", command, err)
	}

	packet := make([]byte, 0, len(OOBPrefix)+len(encoded))
	packet = append(packet, OOBPrefix...)
	return append(packet, encoded...), nil
}

// DecodeReply strips one leading ReplyPrefix, if present, and decodes the
// remainder as Latin-1.
func DecodeReply(data []byte) string {
	data = bytes.TrimPrefix(data, ReplyPrefix)
	// Every byte is a valid Latin-1 code point, so decoding cannot fail.
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(decoded)
}
