package domain

import (
	"cmp"
	"regexp"
)

// Team is the team tag of a roster line
type Team string

const (
	TeamRed       Team = "RED"
	TeamBlue      Team = "BLUE"
	TeamSpectator Team = "SPECTATOR"
	TeamFree      Team = "FREE"
)

// PingConnecting is reported for clients that are connecting (CNCT) or
// zombies (ZMBI)
const PingConnecting = -1

// Score is a player's kills/deaths/assists triple
type Score struct {
	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`
}

// Player is one line of the rcon players roster
type Player struct {
	Slot      int    `json:"slot"`
	Name      string `json:"name"`
	Team      Team   `json:"team"`
	Score     Score  `json:"score"`
	Ping      int    `json:"ping"`
	Auth      string `json:"auth"`
	IPAddress string `json:"ip_address"`
}

// Connecting reports whether the ping field was CNCT or ZMBI
func (p Player) Connecting() bool {
	return p.Ping == PingConnecting
}

// Compare orders players by kills ascending, then deaths descending, then
// assists ascending, then name ascending. It returns -1, 0 or +1.
func Compare(a, b Player) int {
	if c := cmp.Compare(a.Score.Kills, b.Score.Kills); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score.Deaths, a.Score.Deaths); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Score.Assists, b.Score.Assists); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// Less reports whether a ranks below b
func (p Player) Less(other Player) bool {
	return Compare(p, other) < 0
}

// q3ColorCodeRegex matches Quake 3 color codes like ^1, ^2, etc.
var q3ColorCodeRegex = regexp.MustCompile(`\^[0-9]`)

// CleanQ3Name removes Quake 3 color codes from a player name
func CleanQ3Name(name string) string {
	return q3ColorCodeRegex.ReplaceAllString(name, "")
}
