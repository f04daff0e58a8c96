package domain

import "strconv"

// GameType is a g_gametype cvar value
type GameType int

const (
	GameTypeFreeForAll GameType = 0
	GameTypeLMS        GameType = 1
	GameTypeTDM        GameType = 3
	GameTypeTS         GameType = 4
	GameTypeFTL        GameType = 5
	GameTypeCAH        GameType = 6
	GameTypeCTF        GameType = 7
	GameTypeBomb       GameType = 8
	GameTypeJump       GameType = 9
	GameTypeFreezeTag  GameType = 10
	GameTypeGunGame    GameType = 11
)

var gameTypeNames = map[GameType]string{
	GameTypeFreeForAll: "FFA",
	GameTypeLMS:        "LMS",
	GameTypeTDM:        "TDM",
	GameTypeTS:         "TS",
	GameTypeFTL:        "FTL",
	GameTypeCAH:        "CAH",
	GameTypeCTF:        "CTF",
	GameTypeBomb:       "BOMB",
	GameTypeJump:       "JUMP",
	GameTypeFreezeTag:  "FREEZETAG",
	GameTypeGunGame:    "GUNGAME",
}

// String returns the short name, or "GT <n>" for codes the game does not
// define.
func (g GameType) String() string {
	if name, ok := gameTypeNames[g]; ok {
		return name
	}
	return "GT " + strconv.Itoa(int(g))
}

// Known reports whether g is a defined game type
func (g GameType) Known() bool {
	_, ok := gameTypeNames[g]
	return ok
}

// ParseGameType converts a g_gametype cvar string
func ParseGameType(code string) (GameType, error) {
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, err
	}
	return GameType(n), nil
}
