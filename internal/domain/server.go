package domain

import (
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
)

// Header keys of the rcon players reply
const (
	KeyMap         = "Map"
	KeyPlayers     = "Players"
	KeyGameType    = "GameType"
	KeyScores      = "Scores"
	KeyMatchMode   = "MatchMode"
	KeyWarmupPhase = "WarmupPhase"
	KeyGameTime    = "GameTime"
)

// Setting is one header line of a status reply
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Settings is an insertion-ordered string map. Setting an existing key
// replaces its value in place.
type Settings struct {
	keys   []string
	values map[string]string
}

// Set stores value under key
func (s *Settings) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value for key and whether it was present
func (s Settings) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of keys
func (s Settings) Len() int {
	return len(s.keys)
}

// All returns the settings in insertion order
func (s Settings) All() []Setting {
	out := make([]Setting, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, Setting{Key: k, Value: s.values[k]})
	}
	return out
}

func (s Settings) clone() Settings {
	c := Settings{
		keys:   slices.Clone(s.keys),
		values: make(map[string]string, len(s.values)),
	}
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// GameTypeFFA is the raw GameType header value for free-for-all
const GameTypeFFA = "FFA"

var scoresRegex = regexp.MustCompile(`^\s*R:(\d+)\s+B:(\d+)`)

// Server is one immutable status snapshot
type Server struct {
	settings Settings
	players  []Player
}

// NewServer builds a snapshot from parsed settings and roster. The roster
// is copied and sorted best player first.
func NewServer(settings Settings, players []Player) *Server {
	roster := slices.Clone(players)
	slices.SortStableFunc(roster, func(a, b Player) int {
		return Compare(b, a)
	})
	return &Server{
		settings: settings.clone(),
		players:  roster,
	}
}

// Settings returns the header settings in reply order
func (s *Server) Settings() []Setting {
	return s.settings.All()
}

// Setting returns a single header value
func (s *Server) Setting(key string) (string, bool) {
	return s.settings.Get(key)
}

// Players returns the roster, best player first
func (s *Server) Players() []Player {
	return slices.Clone(s.players)
}

// MapName returns the Map header
func (s *Server) MapName() string {
	v, _ := s.settings.Get(KeyMap)
	return v
}

// PlayerCount returns the declared Players header, 0 when absent or not
// a number.
func (s *Server) PlayerCount() int {
	n, _ := s.DeclaredPlayers()
	return n
}

// DeclaredPlayers parses the Players header. An absent header counts as 0.
func (s *Server) DeclaredPlayers() (int, error) {
	v, ok := s.settings.Get(KeyPlayers)
	if !ok {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// GameType returns the raw GameType header
func (s *Server) GameType() string {
	v, _ := s.settings.Get(KeyGameType)
	return v
}

// DisplayGameType returns the game type for presentation. The server
// reports gun game as FFA.
func (s *Server) DisplayGameType() string {
	gt := s.GameType()
	if gt == GameTypeFFA {
		return "Gun Game/FFA"
	}
	return gt
}

// Scores returns the raw "R:<n> B:<m>" header
func (s *Server) Scores() (string, bool) {
	return s.settings.Get(KeyScores)
}

// ScoreRed returns the red team score from the Scores header
func (s *Server) ScoreRed() (string, bool) {
	red, _, ok := s.teamScores()
	return red, ok
}

// ScoreBlue returns the blue team score from the Scores header
func (s *Server) ScoreBlue() (string, bool) {
	_, blue, ok := s.teamScores()
	return blue, ok
}

func (s *Server) teamScores() (string, string, bool) {
	scores, ok := s.Scores()
	if !ok || scores == "" {
		return "", "", false
	}
	m := scoresRegex.FindStringSubmatch(scores)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// GameTime returns the GameTime header or ErrMissingGameTime
func (s *Server) GameTime() (string, error) {
	v, ok := s.settings.Get(KeyGameTime)
	if !ok {
		return "", ErrMissingGameTime
	}
	return v, nil
}

// Team returns the roster members with the given tag, in roster order
func (s *Server) Team(team Team) []Player {
	var out []Player
	for _, p := range s.players {
		if p.Team == team {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) TeamRed() []Player    { return s.Team(TeamRed) }
func (s *Server) TeamBlue() []Player   { return s.Team(TeamBlue) }
func (s *Server) TeamFree() []Player   { return s.Team(TeamFree) }
func (s *Server) Spectators() []Player { return s.Team(TeamSpectator) }

// ServerStatus is the JSON form of a snapshot
type ServerStatus struct {
	Map             string    `json:"map"`
	GameType        string    `json:"game_type"`
	DisplayGameType string    `json:"display_game_type"`
	PlayerCount     int       `json:"player_count"`
	ScoreRed        *string   `json:"score_red,omitempty"`
	ScoreBlue       *string   `json:"score_blue,omitempty"`
	GameTime        string    `json:"game_time,omitempty"`
	Settings        []Setting `json:"settings"`
	Players         []Player  `json:"players"`
}

// Status returns the JSON view of the snapshot
func (s *Server) Status() ServerStatus {
	st := ServerStatus{
		Map:             s.MapName(),
		GameType:        s.GameType(),
		DisplayGameType: s.DisplayGameType(),
		PlayerCount:     s.PlayerCount(),
		Settings:        s.Settings(),
		Players:         s.Players(),
	}
	if red, blue, ok := s.teamScores(); ok {
		st.ScoreRed = &red
		st.ScoreBlue = &blue
	}
	st.GameTime, _ = s.GameTime()
	if st.Players == nil {
		st.Players = []Player{}
	}
	return st
}

// MarshalJSON implements json.Marshaler
func (s *Server) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Status())
}
