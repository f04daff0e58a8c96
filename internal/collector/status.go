package collector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ernie/bot30/internal/domain"
)

// playerLineRegex matches one roster line of the rcon players reply:
//
//	0:foo^7 TEAM:RED KILLS:20 DEATHS:22 ASSISTS:3 PING:98 AUTH:foo IP:127.0.0.1:27960
//
// name, auth and ip may contain spaces; each runs greedily up to the next
// keyword.
var playerLineRegex = regexp.MustCompile(`(?i)^(?P<slot>[0-9]+):(?P<name>.*)\s+` +
	`TEAM:(?P<team>RED|BLUE|SPECTATOR|FREE)\s+` +
	`KILLS:(?P<kills>-?[0-9]+)\s+` +
	`DEATHS:(?P<deaths>[0-9]+)\s+` +
	`ASSISTS:(?P<assists>[0-9]+)\s+` +
	`PING:(?P<ping>[0-9]+|CNCT|ZMBI)\s+` +
	`AUTH:(?P<auth>.*)\s+` +
	`IP:(?P<ip>.*)$`)

var (
	slotGroup    = playerLineRegex.SubexpIndex("slot")
	nameGroup    = playerLineRegex.SubexpIndex("name")
	teamGroup    = playerLineRegex.SubexpIndex("team")
	killsGroup   = playerLineRegex.SubexpIndex("kills")
	deathsGroup  = playerLineRegex.SubexpIndex("deaths")
	assistsGroup = playerLineRegex.SubexpIndex("assists")
	pingGroup    = playerLineRegex.SubexpIndex("ping")
	authGroup    = playerLineRegex.SubexpIndex("auth")
	ipGroup      = playerLineRegex.SubexpIndex("ip")
)

// ParsePlayerLine parses a single roster line. Color codes are removed
// from the name only.
func ParsePlayerLine(line string) (domain.Player, error) {
	line = strings.TrimSpace(line)
	m := playerLineRegex.FindStringSubmatch(line)
	if m == nil {
		return domain.Player{}, &domain.InvalidPlayerLineError{Line: line}
	}

	var (
		p   domain.Player
		err error
	)
	if p.Slot, err = strconv.Atoi(m[slotGroup]); err != nil {
		return domain.Player{}, &domain.InvalidPlayerLineError{Line: line}
	}
	if p.Score.Kills, err = strconv.Atoi(m[killsGroup]); err != nil {
		return domain.Player{}, &domain.InvalidPlayerLineError{Line: line}
	}
	if p.Score.Deaths, err = strconv.Atoi(m[deathsGroup]); err != nil {
		return domain.Player{}, &domain.InvalidPlayerLineError{Line: line}
	}
	if p.Score.Assists, err = strconv.Atoi(m[assistsGroup]); err != nil {
		return domain.Player{}, &domain.InvalidPlayerLineError{Line: line}
	}

	switch ping := strings.ToUpper(m[pingGroup]); ping {
	case "CNCT", "ZMBI":
		p.Ping = domain.PingConnecting
	default:
		if p.Ping, err = strconv.Atoi(ping); err != nil {
			return domain.Player{}, &domain.InvalidPlayerLineError{Line: line}
		}
	}

	p.Name = domain.CleanQ3Name(m[nameGroup])
	p.Team = domain.Team(strings.ToUpper(m[teamGroup]))
	p.Auth = m[authGroup]
	p.IPAddress = m[ipGroup]
	return p, nil
}

// ParseStatus parses the text reply of the rcon players command.
//
// Header lines are "Key: value" pairs up to and including GameTime; the
// lines after it with a numeric key are players. A Map line after the
// header means a second reply was concatenated onto the first, and
// parsing starts over with it.
func ParseStatus(data string) (*domain.Server, error) {
	var (
		settings domain.Settings
		players  []domain.Player
		inHeader = true
	)

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		if inHeader {
			settings.Set(key, strings.TrimSpace(value))
			if key == domain.KeyGameTime {
				inHeader = false
			}
			continue
		}

		switch {
		case isNumeric(key):
			p, err := ParsePlayerLine(line)
			if err != nil {
				return nil, err
			}
			players = append(players, p)
		case key == domain.KeyMap:
			settings = domain.Settings{}
			players = nil
			settings.Set(key, strings.TrimSpace(value))
			inHeader = true
		}
	}

	srv := domain.NewServer(settings, players)

	declared, err := srv.DeclaredPlayers()
	if err != nil {
		return nil, &domain.ParseError{
			Reason: fmt.Sprintf("invalid player count %q", settingValue(srv, domain.KeyPlayers)),
			Raw:    data,
		}
	}
	if declared != len(players) {
		return nil, &domain.ParseError{
			Reason: fmt.Sprintf("player count %d does not match players %d", declared, len(players)),
			Raw:    data,
		}
	}
	if srv.MapName() == "" {
		return nil, &domain.ParseError{Reason: "map name not set", Raw: data}
	}

	return srv, nil
}

func settingValue(srv *domain.Server, key string) string {
	v, _ := srv.Setting(key)
	return v
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
