package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ernie/bot30/internal/domain"
	"github.com/ernie/bot30/internal/mapcycle"
)

// Embed colors
const (
	ColorDarkRed  = 0x992D22
	ColorDarkBlue = 0x206694
)

// Default embed titles. Syncer finds existing messages by title.
const (
	TitleCurrentMap = "Current Map"
	TitleMapCycle   = "Map Cycle"
)

const (
	maxFieldValue  = 1024
	maxDescription = 4096
	emptySide      = "..."
)

func lastUpdated(now time.Time) string {
	return "Last Updated: " + now.UTC().Format("2006-01-02 15:04 MST")
}

// CurrentMapEmbed renders a poll result. A nil server or a non-nil
// queryErr renders the server as not responding.
func CurrentMapEmbed(title string, srv *domain.Server, queryErr error, now time.Time) *discordgo.MessageEmbed {
	if title == "" {
		title = TitleCurrentMap
	}
	embed := &discordgo.MessageEmbed{
		Title:  title,
		Color:  ColorDarkRed,
		Footer: &discordgo.MessageEmbedFooter{Text: lastUpdated(now)},
	}

	if queryErr != nil || srv == nil {
		embed.Description = "*Server not responding*"
		return embed
	}

	embed.Description = srv.MapName()
	if srv.PlayerCount() == 0 && len(srv.Players()) == 0 {
		embed.Description += "\n\n*No players online*"
		return embed
	}

	gameTime, err := srv.GameTime()
	if err != nil {
		gameTime = "?"
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Game Time / Player Count",
		Value: fmt.Sprintf("%s / %d", gameTime, srv.PlayerCount()),
	})
	embed.Fields = append(embed.Fields, playerFields(srv)...)
	return embed
}

func playerFields(srv *domain.Server) []*discordgo.MessageEmbedField {
	var fields []*discordgo.MessageEmbedField

	red, blue := srv.TeamRed(), srv.TeamBlue()
	if len(red) > 0 || len(blue) > 0 {
		fields = append(fields,
			&discordgo.MessageEmbedField{
				Name:   teamTitle("Red", srv.ScoreRed),
				Value:  scoreLines(red),
				Inline: true,
			},
			&discordgo.MessageEmbedField{
				Name:   teamTitle("Blue", srv.ScoreBlue),
				Value:  scoreLines(blue),
				Inline: true,
			},
		)
	} else if free := srv.TeamFree(); len(free) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Players",
			Value: scoreLines(free),
		})
	}

	if spec := srv.Spectators(); len(spec) > 0 {
		names := make([]string, len(spec))
		for i, p := range spec {
			names[i] = p.Name
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Spec",
			Value: joinLimit(names, maxFieldValue),
		})
	}
	return fields
}

func teamTitle(name string, score func() (string, bool)) string {
	if s, ok := score(); ok {
		return fmt.Sprintf("%s (%s)", name, s)
	}
	return name
}

func scoreLines(players []domain.Player) string {
	if len(players) == 0 {
		return emptySide
	}
	lines := make([]string, len(players))
	for i, p := range players {
		lines[i] = fmt.Sprintf("%s (%d/%d/%d)", p.Name, p.Score.Kills, p.Score.Deaths, p.Score.Assists)
	}
	return joinLimit(lines, maxFieldValue)
}

// joinLimit joins lines with newlines, dropping trailing lines that would
// push the result past max.
func joinLimit(lines []string, max int) string {
	var b strings.Builder
	for i, line := range lines {
		n := len(line)
		if i > 0 {
			n++
		}
		if b.Len()+n > max {
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

// MapCycleEmbed lists the cycle in order with each map's mode label
func MapCycleEmbed(title string, cycle mapcycle.Cycle, now time.Time) *discordgo.MessageEmbed {
	if title == "" {
		title = TitleMapCycle
	}
	lines := make([]string, len(cycle))
	for i, m := range cycle {
		lines[i] = strings.TrimSpace(mapcycle.DisplayName(m.Name) + " " + mapcycle.Mode(m.Options))
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: joinLimit(lines, maxDescription),
		Color:       ColorDarkBlue,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Total Maps: %d\n%s", len(cycle), lastUpdated(now)),
		},
	}
}
