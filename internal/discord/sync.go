// Package discord keeps bot30's status embeds up to date in a Discord
// channel.
package discord

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ernie/bot30/internal/storage"
)

var (
	ErrGuildNotFound   = errors.New("discord: guild not found")
	ErrChannelNotFound = errors.New("discord: channel not found")
)

// Session is the subset of *discordgo.Session the syncer uses
type Session interface {
	UserGuilds(limit int, beforeID, afterID string, withCounts bool, options ...discordgo.RequestOption) ([]*discordgo.UserGuild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Ledger remembers which message holds each embed and what it last
// showed. *storage.Store satisfies it.
type Ledger interface {
	GetPublished(ctx context.Context, channel, title string) (*storage.Published, error)
	SetPublished(ctx context.Context, p storage.Published) error
}

// Action is what Sync did with an embed
type Action int

const (
	ActionSkipped Action = iota
	ActionEdited
	ActionSent
)

func (a Action) String() string {
	switch a {
	case ActionSkipped:
		return "skipped"
	case ActionEdited:
		return "edited"
	case ActionSent:
		return "sent"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// SyncerConfig holds the channel lookup settings
type SyncerConfig struct {
	Guild   string
	Channel string
	// BotUser is "name#discriminator" or a bare username. Empty matches
	// any bot author.
	BotUser      string
	HistoryLimit int
	EditInterval time.Duration
}

// Syncer sends or edits one message per embed title
type Syncer struct {
	session Session
	ledger  Ledger
	cfg     SyncerConfig
	limiter *rate.Limiter
	logger  *zap.Logger

	channelID string
}

// NewSyncer creates a syncer. ledger may be nil, in which case every Sync
// writes to Discord.
func NewSyncer(session Session, ledger Ledger, cfg SyncerConfig, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	limit := rate.Inf
	if cfg.EditInterval > 0 {
		limit = rate.Every(cfg.EditInterval)
	}
	return &Syncer{
		session: session,
		ledger:  ledger,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Sync publishes embed. The bot's most recent message in the channel
// carrying the same title is edited; if none exists a new message is
// sent. Nothing is written when the content matches what was last
// published.
func (s *Syncer) Sync(ctx context.Context, embed *discordgo.MessageEmbed) (Action, error) {
	channelID, err := s.resolveChannel()
	if err != nil {
		return ActionSkipped, err
	}

	digest, err := Digest(embed)
	if err != nil {
		return ActionSkipped, err
	}

	log := s.logger.With(zap.String("title", embed.Title), zap.String("channel", s.cfg.Channel))

	if s.ledger != nil {
		prev, err := s.ledger.GetPublished(ctx, s.cfg.Channel, embed.Title)
		switch {
		case err == nil && prev.Digest == digest:
			log.Debug("embed unchanged", zap.String("message_id", prev.MessageID))
			return ActionSkipped, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			log.Warn("failed to read publish ledger", zap.Error(err))
		}
	}

	existing, err := s.findMessage(channelID, embed.Title)
	if err != nil {
		return ActionSkipped, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return ActionSkipped, err
	}

	var (
		msg    *discordgo.Message
		action Action
	)
	if existing != nil {
		log.Info("updating existing message", zap.String("message_id", existing.ID))
		msg, err = s.session.ChannelMessageEditEmbed(channelID, existing.ID, embed)
		action = ActionEdited
	} else {
		log.Info("sending new message")
		msg, err = s.session.ChannelMessageSendEmbed(channelID, embed)
		action = ActionSent
	}
	if err != nil {
		return ActionSkipped, fmt.Errorf("%s %q embed: %w", action, embed.Title, err)
	}

	if s.ledger != nil {
		rec := storage.Published{
			Channel:   s.cfg.Channel,
			Title:     embed.Title,
			MessageID: msg.ID,
			Digest:    digest,
			UpdatedAt: time.Now(),
		}
		if err := s.ledger.SetPublished(ctx, rec); err != nil {
			log.Warn("failed to record published message", zap.Error(err))
		}
	}
	return action, nil
}

func (s *Syncer) resolveChannel() (string, error) {
	if s.channelID != "" {
		return s.channelID, nil
	}

	guilds, err := s.session.UserGuilds(100, "", "", false)
	if err != nil {
		return "", fmt.Errorf("listing guilds: %w", err)
	}
	var guildID string
	for _, g := range guilds {
		if g.Name == s.cfg.Guild {
			guildID = g.ID
			break
		}
	}
	if guildID == "" {
		return "", fmt.Errorf("%w: %q", ErrGuildNotFound, s.cfg.Guild)
	}

	channels, err := s.session.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("listing channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Name == s.cfg.Channel && ch.Type == discordgo.ChannelTypeGuildText {
			s.channelID = ch.ID
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrChannelNotFound, s.cfg.Channel)
}

// findMessage returns the newest message by the bot with an embed titled
// title among the last HistoryLimit messages, or nil.
func (s *Syncer) findMessage(channelID, title string) (*discordgo.Message, error) {
	messages, err := s.session.ChannelMessages(channelID, s.cfg.HistoryLimit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("reading channel history: %w", err)
	}
	for _, m := range messages {
		if !s.isBot(m.Author) {
			continue
		}
		for _, e := range m.Embeds {
			if e != nil && e.Title == title {
				return m, nil
			}
		}
	}
	return nil, nil
}

func (s *Syncer) isBot(u *discordgo.User) bool {
	if u == nil || !u.Bot {
		return false
	}
	if s.cfg.BotUser == "" {
		return true
	}
	name, disc, hasDisc := strings.Cut(s.cfg.BotUser, "#")
	if u.Username != name {
		return false
	}
	return !hasDisc || u.Discriminator == disc
}

// Digest hashes the parts of an embed that matter to readers. The footer
// and timestamp change on every render and are left out.
func Digest(embed *discordgo.MessageEmbed) (string, error) {
	c := *embed
	c.Footer = nil
	c.Timestamp = ""
	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("encoding embed: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
