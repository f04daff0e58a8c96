package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	GameServer GameServerConfig `yaml:"game_server"`
	Discord    DiscordConfig    `yaml:"discord"`
	MapCycle   MapCycleConfig   `yaml:"mapcycle"`
	Updater    UpdaterConfig    `yaml:"updater"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
}

// GameServerConfig is the Quake 3 server polled over rcon
type GameServerConfig struct {
	Name         string        `yaml:"name"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	RconPassword string        `yaml:"rcon_password"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
}

// DiscordConfig holds bot credentials and where embeds are kept
type DiscordConfig struct {
	Token           string        `yaml:"token"`
	BotUser         string        `yaml:"bot_user"`
	Guild           string        `yaml:"guild"`
	Channel         string        `yaml:"channel"`
	CurrentMapTitle string        `yaml:"current_map_title"`
	MapCycleTitle   string        `yaml:"mapcycle_title"`
	HistoryLimit    int           `yaml:"history_limit"`
	EditInterval    time.Duration `yaml:"edit_interval"`
}

// MapCycleConfig points at the server's map cycle file
type MapCycleConfig struct {
	File string `yaml:"file"`
}

// UpdaterConfig controls the poll loop
type UpdaterConfig struct {
	UpdateDelay  time.Duration `yaml:"update_delay"`
	MaxRunTime   time.Duration `yaml:"max_run_time"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DatabaseConfig holds SQLite settings. An empty path disables storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// NATSConfig holds the optional NATS publisher settings. An empty URL
// disables publishing.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPPort   int    `yaml:"http_port"`
}

// AuthConfig holds API token settings
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

// Load reads configuration from a YAML file, applies environment
// overrides and fills defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.GameServer.Name == "" {
		cfg.GameServer.Name = "default"
	}
	if cfg.GameServer.Host == "" {
		cfg.GameServer.Host = "127.0.0.1"
	}
	if cfg.GameServer.Port == 0 {
		cfg.GameServer.Port = 27960
	}
	if cfg.GameServer.Timeout == 0 {
		cfg.GameServer.Timeout = 750 * time.Millisecond
	}
	if cfg.GameServer.Retries == 0 {
		cfg.GameServer.Retries = 3
	}
	if cfg.Discord.CurrentMapTitle == "" {
		cfg.Discord.CurrentMapTitle = "Current Map"
	}
	if cfg.Discord.MapCycleTitle == "" {
		cfg.Discord.MapCycleTitle = "Map Cycle"
	}
	if cfg.Discord.HistoryLimit == 0 {
		cfg.Discord.HistoryLimit = 10
	}
	if cfg.Discord.EditInterval == 0 {
		cfg.Discord.EditInterval = 5 * time.Second
	}
	if cfg.Updater.UpdateDelay == 0 {
		cfg.Updater.UpdateDelay = 5 * time.Second
	}
	if cfg.Updater.MaxRunTime == 0 {
		cfg.Updater.MaxRunTime = 60 * time.Second
	}
	if cfg.Updater.PollInterval == 0 {
		cfg.Updater.PollInterval = 30 * time.Second
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "bot30"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Auth.TokenDuration == 0 {
		cfg.Auth.TokenDuration = 24 * time.Hour
	}
}

// applyEnv overrides file values with the environment variables used by
// existing deployments.
func (cfg *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &cfg.LogLevel)
	str("BOT_TOKEN", &cfg.Discord.Token)
	str("BOT_USER", &cfg.Discord.BotUser)
	str("BOT_SERVER_NAME", &cfg.Discord.Guild)
	str("CHANNEL_NAME_MAPCYCLE", &cfg.Discord.Channel)
	str("CURRENT_MAP_EMBED_TITLE", &cfg.Discord.CurrentMapTitle)
	str("MAPCYCLE_EMBED_TITLE", &cfg.Discord.MapCycleTitle)
	str("MAPCYCLE_FILE", &cfg.MapCycle.File)
	str("GAME_SERVER_IP", &cfg.GameServer.Host)
	str("GAME_SERVER_RCON_PASS", &cfg.GameServer.RconPassword)
	str("BOT30_DATABASE", &cfg.Database.Path)
	str("NATS_URL", &cfg.NATS.URL)
	str("BOT30_JWT_SECRET", &cfg.Auth.JWTSecret)

	if v, ok := lookup("GAME_SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing GAME_SERVER_PORT: %w", err)
		}
		cfg.GameServer.Port = port
	}
	// Both durations are fractional seconds in the environment
	if v, ok := lookup("CURRENT_MAP_UPDATE_DELAY"); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("parsing CURRENT_MAP_UPDATE_DELAY: %w", err)
		}
		cfg.Updater.UpdateDelay = d
	}
	if v, ok := lookup("BOT_MAX_RUN_TIME"); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("parsing BOT_MAX_RUN_TIME: %w", err)
		}
		cfg.Updater.MaxRunTime = d
	}
	return nil
}

func parseSeconds(v string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
