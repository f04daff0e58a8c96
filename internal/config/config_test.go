package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"LOG_LEVEL", "BOT_TOKEN", "BOT_USER", "BOT_SERVER_NAME", "CHANNEL_NAME_MAPCYCLE",
		"CURRENT_MAP_EMBED_TITLE", "MAPCYCLE_EMBED_TITLE", "MAPCYCLE_FILE", "GAME_SERVER_IP",
		"GAME_SERVER_PORT", "GAME_SERVER_RCON_PASS", "BOT30_DATABASE", "NATS_URL",
		"BOT30_JWT_SECRET", "CURRENT_MAP_UPDATE_DELAY", "BOT_MAX_RUN_TIME",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.GameServer.Host)
	require.Equal(t, 27960, cfg.GameServer.Port)
	require.Equal(t, 750*time.Millisecond, cfg.GameServer.Timeout)
	require.Equal(t, 3, cfg.GameServer.Retries)
	require.Equal(t, 5*time.Second, cfg.Updater.UpdateDelay)
	require.Equal(t, 60*time.Second, cfg.Updater.MaxRunTime)
	require.Equal(t, "Current Map", cfg.Discord.CurrentMapTitle)
	require.Equal(t, "Map Cycle", cfg.Discord.MapCycleTitle)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenDuration)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log_level: debug
game_server:
  name: public
  host: 10.0.0.5
  port: 27961
  rcon_password: hunter2
  timeout: 1s
  retries: 5
discord:
  guild: Bot30
  channel: servers
updater:
  update_delay: 2500ms
database:
  path: /tmp/bot30.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, GameServerConfig{
		Name:         "public",
		Host:         "10.0.0.5",
		Port:         27961,
		RconPassword: "hunter2",
		Timeout:      time.Second,
		Retries:      5,
	}, cfg.GameServer)
	require.Equal(t, "servers", cfg.Discord.Channel)
	require.Equal(t, 2500*time.Millisecond, cfg.Updater.UpdateDelay)
	require.Equal(t, "/tmp/bot30.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "game_server: [unclosed"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BOT_TOKEN":                "token",
		"GAME_SERVER_IP":           "192.168.1.2",
		"GAME_SERVER_PORT":         "27970",
		"GAME_SERVER_RCON_PASS":    "secret",
		"CURRENT_MAP_UPDATE_DELAY": "2.5",
		"BOT_MAX_RUN_TIME":         "30",
		"CHANNEL_NAME_MAPCYCLE":    "maps",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	var cfg Config
	require.NoError(t, cfg.applyEnv(lookup))
	require.Equal(t, "token", cfg.Discord.Token)
	require.Equal(t, "192.168.1.2", cfg.GameServer.Host)
	require.Equal(t, 27970, cfg.GameServer.Port)
	require.Equal(t, "secret", cfg.GameServer.RconPassword)
	require.Equal(t, 2500*time.Millisecond, cfg.Updater.UpdateDelay)
	require.Equal(t, 30*time.Second, cfg.Updater.MaxRunTime)
	require.Equal(t, "maps", cfg.Discord.Channel)
}

func TestApplyEnvInvalid(t *testing.T) {
	var cfg Config
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "GAME_SERVER_PORT" {
			return "not-a-port", true
		}
		return "", false
	})
	require.Error(t, err)
}
