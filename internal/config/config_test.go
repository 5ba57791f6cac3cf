package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
bot:
  token: "from-file"
admin:
  ids: [1, 2]
approvers:
  ids: [2, 3]
channels:
  board: -1001
  notification: -1002
  image: -1003
board:
  source: sheet
  tiles_csv_url: "https://example.com/tiles.csv"
  teams_csv_url: "https://example.com/teams.csv"
game:
  max_roll: 6
  choice_timeout: 2m
`

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeYAML(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Bot.Token)
	assert.Equal(t, SourceSheet, cfg.Board.Source)
	assert.Equal(t, 6, cfg.Game.MaxRoll)
	assert.Equal(t, 2*time.Minute, cfg.Game.ChoiceTimeout)
	assert.Equal(t, 30*time.Second, cfg.Game.LockTimeout)
	assert.InDelta(t, 0.05, cfg.Game.BonusChance, 1e-9)
	assert.Equal(t, 2, cfg.Render.Retries)
	assert.Equal(t, ":8080", cfg.Status.Addr)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, int64(-1003), cfg.Channels.Image)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GAME_MAX_ROLL", "4")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeYAML(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Game.MaxRoll)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Bot:      BotConfig{Token: "t"},
			Board:    BoardConfig{Source: SourceFile, Path: "game-config.json"},
			Channels: ChannelsConfig{Board: -1, Notification: -2},
			Game:     GameConfig{MaxRoll: 3},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing token", func(c *Config) { c.Bot.Token = "" }, false},
		{"unknown source", func(c *Config) { c.Board.Source = "ftp" }, false},
		{"sheet without urls", func(c *Config) { c.Board.Source = SourceSheet }, false},
		{"missing board chat", func(c *Config) { c.Channels.Board = 0 }, false},
		{"zero max roll", func(c *Config) { c.Game.MaxRoll = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestApproverIDs(t *testing.T) {
	cfg := &Config{
		Admin:     AdminConfig{IDs: []int64{1, 2}},
		Approvers: ApproversConfig{IDs: []int64{2, 3}},
	}
	assert.Equal(t, []int64{1, 2, 3}, cfg.ApproverIDs())
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
}

func TestIsGameChat(t *testing.T) {
	cfg := &Config{Channels: ChannelsConfig{Board: -1, Notification: -2}}
	assert.True(t, cfg.IsGameChat(-1))
	assert.True(t, cfg.IsGameChat(-2))
	assert.False(t, cfg.IsGameChat(0))
	assert.False(t, cfg.IsGameChat(-9))
}

func TestSecrets(t *testing.T) {
	t.Setenv("BOT_TOKEN", "secret-token")
	t.Setenv("SHEET_CSV_URL", "https://sheets/tiles")
	t.Setenv("SHEET_TEAMS_CSV_URL", "")

	s, err := LoadSecrets()
	require.NoError(t, err)

	cfg := &Config{Board: BoardConfig{TeamsCSVURL: "https://sheets/teams"}}
	s.Apply(cfg)

	assert.Equal(t, "secret-token", cfg.Bot.Token)
	assert.Equal(t, "https://sheets/tiles", cfg.Board.TilesCSVURL)
	assert.Equal(t, "https://sheets/teams", cfg.Board.TeamsCSVURL)
}
