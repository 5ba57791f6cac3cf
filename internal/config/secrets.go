package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Secrets are values that should only come from the environment.
type Secrets struct {
	BotToken         string `env:"BOT_TOKEN"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	SheetCSVURL      string `env:"SHEET_CSV_URL"`
	SheetTeamsCSVURL string `env:"SHEET_TEAMS_CSV_URL"`
}

// LoadSecrets reads secrets from the environment.
func LoadSecrets() (Secrets, error) {
	s, err := env.ParseAs[Secrets]()
	if err != nil {
		return Secrets{}, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return s, nil
}

// Apply overlays the non-empty secrets onto cfg.
func (s Secrets) Apply(cfg *Config) {
	if s.BotToken != "" {
		cfg.Bot.Token = s.BotToken
	}
	if s.DatabasePassword != "" {
		cfg.Database.Password = s.DatabasePassword
	}
	if s.SheetCSVURL != "" {
		cfg.Board.TilesCSVURL = s.SheetCSVURL
	}
	if s.SheetTeamsCSVURL != "" {
		cfg.Board.TeamsCSVURL = s.SheetTeamsCSVURL
	}
}
