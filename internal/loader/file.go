package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"tile-race-bot/internal/model"
)

// DefaultConfigPath is the game config file read when no path is configured.
const DefaultConfigPath = "game-config.json"

// gameConfig is the on-disk layout of game-config.json. Older files name
// the board block "board-config".
type gameConfig struct {
	Board       *rawBoard          `json:"board"`
	BoardConfig *rawBoard          `json:"board-config"`
	Tiles       map[string]rawTile `json:"tiles"`
	Teams       map[string]rawTeam `json:"teams"`
}

// FileProvider loads the dataset from a JSON game config file.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a new FileProvider instance.
func NewFileProvider(path string) *FileProvider {
	if path == "" {
		path = DefaultConfigPath
	}
	return &FileProvider{Path: path}
}

// Load reads and validates the game config file.
func (p *FileProvider) Load(_ context.Context) (*model.Dataset, error) {
	gc, err := readGameConfig(p.Path)
	if err != nil {
		return nil, err
	}

	cfg := model.DefaultBoardConfig()
	gc.BoardConfig.apply(&cfg)
	gc.Board.apply(&cfg)

	ds, err := normalize(cfg, gc.Tiles, gc.Teams)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", p.Path, err)
	}

	log.Info().
		Str("path", p.Path).
		Int("tiles", len(ds.Tiles)).
		Int("teams", len(ds.Teams)).
		Msg("Game config loaded")

	return ds, nil
}

func readGameConfig(path string) (*gameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}
	var gc gameConfig
	if err := json.Unmarshal(data, &gc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &gc, nil
}

// boardFromFile merges the board block of the game config file into cfg.
// A missing or unreadable file leaves cfg unchanged.
func boardFromFile(path string, cfg model.BoardConfig) model.BoardConfig {
	if path == "" {
		return cfg
	}
	if _, err := os.Stat(path); err != nil {
		return cfg
	}
	gc, err := readGameConfig(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Couldn't read board config")
		return cfg
	}
	gc.BoardConfig.apply(&cfg)
	gc.Board.apply(&cfg)
	return cfg
}
