// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Board sources.
const (
	SourceFile  = "file"
	SourceSheet = "sheet"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Approvers ApproversConfig `mapstructure:"approvers"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Board     BoardConfig     `mapstructure:"board"`
	Game      GameConfig      `mapstructure:"game"`
	Render    RenderConfig    `mapstructure:"render"`
	Status    StatusConfig    `mapstructure:"status"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration. The database
// only stores the move journal and is optional.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// ApproversConfig lists users allowed to approve or decline drops.
// Admins are always approvers.
type ApproversConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// ChannelsConfig maps the game's output channels to chat IDs.
type ChannelsConfig struct {
	Board        int64 `mapstructure:"board"`
	Notification int64 `mapstructure:"notification"`
	Image        int64 `mapstructure:"image"`
}

// BoardConfig selects where tiles and teams are loaded from.
type BoardConfig struct {
	Source      string        `mapstructure:"source"`
	Path        string        `mapstructure:"path"`
	TilesCSVURL string        `mapstructure:"tiles_csv_url"`
	TeamsCSVURL string        `mapstructure:"teams_csv_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// GameConfig holds turn rules.
type GameConfig struct {
	MaxRoll       int           `mapstructure:"max_roll"`
	BonusChance   float64       `mapstructure:"bonus_chance"`
	BonusValue    int           `mapstructure:"bonus_value"`
	ChoiceTimeout time.Duration `mapstructure:"choice_timeout"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
}

// RenderConfig holds board image settings.
type RenderConfig struct {
	AssetsDir string `mapstructure:"assets_dir"`
	Retries   int    `mapstructure:"retries"`
}

// StatusConfig holds the HTTP status server configuration.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, GAME_MAX_ROLL, CHANNELS_BOARD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tilerace")
	v.SetDefault("database.name", "tilerace")
	v.SetDefault("database.pool_size", 4)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("board.source", SourceFile)
	v.SetDefault("board.path", "game-config.json")
	v.SetDefault("board.timeout", "30s")

	v.SetDefault("game.max_roll", 3)
	v.SetDefault("game.bonus_chance", 0.05)
	v.SetDefault("game.bonus_value", 0)
	v.SetDefault("game.choice_timeout", "10m")
	v.SetDefault("game.lock_timeout", "30s")

	v.SetDefault("render.assets_dir", "images")
	v.SetDefault("render.retries", 2)

	v.SetDefault("status.enabled", false)
	v.SetDefault("status.addr", ":8080")

	v.SetDefault("log.level", "info")
}

// Validate reports configuration that would keep the bot from starting.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	switch c.Board.Source {
	case SourceFile:
		if c.Board.Path == "" {
			return fmt.Errorf("board.path is required for the file source")
		}
	case SourceSheet:
		if c.Board.TilesCSVURL == "" || c.Board.TeamsCSVURL == "" {
			return fmt.Errorf("board.tiles_csv_url and board.teams_csv_url are required for the sheet source")
		}
	default:
		return fmt.Errorf("unknown board source %q", c.Board.Source)
	}
	if c.Channels.Board == 0 || c.Channels.Notification == 0 {
		return fmt.Errorf("channels.board and channels.notification are required")
	}
	if c.Game.MaxRoll < 1 {
		return fmt.Errorf("game.max_roll must be at least 1")
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// ApproverIDs returns admins and approvers without duplicates.
func (c *Config) ApproverIDs() []int64 {
	ids := slices.Clone(c.Admin.IDs)
	for _, id := range c.Approvers.IDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsGameChat checks if a chat ID is one of the configured game channels.
func (c *Config) IsGameChat(chatID int64) bool {
	return chatID != 0 &&
		(chatID == c.Channels.Board || chatID == c.Channels.Notification || chatID == c.Channels.Image)
}
