package service

import (
	"context"

	"tile-race-bot/internal/model"
)

// ChannelKind names a logical output channel of the game.
type ChannelKind string

// Channels the game publishes to.
const (
	ChannelBoard        ChannelKind = "board"        // board image, replaced on every refresh
	ChannelNotification ChannelKind = "notification" // announcements and fork prompts
	ChannelImage        ChannelKind = "image"        // proof uploads
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Name string
	Data []byte
}

// Choice is one button offered under a message.
type Choice struct {
	Label string
	Data  string
}

// Message is a channel-agnostic outgoing message.
type Message struct {
	Text    string
	File    *Attachment
	Choices []Choice
}

// Notifier publishes messages to the game's channels.
type Notifier interface {
	Publish(ctx context.Context, kind ChannelKind, msg Message) error
}

// Renderer draws the board. Implementations must not mutate their inputs.
type Renderer interface {
	Render(tiles map[string]model.Tile, cfg model.BoardConfig, teams []model.Team) ([]byte, error)
	RenderGrid(tiles map[string]model.Tile, cfg model.BoardConfig) ([]byte, error)
}

// Journal records committed moves.
type Journal interface {
	Record(ctx context.Context, m *model.Move) error
	Recent(ctx context.Context, team string, limit int) ([]*model.Move, error)
}

// DatasetProvider loads board, tile and team data.
type DatasetProvider interface {
	Load(ctx context.Context) (*model.Dataset, error)
}
