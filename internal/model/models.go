// Package model defines the data models for the tile race bot.
package model

import (
	"slices"
	"strings"
	"time"
)

// EndTileName is the display name that marks the final tile of a board.
const EndTileName = "END"

// Tile is one board position. Tiles are immutable once a board is built.
type Tile struct {
	ID          string
	Name        string
	Description string
	Picture     string
	Row         int
	Col         int
	Next        []string
	MustHit     bool
	Points      int
	End         bool
}

// IsEnd reports whether reaching this tile finishes the board.
func (t Tile) IsEnd() bool {
	return t.End || strings.EqualFold(strings.TrimSpace(t.Name), EndTileName)
}

// DisplayName returns the tile name, falling back to its ID.
func (t Tile) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// BoardConfig holds board-wide settings consumed by the renderer.
type BoardConfig struct {
	TileSize   int
	PlayerSize int
	Width      int
	Height     int
}

// DefaultBoardConfig returns the settings used when the game config omits them.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		TileSize:   100,
		PlayerSize: 40,
		Width:      1920,
		Height:     1080,
	}
}

// ForkOption is one destination offered to a team at a fork.
type ForkOption struct {
	Key    string // "A".."F"
	Symbol string // regional indicator shown on the button
	Tile   string
}

// PendingChoice is the AwaitingChoice sub-state of a team.
type PendingChoice struct {
	PromptID  string
	Action    string
	Origin    string
	Roll      int
	Options   []ForkOption
	CreatedAt time.Time
}

// Option returns the fork option for key.
func (p *PendingChoice) Option(key string) (ForkOption, bool) {
	for _, o := range p.Options {
		if o.Key == key {
			return o, true
		}
	}
	return ForkOption{}, false
}

// Team is the mutable game state of one team.
type Team struct {
	Name         string
	Members      []int64
	Tile         string
	PreviousTile string // position before the most recently committed move
	Rerolls      int
	Skips        int
	LastRoll     int
	Finished     bool
	Pending      *PendingChoice // nil while Idle
}

// AwaitingChoice reports whether the team has an outstanding fork prompt.
func (t *Team) AwaitingChoice() bool {
	return t.Pending != nil
}

// HasMember reports whether userID belongs to the team.
func (t *Team) HasMember(userID int64) bool {
	return slices.Contains(t.Members, userID)
}

// Clone returns a deep copy of the team.
func (t Team) Clone() Team {
	c := t
	c.Members = slices.Clone(t.Members)
	if t.Pending != nil {
		p := *t.Pending
		p.Options = slices.Clone(t.Pending.Options)
		c.Pending = &p
	}
	return c
}

// Dataset is the normalized board, tile and team data returned by a config provider.
type Dataset struct {
	Board BoardConfig
	Tiles map[string]Tile
	Teams map[string]Team
}

// Submission is an uploaded proof of completion awaiting a decision.
type Submission struct {
	ID          string
	Team        string
	SubmittedBy int64
	CreatedAt   time.Time
	Decided     bool
}

// Move is one journal entry describing a state change of a team.
type Move struct {
	ID        int64     `db:"id"`
	Team      string    `db:"team"`
	Kind      string    `db:"kind"`
	FromTile  string    `db:"from_tile"`
	ToTile    string    `db:"to_tile"`
	Roll      int       `db:"roll"`
	ActorID   int64     `db:"actor_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Move kinds for categorizing journal entries.
const (
	MoveApproved  = "approved"   // Approved drop, rolled and moved
	MoveRerolled  = "rerolled"   // Reroll token spent
	MoveSkipped   = "skipped"    // Skip token spent
	MoveChose     = "chose"      // Fork resolved by a team member
	MoveAutoChose = "auto_chose" // Fork resolved by the choice timeout
	MoveDeclined  = "declined"   // Drop declined by an approver
	MoveFinished  = "finished"   // Team reached the end of the board
	MoveNoMove    = "no_move"    // Roll had no path of the rolled length
)
