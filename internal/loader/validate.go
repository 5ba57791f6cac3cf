// Package loader provides the board, tile and team dataset from a JSON
// game config file or from Google Sheet CSV exports.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tile-race-bot/internal/model"
)

// Loader errors.
var (
	ErrNoTiles          = errors.New("missing tiles")
	ErrNoTeams          = errors.New("missing teams")
	ErrUnknownSuccessor = errors.New("successor tile does not exist")
	ErrUnknownStartTile = errors.New("start tile does not exist")
	ErrInvalidMember    = errors.New("member id is not numeric")
	ErrInvalidRow       = errors.New("invalid row")
	ErrInvalidTokens    = errors.New("token count must not be negative")
	ErrNotConfigured    = errors.New("sheet URLs not set")
)

// rawBoard is the board block of game-config.json. Absent keys keep the
// provider's defaults.
type rawBoard struct {
	TileSize   *int `json:"tile-size"`
	PlayerSize *int `json:"player-size"`
	Width      *int `json:"board-width"`
	Height     *int `json:"board-height"`
}

func (b *rawBoard) apply(cfg *model.BoardConfig) {
	if b == nil {
		return
	}
	if b.TileSize != nil {
		cfg.TileSize = *b.TileSize
	}
	if b.PlayerSize != nil {
		cfg.PlayerSize = *b.PlayerSize
	}
	if b.Width != nil {
		cfg.Width = *b.Width
	}
	if b.Height != nil {
		cfg.Height = *b.Height
	}
}

type rawTile struct {
	Name        string   `json:"item-name"`
	Description string   `json:"tile-desc"`
	Picture     string   `json:"item-picture"`
	Coords      [2]int   `json:"coords"`
	Next        []string `json:"next"`
	Points      *int     `json:"points"`
	MustHit     bool     `json:"must-hit"`
	End         bool     `json:"end"`
}

type rawTeam struct {
	Name    string     `json:"name"`
	Members []memberID `json:"members"`
	Tile    string     `json:"tile"`
	Rerolls int        `json:"rerolls"`
	Skips   int        `json:"skips"`
}

// memberID accepts both JSON strings and numbers. Parsing is deferred to
// normalize so a bad id is reported with its team.
type memberID string

func (m *memberID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = memberID(s)
		return nil
	}
	*m = memberID(data)
	return nil
}

// normalize validates raw provider data and converts it to a Dataset.
func normalize(cfg model.BoardConfig, tiles map[string]rawTile, teams map[string]rawTeam) (*model.Dataset, error) {
	if len(tiles) == 0 {
		return nil, ErrNoTiles
	}
	if len(teams) == 0 {
		return nil, ErrNoTeams
	}

	ds := &model.Dataset{
		Board: cfg,
		Tiles: make(map[string]model.Tile, len(tiles)),
		Teams: make(map[string]model.Team, len(teams)),
	}

	for id, rt := range tiles {
		points := 1
		if rt.Points != nil {
			points = *rt.Points
		}
		next := make([]string, 0, len(rt.Next))
		for _, n := range rt.Next {
			if n = strings.TrimSpace(n); n != "" {
				next = append(next, n)
			}
		}
		ds.Tiles[id] = model.Tile{
			ID:          id,
			Name:        strings.TrimSpace(rt.Name),
			Description: strings.TrimSpace(rt.Description),
			Picture:     strings.TrimSpace(rt.Picture),
			Row:         rt.Coords[0],
			Col:         rt.Coords[1],
			Next:        next,
			MustHit:     rt.MustHit,
			Points:      points,
			End:         rt.End,
		}
	}

	for id, t := range ds.Tiles {
		for _, n := range t.Next {
			if _, ok := ds.Tiles[n]; !ok {
				return nil, fmt.Errorf("tile %s -> %s: %w", id, n, ErrUnknownSuccessor)
			}
		}
	}

	for key, rt := range teams {
		name := strings.TrimSpace(rt.Name)
		if name == "" {
			name = key
		}
		if _, ok := ds.Tiles[rt.Tile]; !ok {
			return nil, fmt.Errorf("team %s on %q: %w", name, rt.Tile, ErrUnknownStartTile)
		}
		if rt.Rerolls < 0 || rt.Skips < 0 {
			return nil, fmt.Errorf("team %s has %d rerolls and %d skips: %w", name, rt.Rerolls, rt.Skips, ErrInvalidTokens)
		}

		members := make([]int64, 0, len(rt.Members))
		for _, m := range rt.Members {
			s := strings.TrimSpace(string(m))
			if s == "" {
				continue
			}
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("team %s member %q: %w", name, s, ErrInvalidMember)
			}
			members = append(members, id)
		}

		ds.Teams[name] = model.Team{
			Name:    name,
			Members: members,
			Tile:    rt.Tile,
			Rerolls: rt.Rerolls,
			Skips:   rt.Skips,
		}
	}

	return ds, nil
}
