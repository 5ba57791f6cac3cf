package service

import (
	"errors"
	"fmt"
	"sync"

	"tile-race-bot/internal/game/board"
	"tile-race-bot/internal/model"
	"tile-race-bot/internal/repository"
)

// ErrUnknownStartTile is returned when a team starts on a tile that is not on the board.
var ErrUnknownStartTile = errors.New("team starts on unknown tile")

// Session owns the live board and team state. Turns read it under a shared
// lock; Swap replaces board and teams together under the exclusive lock.
type Session struct {
	mu    sync.RWMutex
	board *board.Board
	cfg   model.BoardConfig
	teams *repository.TeamRepository
}

// Snapshot is a consistent copy of the session for rendering and reporting.
type Snapshot struct {
	Tiles  map[string]model.Tile
	Config model.BoardConfig
	Teams  []model.Team
}

// NewSession validates ds and creates a session from it.
func NewSession(ds *model.Dataset) (*Session, error) {
	b, teams, err := prepare(ds)
	if err != nil {
		return nil, err
	}
	return &Session{board: b, cfg: ds.Board, teams: teams}, nil
}

// Swap validates ds and replaces the live state. On error the current state
// is left untouched.
func (s *Session) Swap(ds *model.Dataset) error {
	b, teams, err := prepare(ds)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.board = b
	s.cfg = ds.Board
	s.teams = teams
	s.mu.Unlock()
	return nil
}

// Read runs fn with the current board and teams while holding the shared lock.
// A concurrent Swap waits until fn returns.
func (s *Session) Read(fn func(b *board.Board, teams *repository.TeamRepository) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.board, s.teams)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Tiles:  s.board.Tiles(),
		Config: s.cfg,
		Teams:  s.teams.List(),
	}
}

// Counts returns the number of tiles and teams.
func (s *Session) Counts() (tiles, teams int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.Len(), s.teams.Count()
}

// TileName returns the display name of a tile, or the id if it is unknown.
func (s *Session) TileName(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tileName(s.board, id)
}

func tileName(b *board.Board, id string) string {
	if t, ok := b.Tile(id); ok {
		return t.DisplayName()
	}
	return id
}

func prepare(ds *model.Dataset) (*board.Board, *repository.TeamRepository, error) {
	if ds == nil {
		return nil, nil, board.ErrEmptyBoard
	}

	b, err := board.Build(ds.Tiles)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build board: %w", err)
	}

	for name, t := range ds.Teams {
		if !b.Has(t.Tile) {
			return nil, nil, fmt.Errorf("%w: %s on %q", ErrUnknownStartTile, name, t.Tile)
		}
	}

	teams, err := repository.NewTeamRepository(ds.Teams)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load teams: %w", err)
	}
	return b, teams, nil
}
