package service

import (
	"context"
	"fmt"

	"tile-race-bot/internal/model"
)

// QueryService answers read-only requests about the game.
type QueryService struct {
	session  *Session
	turns    *TurnService
	renderer Renderer
	journal  Journal
}

// NewQueryService creates a new QueryService instance.
func NewQueryService(session *Session, turns *TurnService, renderer Renderer, journal Journal) *QueryService {
	return &QueryService{
		session:  session,
		turns:    turns,
		renderer: renderer,
		journal:  journal,
	}
}

// Grid renders the empty planning grid of the current board.
func (s *QueryService) Grid() ([]byte, error) {
	snap := s.session.Snapshot()
	png, err := s.renderer.RenderGrid(snap.Tiles, snap.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to render grid: %w", err)
	}
	return png, nil
}

// Board renders the current board without publishing it.
func (s *QueryService) Board() ([]byte, error) {
	snap := s.session.Snapshot()
	png, err := s.renderer.Render(snap.Tiles, snap.Config, snap.Teams)
	if err != nil {
		return nil, fmt.Errorf("failed to render board: %w", err)
	}
	return png, nil
}

// Status returns the current team overview.
func (s *QueryService) Status() Snapshot {
	return s.session.Snapshot()
}

// History returns recent journal entries for the actor's team, or for all
// teams when allTeams is set.
func (s *QueryService) History(ctx context.Context, actorID int64, allTeams bool, limit int) (string, []*model.Move, error) {
	team := ""
	if !allTeams {
		name, ok := s.turns.TeamOf(actorID)
		if !ok {
			return "", nil, ErrNotOnTeam
		}
		team = name
	}

	moves, err := s.journal.Recent(ctx, team, limit)
	if err != nil {
		return team, nil, fmt.Errorf("failed to load history: %w", err)
	}
	return team, moves, nil
}
