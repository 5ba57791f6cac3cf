package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ReloadResult reports what a reload loaded.
type ReloadResult struct {
	Tiles int
	Teams int
}

// ReloadService replaces the board and teams from a DatasetProvider.
type ReloadService struct {
	provider DatasetProvider
	session  *Session
	turns    *TurnService
}

// NewReloadService creates a new ReloadService instance.
func NewReloadService(provider DatasetProvider, session *Session, turns *TurnService) *ReloadService {
	return &ReloadService{
		provider: provider,
		session:  session,
		turns:    turns,
	}
}

// Reload loads a fresh dataset and swaps it in. If loading or validation
// fails the current state is kept and the error is returned.
func (s *ReloadService) Reload(ctx context.Context, actorID int64) (*ReloadResult, error) {
	ds, err := s.provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	if err := s.session.Swap(ds); err != nil {
		return nil, fmt.Errorf("failed to apply dataset: %w", err)
	}
	s.turns.CancelTimers()

	res := &ReloadResult{Tiles: len(ds.Tiles), Teams: len(ds.Teams)}
	log.Info().
		Int64("admin_id", actorID).
		Int("tiles", res.Tiles).
		Int("teams", res.Teams).
		Msg("Board reloaded")

	if err := s.turns.RefreshBoard(ctx); err != nil {
		log.Warn().Err(err).Msg("Board refresh after reload failed")
	}
	return res, nil
}
