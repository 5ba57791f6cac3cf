package handler

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tile-race-bot/internal/repository"
	"tile-race-bot/internal/service"
)

const maxHistory = 50

// BoardHandler handles read-only board commands.
type BoardHandler struct {
	query *service.QueryService
	turns *service.TurnService
}

// NewBoardHandler creates a new BoardHandler.
func NewBoardHandler(query *service.QueryService, turns *service.TurnService) *BoardHandler {
	return &BoardHandler{query: query, turns: turns}
}

// HandleBoard handles /board: re-posts the board to the board chat.
func (h *BoardHandler) HandleBoard(c tele.Context) error {
	if err := h.turns.RefreshBoard(context.Background()); err != nil {
		return c.Reply("❌ Could not post the board right now.")
	}
	return nil
}

// HandleGrid handles /grid: replies with the empty planning grid.
func (h *BoardHandler) HandleGrid(c tele.Context) error {
	png, err := h.query.Grid()
	if err != nil {
		log.Warn().Err(err).Msg("Grid render failed")
		return c.Reply("❌ Could not render the grid.")
	}
	return c.Reply(&tele.Photo{
		File:    tele.FromReader(bytes.NewReader(png)),
		Caption: "Planning grid",
	})
}

// HandleStatus handles /status.
func (h *BoardHandler) HandleStatus(c tele.Context) error {
	return c.Reply(service.FormatStatus(h.query.Status()))
}

// HandleHistory handles /history [all] [n].
func (h *BoardHandler) HandleHistory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	all, limit := parseHistoryArgs(c.Args())
	team, moves, err := h.query.History(context.Background(), sender.ID, all, limit)
	switch {
	case errors.Is(err, service.ErrNotOnTeam):
		return c.Reply(service.NotOnTeamText)
	case err != nil:
		log.Warn().Err(err).Msg("History query failed")
		return c.Reply("❌ History is unavailable right now.")
	}
	return c.Reply(service.FormatHistory(team, moves))
}

func parseHistoryArgs(args []string) (all bool, limit int) {
	limit = repository.DefaultHistoryLimit
	for _, a := range args {
		if strings.EqualFold(a, "all") {
			all = true
			continue
		}
		if n, err := strconv.Atoi(a); err == nil && n > 0 {
			limit = min(n, maxHistory)
		}
	}
	return all, limit
}
