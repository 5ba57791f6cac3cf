package handler

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tile-race-bot/internal/service"
)

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	reload *service.ReloadService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reload *service.ReloadService) *AdminHandler {
	return &AdminHandler{reload: reload}
}

// HandleSyncSheet handles /syncsheet and /reload. The current board stays
// in place when the import fails.
func (h *AdminHandler) HandleSyncSheet(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	res, err := h.reload.Reload(ctx, sender.ID)
	if err != nil {
		log.Warn().
			Err(err).
			Int64("admin_id", sender.ID).
			Str("operation", "syncsheet").
			Msg("Import failed")
		return c.Reply(fmt.Sprintf("❌ Import failed: <code>%s</code>", html.EscapeString(err.Error())), tele.ModeHTML)
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("operation", "syncsheet").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf("Sheet imported – %d tiles, %d teams", res.Tiles, res.Teams))
}
