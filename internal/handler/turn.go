// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tile-race-bot/internal/service"
)

// Legacy text commands accepted in the notification chat.
const (
	legacyReroll = "!reroll"
	legacySkip   = "!skip"
)

// TurnHandler handles uploads, approvals, tokens and fork choices.
type TurnHandler struct {
	turns            *service.TurnService
	imageChat        int64
	notificationChat int64
}

// NewTurnHandler creates a new TurnHandler. Uploads are only accepted in
// imageChat and legacy text commands only in notificationChat; zero accepts
// them in any allowed chat.
func NewTurnHandler(turns *service.TurnService, imageChat, notificationChat int64) *TurnHandler {
	return &TurnHandler{turns: turns, imageChat: imageChat, notificationChat: notificationChat}
}

// HandleUpload handles a photo or document posted as proof of a drop.
func (h *TurnHandler) HandleUpload(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	if h.imageChat != 0 && chat.ID != h.imageChat {
		return nil
	}

	res, err := h.turns.SubmitUpload(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to submit drop")
		return c.Reply("❌ Could not register the drop, try again.")
	}
	if res.Status == service.StatusNotOnTeam {
		return c.Reply(service.NotOnTeamText)
	}

	return c.Reply("⏳ Waiting for approval.", DropKeyboard(res.Submission.ID))
}

// HandleReroll handles the /reroll command.
func (h *TurnHandler) HandleReroll(c tele.Context) error {
	return h.token(c, h.turns.Reroll)
}

// HandleSkip handles the /skip command.
func (h *TurnHandler) HandleSkip(c tele.Context) error {
	return h.token(c, h.turns.Skip)
}

// HandleText routes the legacy !reroll and !skip commands. Other text is
// ignored.
func (h *TurnHandler) HandleText(c tele.Context) error {
	if chat := c.Chat(); chat == nil || (h.notificationChat != 0 && chat.ID != h.notificationChat) {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Text())) {
	case legacyReroll:
		return h.HandleReroll(c)
	case legacySkip:
		return h.HandleSkip(c)
	}
	return nil
}

func (h *TurnHandler) token(c tele.Context, spend func(context.Context, int64) (*service.TurnResult, error)) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	res, err := spend(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Token turn failed")
		return c.Reply("❌ Something went wrong, try again.")
	}
	if res.Rejected() {
		return c.Reply(service.RejectionText(res))
	}
	// Announcements and fork prompts go to the notification chat.
	return nil
}

// HandleCallback handles drop decisions and fork choices.
func (h *TurnHandler) HandleCallback(c tele.Context) error {
	ctx := context.Background()
	cb := c.Callback()
	sender := c.Sender()
	if cb == nil || sender == nil {
		return nil
	}

	prefix, first, second, ok := service.DecodeCallback(cb.Data)
	if !ok {
		log.Debug().Str("data", cb.Data).Msg("Ignoring unknown callback")
		return c.Respond()
	}

	var res *service.TurnResult
	var err error
	switch prefix {
	case service.CallbackDrop:
		res, err = h.turns.Decide(ctx, sender.ID, second, first == service.DropApprove)
	case service.CallbackFork:
		res, err = h.turns.ChooseFork(ctx, sender.ID, first, second)
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Str("data", cb.Data).Msg("Callback failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong, try again."})
	}
	if res.Rejected() {
		return c.Respond(&tele.CallbackResponse{Text: service.RejectionText(res)})
	}

	if msg := c.Message(); msg != nil {
		if _, err := c.Bot().EditReplyMarkup(msg, nil); err != nil {
			log.Debug().Err(err).Msg("Failed to remove keyboard")
		}
	}
	return c.Respond(&tele.CallbackResponse{Text: responseText(res)})
}

func responseText(res *service.TurnResult) string {
	switch res.Status {
	case service.StatusDeclined:
		return "Declined"
	case service.StatusAwaitingChoice:
		return "Approved, choose a path"
	case service.StatusFinished:
		return "Finished!"
	default:
		return "✅"
	}
}
