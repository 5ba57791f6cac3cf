package handler

import (
	tele "gopkg.in/telebot.v3"

	"tile-race-bot/internal/service"
)

// DropKeyboard builds the approve/decline keyboard attached to an upload.
func DropKeyboard(submissionID string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = [][]tele.InlineButton{
		{
			{Text: "✅ Approve", Data: service.DropCallback(true, submissionID)},
			{Text: "❌ Decline", Data: service.DropCallback(false, submissionID)},
		},
	}
	return markup
}
