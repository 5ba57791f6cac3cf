// Package notify publishes game messages to Telegram chats.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tile-race-bot/internal/service"
)

// ErrNoChannel is returned when a channel kind has no chat configured.
var ErrNoChannel = errors.New("no chat configured for channel")

// buttonsPerRow limits the width of choice keyboards.
const buttonsPerRow = 3

// API is the part of *tele.Bot the notifier needs.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// TelegramNotifier sends messages to the chat configured for each channel.
// The board channel keeps a single post: the previous board image is
// deleted before a new one is sent.
type TelegramNotifier struct {
	api   API
	chats map[service.ChannelKind]int64

	mu        sync.Mutex
	lastBoard *tele.Message
}

// NewTelegramNotifier creates a new TelegramNotifier instance.
func NewTelegramNotifier(api API, chats map[service.ChannelKind]int64) *TelegramNotifier {
	return &TelegramNotifier{api: api, chats: chats}
}

// Publish sends msg to the chat configured for kind.
func (n *TelegramNotifier) Publish(ctx context.Context, kind service.ChannelKind, msg service.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, ok := n.chats[kind]
	if !ok || chatID == 0 {
		return fmt.Errorf("%s: %w", kind, ErrNoChannel)
	}

	var what interface{} = msg.Text
	if msg.File != nil {
		what = &tele.Photo{
			File:    tele.FromReader(bytes.NewReader(msg.File.Data)),
			Caption: msg.Text,
		}
	}

	var opts []interface{}
	if markup := Keyboard(msg.Choices); markup != nil {
		opts = append(opts, markup)
	}

	if kind != service.ChannelBoard {
		if _, err := n.api.Send(tele.ChatID(chatID), what, opts...); err != nil {
			return fmt.Errorf("failed to send to %s: %w", kind, err)
		}
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lastBoard != nil {
		if err := n.api.Delete(n.lastBoard); err != nil {
			log.Warn().Err(err).Int("message_id", n.lastBoard.ID).Msg("Failed to delete previous board")
		}
		n.lastBoard = nil
	}

	sent, err := n.api.Send(tele.ChatID(chatID), what, opts...)
	if err != nil {
		return fmt.Errorf("failed to send board: %w", err)
	}
	n.lastBoard = sent
	return nil
}

// Keyboard builds an inline keyboard from choices, or nil when there are none.
func Keyboard(choices []service.Choice) *tele.ReplyMarkup {
	if len(choices) == 0 {
		return nil
	}

	markup := &tele.ReplyMarkup{}
	var rows [][]tele.InlineButton
	var row []tele.InlineButton
	for _, c := range choices {
		row = append(row, tele.InlineButton{Text: c.Label, Data: c.Data})
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	markup.InlineKeyboard = rows
	return markup
}
