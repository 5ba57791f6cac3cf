// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tile-race-bot/internal/config"
	"tile-race-bot/internal/handler"
	"tile-race-bot/internal/service"
)

const helpText = `🎲 Tile race commands
Upload a photo in the drop chat to submit a drop.
/reroll – spend a reroll and roll again from your previous tile
/skip – spend a skip and roll without a drop
/board – re-post the board
/status – team positions and tokens
/history [all] [n] – recent moves
/grid – planning grid with tile ids
Admins: /syncsheet (/reload)`

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	turnHandler  *handler.TurnHandler
	adminHandler *handler.AdminHandler
	boardHandler *handler.BoardHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config *config.Config
	Turns  *service.TurnService
	Reload *service.ReloadService
	Query  *service.QueryService
}

// NewTeleBot creates the telebot instance. It is separate from New so the
// notifier can share it before handlers are registered.
func NewTeleBot(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New registers middleware and handlers on teleBot.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot:          teleBot,
		cfg:          deps.Config,
		turnHandler:  handler.NewTurnHandler(deps.Turns, deps.Config.Channels.Image, deps.Config.Channels.Notification),
		adminHandler: handler.NewAdminHandler(deps.Reload),
		boardHandler: handler.NewBoardHandler(deps.Query, deps.Turns),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(GameChatMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleHelp)
	b.bot.Handle("/help", b.handleHelp)

	// Turns
	b.bot.Handle("/reroll", b.turnHandler.HandleReroll)
	b.bot.Handle("/skip", b.turnHandler.HandleSkip)
	b.bot.Handle(tele.OnText, b.turnHandler.HandleText)
	b.bot.Handle(tele.OnPhoto, b.turnHandler.HandleUpload)
	b.bot.Handle(tele.OnDocument, b.turnHandler.HandleUpload)
	b.bot.Handle(tele.OnCallback, b.turnHandler.HandleCallback)

	// Board queries
	b.bot.Handle("/board", b.boardHandler.HandleBoard)
	b.bot.Handle("/grid", b.boardHandler.HandleGrid)
	b.bot.Handle("/status", b.boardHandler.HandleStatus)
	b.bot.Handle("/history", b.boardHandler.HandleHistory)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/syncsheet", b.adminHandler.HandleSyncSheet)
	adminGroup.Handle("/reload", b.adminHandler.HandleSyncSheet)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
