// Package main is the entry point for the tile race bot.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tile-race-bot/internal/bot"
	"tile-race-bot/internal/config"
	"tile-race-bot/internal/game/dice"
	"tile-race-bot/internal/loader"
	"tile-race-bot/internal/notify"
	"tile-race-bot/internal/pkg/db"
	"tile-race-bot/internal/render"
	"tile-race-bot/internal/repository"
	"tile-race-bot/internal/service"
	"tile-race-bot/internal/status"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Bot exited with error")
	}
}

func run() error {
	cfg, err := config.Load("config")
	if err != nil {
		return err
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		return err
	}
	secrets.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Info().Str("board_source", cfg.Board.Source).Msg("Configuration loaded successfully")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A broken game config is fatal at startup.
	provider := newProvider(cfg)
	ds, err := provider.Load(ctx)
	if err != nil {
		return err
	}
	session, err := service.NewSession(ds)
	if err != nil {
		return err
	}

	checks := map[string]status.Checker{}
	var journal service.Journal = repository.NewMemoryJournal(0)
	if cfg.Database.Enabled {
		dbPool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer dbPool.Close()

		if err := dbPool.Migrate(ctx); err != nil {
			return err
		}
		journal = repository.NewJournalRepository(dbPool.Pool)
		checks["postgres"] = dbPool
	}

	teleBot, err := bot.NewTeleBot(cfg)
	if err != nil {
		return err
	}

	notifier := notify.NewTelegramNotifier(teleBot, map[service.ChannelKind]int64{
		service.ChannelBoard:        cfg.Channels.Board,
		service.ChannelNotification: cfg.Channels.Notification,
		service.ChannelImage:        cfg.Channels.Image,
	})
	renderer := render.NewRenderer(cfg.Render.AssetsDir)
	roller := dice.New(&dice.Config{
		BonusChance: cfg.Game.BonusChance,
		BonusValue:  cfg.Game.BonusValue,
	})

	turns := service.NewTurnService(session, roller, notifier, renderer, journal, service.TurnConfig{
		MaxRoll:       cfg.Game.MaxRoll,
		BonusValue:    cfg.Game.BonusValue,
		ChoiceTimeout: cfg.Game.ChoiceTimeout,
		LockTimeout:   cfg.Game.LockTimeout,
		RenderRetries: cfg.Render.Retries,
		Approvers:     cfg.ApproverIDs(),
	})
	defer turns.CancelTimers()

	reload := service.NewReloadService(provider, session, turns)
	query := service.NewQueryService(session, turns, renderer, journal)

	telegramBot := bot.New(teleBot, &bot.Dependencies{
		Config: cfg,
		Turns:  turns,
		Reload: reload,
		Query:  query,
	})

	if err := turns.RefreshBoard(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial board post failed")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		telegramBot.Start()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		telegramBot.Stop()
		return nil
	})

	if cfg.Status.Enabled {
		srv := status.New(cfg.Status.Addr, query, checks)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			if err := srv.Shutdown(context.WithoutCancel(gctx)); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info().Msg("Bot stopped gracefully")
	return err
}

func newProvider(cfg *config.Config) service.DatasetProvider {
	if cfg.Board.Source == config.SourceSheet {
		return &loader.SheetProvider{
			TilesURL:  cfg.Board.TilesCSVURL,
			TeamsURL:  cfg.Board.TeamsCSVURL,
			BoardPath: cfg.Board.Path,
			Timeout:   cfg.Board.Timeout,
		}
	}
	return loader.NewFileProvider(cfg.Board.Path)
}
