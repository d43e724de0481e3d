package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rinkbot/internal/bot"
	"rinkbot/internal/common"
	"rinkbot/internal/highlights"
	"rinkbot/internal/nhlapi"
	"rinkbot/internal/orchestrator"
	"rinkbot/internal/pickems"
	"rinkbot/internal/store"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	DiscordToken string `envconfig:"DISCORD_TOKEN" required:"true"`
	GuildId      string `envconfig:"GUILD_ID" required:"true"`

	TeamId     int    `envconfig:"TEAM_ID" default:"1"`
	TeamAbbrev string `envconfig:"TEAM_ABBREV" default:"NJD"`
	TeamName   string `envconfig:"TEAM_NAME" default:"Devils"`

	DbPath   string `envconfig:"DB_PATH" default:"rinkbot.db"`
	Timezone string `envconfig:"TIMEZONE" default:"America/New_York"`

	PickemsChannelId string `envconfig:"PICKEMS_CHANNEL_ID"`

	Debug bool `envconfig:"DEBUG"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := realMain(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("rinkbot exited")
	}
	log.Info().Msg("Bye")
}

func realMain(ctx context.Context) error {

	var cfg Config
	if err := envconfig.Process("RINKBOT", &cfg); err != nil {
		return fmt.Errorf("could not process the configuration: %w", err)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %s: %w", cfg.Timezone, err)
	}

	db, err := store.Open(cfg.DbPath)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer db.Close()

	settings := store.NewSettingsStore(db)
	picks := store.NewPickemsStore(db)
	goals := store.NewHighlightStore(db)

	// The NHL api has no published limits, stay polite anyway
	restrictions := []common.Restriction{{Requests: 20, Duration: time.Second}}
	api := nhlapi.NewClient(restrictions)

	team := nhlapi.TeamId(cfg.TeamId)

	discord, err := bot.CreateBot(bot.Config{
		Token:      cfg.DiscordToken,
		GuildId:    cfg.GuildId,
		TeamId:     team,
		TeamAbbrev: cfg.TeamAbbrev,
		Location:   location,
	}, &api, settings, picks)
	if err != nil {
		return fmt.Errorf("could not create the bot: %w", err)
	}

	orch := orchestrator.New(&api, settings, discord.Gate(), orchestrator.Config{
		TeamId:     team,
		TeamAbbrev: cfg.TeamAbbrev,
		TeamName:   cfg.TeamName,
		Location:   location,
	})
	discord.SetTracker(orch)

	// One highlight watcher per game, spawned when the chat opens
	registry := highlights.NewRegistry()
	sink := bot.NewSink(discord.Session())
	orch.OnGameLive(func(game nhlapi.GameSnapshot) {
		watcher := highlights.NewWatcher(&api, sink, goals, settings, registry, highlights.Config{
			TeamId:     team,
			TeamAbbrev: cfg.TeamAbbrev,
		})
		go func() {
			if err := watcher.Run(ctx, game.Id); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg(fmt.Sprintf("Highlight watcher for game %d died", game.Id))
			}
		}()
	})

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return discord.Run(ctx) })
	group.Go(func() error { return orch.Run(ctx) })

	if cfg.PickemsChannelId != "" {
		poster := bot.NewPoster(discord.Session())
		pickemsCfg := pickems.Config{ChannelId: cfg.PickemsChannelId, Location: location}
		scheduler := pickems.NewScheduler(&api, picks, poster, pickemsCfg)
		grader := pickems.NewGrader(&api, picks, pickemsCfg)
		group.Go(func() error { return scheduler.Run(ctx) })
		group.Go(func() error { return grader.Run(ctx) })
	} else {
		log.Warn().Msg("No pickems channel configured, pickems are off")
	}

	log.Info().Msg(fmt.Sprintf("rinkbot is up, tracking the %s", cfg.TeamName))
	return group.Wait()
}
