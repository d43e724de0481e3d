package highlights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rinkbot/internal/common"
	"rinkbot/internal/nhlapi"
	"rinkbot/internal/store"

	"github.com/rs/zerolog/log"
)

type Source interface {
	Refresh(ctx context.Context, id nhlapi.GameId) (nhlapi.GameSnapshot, error)
	FetchGoals(ctx context.Context, id nhlapi.GameId) ([]nhlapi.GoalEvent, error)
	HighlightUrl(clip int64) (string, error)
}

// Where the goal embeds go. Posting returns the message reference so
// a later correction can edit it in place
type Sink interface {
	PostGoal(ctx context.Context, channelId string, goal nhlapi.GoalEvent, url string) (store.MessageRef, error)
	EditGoal(ctx context.Context, ref store.MessageRef, goal nhlapi.GoalEvent) error
}

type Settings interface {
	Channels(category store.Category) ([]string, error)
}

type Config struct {
	TeamId     nhlapi.TeamId
	TeamAbbrev string

	PollInterval     time.Duration // cadence once live
	WaitInterval     time.Duration // cadence while waiting for puck drop
	TerminalDebounce int           // consecutive over readings before the end game check
	MaxTerminalPolls int           // give up this many polls after the game ended
}

func (cfg *Config) fillDefaults() {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.WaitInterval == 0 {
		cfg.WaitInterval = 30 * time.Second
	}
	if cfg.TerminalDebounce == 0 {
		cfg.TerminalDebounce = 3
	}
	if cfg.MaxTerminalPolls == 0 {
		// An hour of 5 minute polls
		cfg.MaxTerminalPolls = 12
	}
}

// Watches one live game for scoring events and posts each goal of
// the tracked team once, editing on corrections
type Watcher struct {
	source   Source
	sink     Sink
	cache    *store.HighlightStore
	settings Settings
	registry *Registry
	cfg      Config

	sleep func(ctx context.Context, d time.Duration) error
}

func NewWatcher(source Source, sink Sink, cache *store.HighlightStore, settings Settings, registry *Registry, cfg Config) *Watcher {
	cfg.fillDefaults()
	return &Watcher{
		source:   source,
		sink:     sink,
		cache:    cache,
		settings: settings,
		registry: registry,
		cfg:      cfg,
		sleep:    common.Sleep,
	}
}

// Run the watcher for one game until it is over. Returns nil when
// another watcher already holds the lease for the game
func (w *Watcher) Run(ctx context.Context, id nhlapi.GameId) error {

	token, ok := w.registry.Acquire(id)
	if !ok {
		log.Warn().Msg(fmt.Sprintf("A highlight watcher is already running for game %d", id))
		return nil
	}
	defer w.registry.Release(id, token)

	log.Info().Msg(fmt.Sprintf("Highlight watcher started for game %d", id))

	if err := w.waitForLive(ctx, id); err != nil {
		if errors.Is(err, errNotPlayed) {
			log.Info().Msg(fmt.Sprintf("Game %d will not be played, no highlights to watch", id))
			return nil
		}
		return err
	}

	if err := w.watch(ctx, id); err != nil {
		return err
	}

	// The game is done, the dedup cache has served its purpose
	if err := w.cache.DeleteGame(id); err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not delete highlight cache for game %d", id))
	}
	log.Info().Msg(fmt.Sprintf("Highlight watcher finished for game %d", id))
	return nil
}

var errNotPlayed = fmt.Errorf("game will not be played")

func (w *Watcher) waitForLive(ctx context.Context, id nhlapi.GameId) error {
	for {
		game, err := w.source.Refresh(ctx, id)
		if err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not refresh game %d", id))
		} else {
			switch game.Liveness() {
			case nhlapi.LivenessLive, nhlapi.LivenessFinal:
				// Final counts too: a watcher restarted after the game
				// still has goals to catch up on
				return nil
			case nhlapi.LivenessPostponed, nhlapi.LivenessCancelled:
				return errNotPlayed
			}
		}
		if err := w.sleep(ctx, w.cfg.WaitInterval); err != nil {
			return err
		}
	}
}

func (w *Watcher) watch(ctx context.Context, id nhlapi.GameId) error {

	// Reload what a previous run already posted, so a restart in the
	// middle of a game does not repost every goal
	records, err := w.cache.Goals(id)
	if err != nil {
		return fmt.Errorf("could not load highlight cache for game %d: %w", id, err)
	}
	if len(records) > 0 {
		log.Info().Msg(fmt.Sprintf("Reloaded %d goal records for game %d", len(records), id))
	}

	finalCount := 0
	for {
		game, err := w.source.Refresh(ctx, id)
		if err != nil {
			// A failed poll is not a reading, the debounce stays put
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not refresh game %d", id))
			if err := w.sleep(ctx, w.cfg.PollInterval); err != nil {
				return err
			}
			continue
		}

		if game.IsTerminal() {
			finalCount++
		} else {
			finalCount = 0
		}

		teamGoals := game.HomeScore
		if game.AwayTeamId == w.cfg.TeamId {
			teamGoals = game.AwayScore
		}

		goals, err := w.source.FetchGoals(ctx, id)
		if err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not fetch goals for game %d", id))
		} else {
			w.processGoals(ctx, id, goals, records)
		}

		if finalCount >= w.cfg.TerminalDebounce {
			// The feed can lag behind the scoreboard: keep polling
			// until every goal made it into the cache, but not forever
			if teamGoals == len(records) {
				log.Info().Msg(fmt.Sprintf("All %d goals posted for game %d", teamGoals, id))
				return nil
			}
			if finalCount >= w.cfg.MaxTerminalPolls {
				log.Warn().Msg(fmt.Sprintf("Giving up on game %d with %d of %d goals posted", id, len(records), teamGoals))
				return nil
			}
		}

		if err := w.sleep(ctx, w.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (w *Watcher) processGoals(ctx context.Context, id nhlapi.GameId, goals []nhlapi.GoalEvent, records map[int64]store.GoalRecord) {

	channels, err := w.settings.Channels(store.HighlightChannels)
	if err != nil || len(channels) == 0 {
		log.Warn().Err(err).Msg("No highlight channel configured")
		return
	}
	channelid := channels[0]

	for _, goal := range goals {
		if goal.TeamAbbrev != w.cfg.TeamAbbrev {
			continue
		}

		record, known := records[goal.EventId]
		if known {
			if record.Description == goal.Description() {
				continue
			}
			// Scoring change on review: edit the posted message,
			// never post a second one
			log.Info().Msg(fmt.Sprintf("Goal %d corrected: %s", goal.EventId, goal.Description()))
			if err := w.sink.EditGoal(ctx, record.Message, goal); err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not edit message for goal %d", goal.EventId))
				continue
			}
			record.Description = goal.Description()
			record.Scorer = goal.Scorer
			record.Assists = goal.AssistLine()
			record.Time = goal.TimeOfGoal()
			records[goal.EventId] = record
			if err := w.cache.PutGoal(id, record); err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not persist record for goal %d", goal.EventId))
			}
			continue
		}

		// The clip is best effort, a goal without one still gets
		// announced as text
		url, err := w.source.HighlightUrl(goal.HighlightClip)
		if err != nil {
			log.Debug().Msg(fmt.Sprintf("No highlight clip for goal %d yet", goal.EventId))
			url = ""
		}

		log.Info().Msg(fmt.Sprintf("New goal: %s", goal.Description()))
		ref, err := w.sink.PostGoal(ctx, channelid, goal, url)
		if err != nil {
			// Next poll retries, the cache only records what got posted
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not post goal %d", goal.EventId))
			continue
		}

		record = store.GoalRecord{
			EventId:     goal.EventId,
			Description: goal.Description(),
			Scorer:      goal.Scorer,
			Assists:     goal.AssistLine(),
			Time:        goal.TimeOfGoal(),
			Message:     ref,
		}
		records[goal.EventId] = record
		if err := w.cache.PutGoal(id, record); err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not persist record for goal %d", goal.EventId))
		}
	}
}
