package pickems

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rinkbot/internal/common"
	"rinkbot/internal/nhlapi"
	"rinkbot/internal/store"

	"github.com/rs/zerolog/log"
)

type Source interface {
	FetchScheduleForDate(ctx context.Context, date time.Time) ([]nhlapi.GameSnapshot, error)
	Refresh(ctx context.Context, id nhlapi.GameId) (nhlapi.GameSnapshot, error)
}

// Posts the prediction messages and disables their buttons
type Poster interface {
	PostGame(ctx context.Context, channelId string, game nhlapi.GameSnapshot) (store.MessageRef, error)
	DisableButtons(ctx context.Context, ref store.MessageRef, game nhlapi.GameSnapshot) error
}

type Config struct {
	ChannelId string

	PostHour    int // local time the day's games get posted
	PostMinute  int
	GradeHour   int // local time yesterday's picks get graded
	GradeMinute int

	LockInterval time.Duration
	Location     *time.Location
}

func (cfg *Config) fillDefaults() {
	if cfg.PostHour == 0 {
		cfg.PostHour = 3
	}
	if cfg.GradeHour == 0 {
		cfg.GradeHour = 2
	}
	if cfg.LockInterval == 0 {
		cfg.LockInterval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
}

// Posts one prediction message per regular season game every morning,
// then watches the day's games and locks each message's buttons at
// puck drop
type Scheduler struct {
	source Source
	store  *store.PickemsStore
	poster Poster
	cfg    Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	locked map[nhlapi.GameId]struct{}
}

func NewScheduler(source Source, pickstore *store.PickemsStore, poster Poster, cfg Config) *Scheduler {
	cfg.fillDefaults()

	// The lock set is append only for the season. Rebuild it from the
	// persisted message records so a restart does not re-disable
	// buttons that are already off
	locked, err := pickstore.LockedGames()
	if err != nil {
		log.Warn().Err(err).Msg("Could not rehydrate the lock set")
		locked = map[nhlapi.GameId]struct{}{}
	}

	return &Scheduler{
		source: source,
		store:  pickstore,
		poster: poster,
		cfg:    cfg,
		now:    time.Now,
		sleep:  common.Sleep,
		locked: locked,
	}
}

func (s *Scheduler) isLocked(id nhlapi.GameId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.locked[id]
	return ok
}

func (s *Scheduler) markLocked(id nhlapi.GameId) {
	s.mu.Lock()
	s.locked[id] = struct{}{}
	s.mu.Unlock()
}

// Run the daily loop until the context gets cancelled. The first day
// runs immediately, so a restart in the middle of a game day picks
// the lock watching back up
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Msg("Pickems scheduler started")
	for {
		if err := s.runDay(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Error().Err(err).Msg("Pickems day failed")
		}
		wait := common.UntilClock(s.now(), s.cfg.PostHour, s.cfg.PostMinute, s.cfg.Location)
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Scheduler) runDay(ctx context.Context) error {

	today := s.now().In(s.cfg.Location)
	games, err := s.source.FetchScheduleForDate(ctx, today)
	if err != nil {
		return fmt.Errorf("could not fetch today's schedule: %w", err)
	}

	day := today.Format("2006-01-02")
	var tracked []nhlapi.GameSnapshot
	for _, game := range games {
		if !game.IsRegularSeason() {
			continue
		}
		tracked = append(tracked, game)

		// A game that already has its message posted keeps it
		if _, err := s.store.GetMessage(game.Id); err == nil {
			continue
		} else if err != store.NotFoundErr {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not look up message for game %d", game.Id))
			continue
		}

		ref, err := s.poster.PostGame(ctx, s.cfg.ChannelId, game)
		if err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not post prediction message for game %d", game.Id))
			continue
		}
		msg := store.PickMessage{GameId: game.Id, Ref: ref, Season: game.Season, Date: day}
		if err := s.store.PutMessage(msg); err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not persist message record for game %d", game.Id))
		}
	}

	log.Info().Msg(fmt.Sprintf("Watching %d games for pick locks", len(tracked)))
	return s.watchLocks(ctx, tracked)
}

// Poll the day's games and disable the buttons of each one as it
// starts. Stops when every game is locked or the day is over
func (s *Scheduler) watchLocks(ctx context.Context, games []nhlapi.GameSnapshot) error {

	if len(games) == 0 {
		return nil
	}
	deadline := s.now().Add(common.UntilClock(s.now(), s.cfg.PostHour, s.cfg.PostMinute, s.cfg.Location))

	for {
		allLocked := true
		for _, game := range games {
			if s.isLocked(game.Id) {
				continue
			}

			fresh, err := s.source.Refresh(ctx, game.Id)
			if err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not refresh game %d", game.Id))
				allLocked = false
				continue
			}

			// A glitchy Unknown reading is no reading at all, treat
			// it like a failed refresh and retry
			if fresh.Liveness() == nhlapi.LivenessUnknown {
				allLocked = false
				continue
			}

			// A postponed game locks too: the picks get deleted at
			// grading time, there is nothing left to pick
			if fresh.IsScheduled() || fresh.IsTbd() {
				allLocked = false
				continue
			}

			s.lockGame(ctx, fresh)
		}

		if allLocked {
			log.Info().Msg("All games locked")
			return nil
		}
		if s.now().After(deadline) {
			log.Warn().Msg("Giving up on the lock watch, the day is over")
			return nil
		}
		if err := s.sleep(ctx, s.cfg.LockInterval); err != nil {
			return err
		}
	}
}

func (s *Scheduler) lockGame(ctx context.Context, game nhlapi.GameSnapshot) {

	msg, err := s.store.GetMessage(game.Id)
	if err != nil {
		// Without a message record there is nothing to disable.
		// Mark it locked anyway so the watch does not spin on it
		log.Error().Err(err).Msg(fmt.Sprintf("Game %d started but has no message record", game.Id))
		s.markLocked(game.Id)
		return
	}

	log.Info().Msg(fmt.Sprintf("Disabling buttons for game %d", game.Id))
	if err := s.poster.DisableButtons(ctx, msg.Ref, game); err != nil {
		// Retry next cycle
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not disable buttons for game %d", game.Id))
		return
	}
	if err := s.store.SetLocked(game.Id); err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not persist lock for game %d", game.Id))
	}
	s.markLocked(game.Id)
}
