package pickems

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

// Grades yesterday's picks against the final scores once a day.
// Grading marks each pick exactly once, a second run over the same
// day is a no-op
type Grader struct {
	source Source
	store  *store.PickemsStore
	cfg    Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGrader(source Source, pickstore *store.PickemsStore, cfg Config) *Grader {
	cfg.fillDefaults()
	return &Grader{
		source: source,
		store:  pickstore,
		cfg:    cfg,
		now:    time.Now,
		sleep:  common.Sleep,
	}
}

func (g *Grader) Run(ctx context.Context) error {
	log.Info().Msg("Pickems grader started")
	for {
		wait := common.UntilClock(g.now(), g.cfg.GradeHour, g.cfg.GradeMinute, g.cfg.Location)
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
		yesterday := g.now().In(g.cfg.Location).AddDate(0, 0, -1)
		if err := g.GradeDate(ctx, yesterday); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Error().Err(err).Msg(fmt.Sprintf("Could not grade picks for %s", yesterday.Format("2006-01-02")))
		}
	}
}

// Grade every ungraded pick for one date. Picks on games that did not
// happen get deleted instead of graded, and games that are somehow
// still not final keep their picks for a later run
func (g *Grader) GradeDate(ctx context.Context, date time.Time) error {

	day := date.Format("2006-01-02")
	games, err := g.source.FetchScheduleForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("could not fetch the schedule for %s: %w", day, err)
	}

	winners := map[nhlapi.GameId]nhlapi.TeamId{}
	for _, game := range games {
		if !game.IsRegularSeason() {
			continue
		}
		if game.IsPpd() || game.IsCancelled() {
			log.Info().Msg(fmt.Sprintf("Game %d was not played, deleting its picks", game.Id))
			if err := g.store.DeletePicks(game.Id); err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not delete picks for game %d", game.Id))
			}
			continue
		}
		if !game.IsFinal() {
			log.Warn().Msg(fmt.Sprintf("Game %d is not final yet, leaving its picks for later", game.Id))
			continue
		}
		winners[game.Id] = game.WinningTeamId()
	}

	picks, err := g.store.PicksForDate(day)
	if err != nil {
		return fmt.Errorf("could not load the picks for %s: %w", day, err)
	}

	graded := 0
	for _, pick := range picks {
		if pick.Graded {
			continue
		}
		winner, ok := winners[pick.GameId]
		if !ok {
			continue
		}
		did, err := g.store.GradePick(pick.GameId, pick.UserId, pick.TeamId == winner)
		if err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not grade the pick of %s on game %d", pick.UserId, pick.GameId))
			continue
		}
		if did {
			graded++
		}
	}

	log.Info().Msg(fmt.Sprintf("Graded %d picks for %s", graded, day))
	return nil
}
