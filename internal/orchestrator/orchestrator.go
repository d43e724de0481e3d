package orchestrator

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

// Phase of the game lifecycle. One orchestrator tracks one game at
// a time and walks it through these phases in order, falling back to
// Idle whenever the tracked game goes away
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingPregame
	PhaseOpen
	PhaseMonitoring
	PhaseClosing
	PhaseCooldown
)

func (phase Phase) String() string {
	switch phase {
	case PhaseIdle:
		return "Idle"
	case PhaseAwaitingPregame:
		return "AwaitingPregame"
	case PhaseOpen:
		return "Open"
	case PhaseMonitoring:
		return "Monitoring"
	case PhaseClosing:
		return "Closing"
	case PhaseCooldown:
		return "Cooldown"
	}
	return "Unknown"
}

// Where snapshots come from
type Source interface {
	FetchTeamSchedule(ctx context.Context, team string) ([]nhlapi.GameSnapshot, error)
	Refresh(ctx context.Context, id nhlapi.GameId) (nhlapi.GameSnapshot, error)
}

// Which channels and roles the side effects apply to
type Settings interface {
	Channels(category store.Category) ([]string, error)
	Roles(category store.Category) ([]string, error)
}

// The side effects the orchestrator drives. Every one of them has to
// be safe to invoke more than once: implementations check the current
// state of the channel before mutating it
type Gate interface {
	IsOpen(ctx context.Context, channelId string, roleId string) (bool, error)
	Open(ctx context.Context, channelId string, roleId string) error
	Close(ctx context.Context, channelId string, roleId string) error
	Send(ctx context.Context, channelId string, content string) error
	SetTopic(ctx context.Context, channelId string, topic string) error
	SetCategoryName(ctx context.Context, channelId string, name string) error
	SetPresence(ctx context.Context, activity string) error
}

type Config struct {
	TeamId     nhlapi.TeamId
	TeamAbbrev string
	TeamName   string

	PregameWindow    time.Duration // chat opens this long before puck drop
	ClosingDelay     time.Duration // warning to close gap
	LiveInterval     time.Duration // poll cadence while the game is live
	PreLiveInterval  time.Duration // poll cadence once open but not yet live
	GamedayBoundary  time.Duration // wall-clock grid on a game day
	IdleBoundary     time.Duration // wall-clock grid when idle
	TerminalDebounce int           // consecutive terminal readings before closing
	ErrorBackoff     time.Duration
	Location         *time.Location
}

func (cfg *Config) fillDefaults() {
	if cfg.PregameWindow == 0 {
		cfg.PregameWindow = 30 * time.Minute
	}
	if cfg.ClosingDelay == 0 {
		cfg.ClosingDelay = 5 * time.Minute
	}
	if cfg.LiveInterval == 0 {
		cfg.LiveInterval = time.Minute
	}
	if cfg.PreLiveInterval == 0 {
		cfg.PreLiveInterval = 30 * time.Minute
	}
	if cfg.GamedayBoundary == 0 {
		cfg.GamedayBoundary = 15 * time.Minute
	}
	if cfg.IdleBoundary == 0 {
		cfg.IdleBoundary = 30 * time.Minute
	}
	if cfg.TerminalDebounce == 0 {
		cfg.TerminalDebounce = 3
	}
	if cfg.ErrorBackoff == 0 {
		cfg.ErrorBackoff = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
}

// The series ends when one side reaches this many wins, and the
// playoffs end with the fourth round
const seriesWinsNeeded = 4
const finalRound = 4

type Orchestrator struct {
	source   Source
	settings Settings
	gate     Gate
	cfg      Config

	// Injected for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	onLive func(game nhlapi.GameSnapshot)

	mu         sync.RWMutex
	phase      Phase
	current    *nhlapi.GameSnapshot
	finalCount int
	lastScore  [2]int
}

func New(source Source, settings Settings, gate Gate, cfg Config) *Orchestrator {
	cfg.fillDefaults()
	return &Orchestrator{
		source:   source,
		settings: settings,
		gate:     gate,
		cfg:      cfg,
		now:      time.Now,
		sleep:    common.Sleep,
	}
}

// Register the callback that spawns the highlight watcher once the
// channels are open
func (o *Orchestrator) OnGameLive(fn func(game nhlapi.GameSnapshot)) {
	o.onLive = fn
}

func (o *Orchestrator) Phase() Phase {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase
}

// The game currently tracked, if any
func (o *Orchestrator) CurrentGame() (nhlapi.GameSnapshot, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.current == nil {
		return nhlapi.GameSnapshot{}, false
	}
	return *o.current, true
}

// Whether game chat is open right now
func (o *Orchestrator) ChatOpen() bool {
	switch o.Phase() {
	case PhaseOpen, PhaseMonitoring, PhaseClosing:
		return true
	}
	return false
}

func (o *Orchestrator) setPhase(phase Phase) {
	o.mu.Lock()
	old := o.phase
	o.phase = phase
	o.mu.Unlock()
	if old != phase {
		log.Info().Msg(fmt.Sprintf("Phase %s -> %s", old, phase))
	}
}

func (o *Orchestrator) setCurrent(game nhlapi.GameSnapshot) {
	o.mu.Lock()
	o.current = &game
	o.mu.Unlock()
}

func (o *Orchestrator) clearCurrent() {
	o.mu.Lock()
	o.current = nil
	o.finalCount = 0
	o.mu.Unlock()
}

// Run the lifecycle loop until the context gets cancelled.
// A failing cycle never kills the loop: it gets logged with its
// context and retried after a bounded backoff
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().Msg("Game lifecycle orchestrator started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait, err := o.tick(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			gameid := nhlapi.GameId(0)
			if game, ok := o.CurrentGame(); ok {
				gameid = game.Id
			}
			log.Error().Err(err).Msg(fmt.Sprintf("Cycle failed in phase %s for game %d", o.Phase(), gameid))
			wait = o.cfg.ErrorBackoff
		}
		if err := o.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// One cycle of the state machine. Returns how long to wait before
// the next cycle
func (o *Orchestrator) tick(ctx context.Context) (time.Duration, error) {
	switch o.Phase() {
	case PhaseIdle:
		return o.tickIdle(ctx)
	case PhaseAwaitingPregame:
		return o.tickAwaitingPregame(ctx)
	case PhaseOpen:
		return o.tickOpen(ctx)
	case PhaseMonitoring:
		return o.tickMonitoring(ctx)
	case PhaseClosing:
		return o.tickClosing(ctx)
	case PhaseCooldown:
		return o.tickCooldown(ctx)
	}
	return 0, fmt.Errorf("orchestrator is in an impossible phase %d", o.Phase())
}

func (o *Orchestrator) tickIdle(ctx context.Context) (time.Duration, error) {

	games, err := o.source.FetchTeamSchedule(ctx, o.cfg.TeamAbbrev)
	if err != nil {
		return 0, err
	}

	game, ok := nhlapi.NextGame(games, o.now())
	if !ok {
		log.Info().Msg("No game on the schedule, sleeping until the next boundary")
		if err := o.gate.SetPresence(ctx, "Golf!"); err != nil {
			log.Warn().Err(err).Msg("Could not update presence")
		}
		return common.UntilNextBoundary(o.now(), o.cfg.IdleBoundary), nil
	}

	log.Info().Msg(fmt.Sprintf("Next game is %s", game))
	o.setCurrent(game)
	o.setPhase(PhaseAwaitingPregame)
	o.announce(ctx, game)
	return 0, nil
}

func (o *Orchestrator) tickAwaitingPregame(ctx context.Context) (time.Duration, error) {

	game, ok := o.CurrentGame()
	if !ok {
		o.setPhase(PhaseIdle)
		return 0, nil
	}

	fresh, err := o.source.Refresh(ctx, game.Id)
	if err != nil {
		// A failed poll is not a transition, keep the cadence
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not refresh game %d", game.Id))
		return common.UntilNextBoundary(o.now(), o.cfg.GamedayBoundary), nil
	}
	// The landing payload knows nothing about the playoff round
	fresh.Round = game.Round
	if fresh.Changed(game) {
		log.Info().Msg(fmt.Sprintf("Game %d changed while awaiting pregame", game.Id))
		o.announce(ctx, fresh)
	}
	o.setCurrent(fresh)

	switch fresh.Liveness() {
	case nhlapi.LivenessPostponed, nhlapi.LivenessCancelled:
		log.Warn().Msg(fmt.Sprintf("Game %d will not be played (%v), searching for another game", fresh.Id, fresh.Liveness()))
		o.clearCurrent()
		o.setPhase(PhaseIdle)
		return 0, nil
	case nhlapi.LivenessFinal:
		// Nothing to track anymore, this game got played without us
		o.clearCurrent()
		o.setPhase(PhaseIdle)
		return 0, nil
	case nhlapi.LivenessLive:
		// Restarted in the middle of a game
		o.setPhase(PhaseOpen)
		return 0, nil
	case nhlapi.LivenessTbd:
		if !fresh.IsToday(o.localNow()) {
			return o.verifyStillNext(ctx, fresh)
		}
		return common.UntilNextBoundary(o.now(), o.cfg.GamedayBoundary), nil
	case nhlapi.LivenessUnknown:
		// Glitchy reading, no transition
		return common.UntilNextBoundary(o.now(), o.cfg.GamedayBoundary), nil
	}

	// Scheduled
	pregame := fresh.StartTimeUTC.Add(-o.cfg.PregameWindow)
	if !o.now().Before(pregame) {
		log.Info().Msg("Pregame!")
		o.setPhase(PhaseOpen)
		return 0, nil
	}

	if !fresh.IsToday(o.localNow()) {
		return o.verifyStillNext(ctx, fresh)
	}

	// Game day: wake on the boundary grid, but never sleep past the
	// pregame window
	wait := common.UntilNextBoundary(o.now(), o.cfg.GamedayBoundary)
	if until := pregame.Sub(o.now()); until < wait {
		wait = until
	}
	return wait, nil
}

// For a game that is not today, the schedule may change under us.
// Re-fetch and make sure the tracked game is still the next one
func (o *Orchestrator) verifyStillNext(ctx context.Context, game nhlapi.GameSnapshot) (time.Duration, error) {

	games, err := o.source.FetchTeamSchedule(ctx, o.cfg.TeamAbbrev)
	if err != nil {
		log.Warn().Err(err).Msg("Could not re-fetch the schedule")
		return common.UntilNextBoundary(o.now(), o.cfg.IdleBoundary), nil
	}
	next, ok := nhlapi.NextGame(games, o.now())
	if !ok || next.Id != game.Id {
		log.Warn().Msg(fmt.Sprintf("Game %d is no longer the next game, searching again", game.Id))
		o.clearCurrent()
		o.setPhase(PhaseIdle)
		return 0, nil
	}
	return common.UntilNextBoundary(o.now(), o.cfg.IdleBoundary), nil
}

func (o *Orchestrator) tickOpen(ctx context.Context) (time.Duration, error) {

	game, ok := o.CurrentGame()
	if !ok {
		o.setPhase(PhaseIdle)
		return 0, nil
	}

	channels, roles, err := o.gameChannelPairs()
	if err != nil {
		return 0, err
	}

	opponent := game.OpponentName(o.cfg.TeamId)
	for _, channelid := range channels {
		opened := false
		for _, roleid := range roles {
			isopen, err := o.gate.IsOpen(ctx, channelid, roleid)
			if err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not check permissions of channel %s", channelid))
				continue
			}
			if isopen {
				continue
			}
			if err := o.gate.Open(ctx, channelid, roleid); err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not open channel %s for role %s", channelid, roleid))
				continue
			}
			opened = true
		}
		// Announce only on a real transition, a channel that was
		// already open got its message the first time
		if opened {
			if err := o.gate.Send(ctx, channelid, OpenMessage(opponent)); err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not send open message to channel %s", channelid))
			}
		}
	}

	o.mu.Lock()
	o.finalCount = 0
	o.lastScore = [2]int{game.AwayScore, game.HomeScore}
	o.mu.Unlock()
	o.setPhase(PhaseMonitoring)

	if o.onLive != nil {
		o.onLive(game)
	}
	return 0, nil
}

func (o *Orchestrator) tickMonitoring(ctx context.Context) (time.Duration, error) {

	game, ok := o.CurrentGame()
	if !ok {
		o.setPhase(PhaseIdle)
		return 0, nil
	}

	fresh, err := o.source.Refresh(ctx, game.Id)
	if err != nil {
		// No new data this cycle. The debounce counter stays where
		// it is: a fetch error is not a reading
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not refresh game %d", game.Id))
		return o.cfg.LiveInterval, nil
	}
	fresh.Round = game.Round
	o.setCurrent(fresh)

	if fresh.IsTerminal() {
		o.mu.Lock()
		o.finalCount++
		count := o.finalCount
		o.mu.Unlock()
		log.Info().Msg(fmt.Sprintf("Game %d looks over (%d/%d)", fresh.Id, count, o.cfg.TerminalDebounce))
		if count >= o.cfg.TerminalDebounce {
			o.setPhase(PhaseClosing)
			return 0, nil
		}
	} else {
		o.mu.Lock()
		o.finalCount = 0
		o.mu.Unlock()
	}

	o.updateScore(ctx, fresh)

	if fresh.IsLive() {
		return o.cfg.LiveInterval, nil
	}
	return o.cfg.PreLiveInterval, nil
}

func (o *Orchestrator) tickClosing(ctx context.Context) (time.Duration, error) {

	game, ok := o.CurrentGame()
	if !ok {
		o.setPhase(PhaseIdle)
		return 0, nil
	}

	channels, roles, err := o.gameChannelPairs()
	if err != nil {
		return 0, err
	}

	// Find the channels that are actually open: a channel an admin
	// closed by hand gets no warning and no second close
	openChannels := map[string][]string{}
	for _, channelid := range channels {
		for _, roleid := range roles {
			isopen, err := o.gate.IsOpen(ctx, channelid, roleid)
			if err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not check permissions of channel %s", channelid))
				continue
			}
			if isopen {
				openChannels[channelid] = append(openChannels[channelid], roleid)
			}
		}
	}

	if len(openChannels) > 0 {
		log.Info().Msg("Sending closing warning")
		for channelid := range openChannels {
			if err := o.gate.Send(ctx, channelid, ClosingMessage(o.cfg.ClosingDelay)); err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not send closing warning to channel %s", channelid))
			}
		}

		if err := o.sleep(ctx, o.cfg.ClosingDelay); err != nil {
			return 0, err
		}

		log.Info().Msg("Closing game channels")
		for channelid, roleids := range openChannels {
			for _, roleid := range roleids {
				if err := o.gate.Close(ctx, channelid, roleid); err != nil {
					log.Warn().Err(err).Msg(fmt.Sprintf("Could not close channel %s for role %s", channelid, roleid))
				}
			}
		}
	}

	message := o.closedMessage(ctx, game)
	for _, channelid := range channels {
		if err := o.gate.Send(ctx, channelid, message); err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not send closed message to channel %s", channelid))
		}
	}

	o.setPhase(PhaseCooldown)
	return 0, nil
}

func (o *Orchestrator) tickCooldown(ctx context.Context) (time.Duration, error) {

	o.clearCurrent()

	games, err := o.source.FetchTeamSchedule(ctx, o.cfg.TeamAbbrev)
	if err != nil {
		// Idle will search again
		o.setPhase(PhaseIdle)
		return 0, err
	}

	game, ok := nhlapi.NextGame(games, o.now())
	if !ok {
		if err := o.gate.SetPresence(ctx, "Golf!"); err != nil {
			log.Warn().Err(err).Msg("Could not update presence")
		}
		o.setPhase(PhaseIdle)
		return common.UntilNextBoundary(o.now(), o.cfg.IdleBoundary), nil
	}

	log.Info().Msg(fmt.Sprintf("Next game is %s", game))
	o.setCurrent(game)
	o.setPhase(PhaseAwaitingPregame)
	o.announce(ctx, game)
	return 0, nil
}

func (o *Orchestrator) localNow() time.Time {
	return o.now().In(o.cfg.Location)
}

func (o *Orchestrator) gameChannelPairs() ([]string, []string, error) {
	channels, err := o.settings.Channels(store.GameChannels)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get game channels: %w", err)
	}
	roles, err := o.settings.Roles(store.GameChannels)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get game roles: %w", err)
	}
	return channels, roles, nil
}

// Point presence, category names and topics at the tracked game.
// Failures here never block the lifecycle, they only get logged
func (o *Orchestrator) announce(ctx context.Context, game nhlapi.GameSnapshot) {

	if err := o.gate.SetPresence(ctx, PresenceFor(game, o.cfg.TeamId, o.cfg.Location)); err != nil {
		log.Warn().Err(err).Msg("Could not update presence")
	}

	channels, _, err := o.gameChannelPairs()
	if err != nil {
		log.Warn().Err(err).Msg("Could not get game channels")
		return
	}
	for _, channelid := range channels {
		if err := o.gate.SetCategoryName(ctx, channelid, CategoryNameFor(game, o.cfg.Location)); err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not rename category of channel %s", channelid))
		}
		if err := o.gate.SetTopic(ctx, channelid, TopicFor(game)); err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not update topic of channel %s", channelid))
		}
	}
}

// Put the score in the channel topics while the game is on
func (o *Orchestrator) updateScore(ctx context.Context, game nhlapi.GameSnapshot) {

	o.mu.Lock()
	changed := o.lastScore != [2]int{game.AwayScore, game.HomeScore}
	o.lastScore = [2]int{game.AwayScore, game.HomeScore}
	o.mu.Unlock()
	if !changed {
		return
	}

	channels, _, err := o.gameChannelPairs()
	if err != nil {
		log.Warn().Err(err).Msg("Could not get game channels")
		return
	}
	for _, channelid := range channels {
		if err := o.gate.SetTopic(ctx, channelid, ScoreTopicFor(game)); err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not update topic of channel %s", channelid))
		}
	}
}

// The message posted after the channels close. For a playoff game
// that decided the series there is no next game to announce: the
// outcome message is the whole story
func (o *Orchestrator) closedMessage(ctx context.Context, game nhlapi.GameSnapshot) string {

	if game.IsPlayoffs() {
		winner := game.WinningTeamId()
		// The series summary in the snapshot predates this game
		winnerWins := game.Wins(winner) + 1
		if winnerWins >= seriesWinsNeeded {
			if winner != o.cfg.TeamId {
				return ClosedMessage("We've been eliminated.\nSee you next season!")
			}
			if game.Round >= finalRound {
				return ClosedMessage("WE ARE THE CHAMPIONS!\nWhat a season!")
			}
			return ClosedMessage("We've won the series!\nSee you next round!")
		}
	}

	games, err := o.source.FetchTeamSchedule(ctx, o.cfg.TeamAbbrev)
	if err != nil {
		log.Warn().Err(err).Msg("Could not fetch the schedule for the next game message")
		return ClosedMessage("See you next game!")
	}
	next, ok := nhlapi.NextGame(games, o.now())
	if !ok {
		return ClosedMessage(":(\nSee you next season!")
	}
	return ClosedMessage(NextGameLine(next, o.cfg.TeamId))
}
