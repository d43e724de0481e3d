package nhlapi

import (
	"fmt"
	"time"
)

type GameId int64
type TeamId int
type Season string

type GameState int

const (
	GameStateUnknown GameState = iota
	GameStateScheduled
	GameStateLive
	GameStateFinal
)

type ScheduleState int

const (
	ScheduleStateUnknown ScheduleState = iota
	ScheduleStateOK
	ScheduleStateTbd
	ScheduleStatePostponed
	ScheduleStateSuspended
	ScheduleStateCancelled
)

type GameType int

const (
	GameTypeUnknown GameType = iota
	GameTypePreseason
	GameTypeRegularSeason
	GameTypePlayoffs
)

// Liveness collapses the two feed state fields into a single value,
// so exactly one of the derived predicates holds at any time.
// The schedule state takes priority: a postponed game may still
// report a stale game state
type Liveness int

const (
	LivenessUnknown Liveness = iota
	LivenessScheduled
	LivenessTbd
	LivenessLive
	LivenessFinal
	LivenessPostponed
	LivenessCancelled
)

type Team struct {
	Id         TeamId
	Abbrev     string
	City       string
	FullName   string
	Division   string
	Conference string
}

type SeriesWins struct {
	Home int
	Away int
}

// One fetched, immutable view of a game at a point in time.
// A snapshot is replaced wholesale on each refresh, never mutated
// field by field. The playoff round comes from the schedule payload,
// not from a single game refresh, so callers re-attach it after
// refreshing (see Orchestrator)
type GameSnapshot struct {
	Id            GameId
	Season        Season
	GameType      GameType
	Round         int
	HomeTeamId    TeamId
	AwayTeamId    TeamId
	HomeAbbrev    string
	AwayAbbrev    string
	HomeName      string
	AwayName      string
	StartTimeUTC  time.Time
	State         GameState
	ScheduleState ScheduleState
	HomeScore     int
	AwayScore     int
	SeriesWins    SeriesWins
	Venue         string
	Period        int
	Clock         string
}

func (game GameSnapshot) Liveness() Liveness {
	switch game.ScheduleState {
	case ScheduleStatePostponed, ScheduleStateSuspended:
		return LivenessPostponed
	case ScheduleStateCancelled:
		return LivenessCancelled
	case ScheduleStateTbd:
		return LivenessTbd
	}
	switch game.State {
	case GameStateScheduled:
		return LivenessScheduled
	case GameStateLive:
		return LivenessLive
	case GameStateFinal:
		return LivenessFinal
	}
	return LivenessUnknown
}

func (game GameSnapshot) IsScheduled() bool { return game.Liveness() == LivenessScheduled }
func (game GameSnapshot) IsTbd() bool       { return game.Liveness() == LivenessTbd }
func (game GameSnapshot) IsLive() bool      { return game.Liveness() == LivenessLive }
func (game GameSnapshot) IsFinal() bool     { return game.Liveness() == LivenessFinal }
func (game GameSnapshot) IsPpd() bool       { return game.Liveness() == LivenessPostponed }
func (game GameSnapshot) IsCancelled() bool { return game.Liveness() == LivenessCancelled }

// A terminal game will never go live again.
// The Unknown liveness is deliberately not terminal: a glitchy feed
// reading must never end the tracking of a game
func (game GameSnapshot) IsTerminal() bool {
	switch game.Liveness() {
	case LivenessFinal, LivenessPostponed, LivenessCancelled:
		return true
	}
	return false
}

func (game GameSnapshot) IsPlayoffs() bool      { return game.GameType == GameTypePlayoffs }
func (game GameSnapshot) IsRegularSeason() bool { return game.GameType == GameTypeRegularSeason }
func (game GameSnapshot) IsPreseason() bool     { return game.GameType == GameTypePreseason }

// A TBD game has no start time in the feed
func (game GameSnapshot) HasStartTime() bool {
	return !game.StartTimeUTC.IsZero()
}

// Check if the game is on the same calendar day as the provided time,
// compared in that time's location
func (game GameSnapshot) IsToday(now time.Time) bool {
	if !game.HasStartTime() {
		return false
	}
	y1, m1, d1 := game.StartTimeUTC.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (game GameSnapshot) WinningTeamId() TeamId {
	if game.AwayScore > game.HomeScore {
		return game.AwayTeamId
	}
	return game.HomeTeamId
}

// Series wins for the given side of the matchup.
// Returns zero for a team not playing in this game
func (game GameSnapshot) Wins(team TeamId) int {
	switch team {
	case game.HomeTeamId:
		return game.SeriesWins.Home
	case game.AwayTeamId:
		return game.SeriesWins.Away
	}
	return 0
}

// Full name of the team the tracked team is playing against
func (game GameSnapshot) OpponentName(tracked TeamId) string {
	if game.AwayTeamId == tracked {
		return game.HomeName
	}
	return game.AwayName
}

func (game GameSnapshot) OpponentAbbrev(tracked TeamId) string {
	if game.AwayTeamId == tracked {
		return game.HomeAbbrev
	}
	return game.AwayAbbrev
}

func (game GameSnapshot) IsHome(tracked TeamId) bool {
	return game.HomeTeamId == tracked
}

// Content diff between two snapshots of the same game.
// Object identity means nothing here, snapshots are values
func (game GameSnapshot) Changed(other GameSnapshot) bool {
	return game.State != other.State ||
		game.ScheduleState != other.ScheduleState ||
		!game.StartTimeUTC.Equal(other.StartTimeUTC)
}

// Period and clock, e.g. "2nd 10:34" or "OT 04:59"
func (game GameSnapshot) TimeRemaining() string {
	period := periodName(game.Period, game.IsPlayoffs())
	return fmt.Sprintf("%s %s", period, game.Clock)
}

func (game GameSnapshot) IsOvertime() bool {
	return game.Period > 3
}

func periodName(number int, playoffs bool) string {
	switch number {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	}
	if number <= 0 {
		return "Unknown"
	}
	if !playoffs {
		if number == 4 {
			return "OT"
		}
		return "SO"
	}
	// Playoff overtimes just keep counting
	if number == 4 {
		return "OT"
	}
	return fmt.Sprintf("%d OT", number-3)
}

func (game GameSnapshot) String() string {
	when := "TBD"
	if game.HasStartTime() {
		when = game.StartTimeUTC.Format("2006-01-02 15:04 MST")
	}
	return fmt.Sprintf("%s @ %s - %s", game.AwayName, game.HomeName, when)
}

// A single scoring event for one team, as reported by the
// play-by-play feed
type GoalEvent struct {
	EventId       int64
	TeamAbbrev    string
	Scorer        string
	ScorerGoals   int
	Assists       []Assist
	Period        int
	TimeInPeriod  string
	HighlightClip int64
}

type Assist struct {
	Name  string
	Total int
}

// The description is what the highlight watcher diffs to detect
// a scoring change on review
func (goal GoalEvent) Description() string {
	return fmt.Sprintf("%s (%d), assists: %s, %s %s",
		goal.Scorer, goal.ScorerGoals, goal.AssistLine(), periodName(goal.Period, false), goal.TimeInPeriod)
}

func (goal GoalEvent) AssistLine() string {
	if len(goal.Assists) == 0 {
		return "None"
	}
	line := ""
	for i, assist := range goal.Assists {
		if i > 0 {
			line += ", "
		}
		line += fmt.Sprintf("%s (%d)", assist.Name, assist.Total)
	}
	return line
}

func (goal GoalEvent) TimeOfGoal() string {
	return fmt.Sprintf("%s %s", periodName(goal.Period, false), goal.TimeInPeriod)
}
