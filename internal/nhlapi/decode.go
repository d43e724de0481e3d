package nhlapi

import (
	"encoding/json"
	"fmt"
	"time"
)

// Raw state codes used by the feed
var gameStates = map[string]GameState{
	"LIVE":  GameStateLive,
	"CRIT":  GameStateLive,
	"FINAL": GameStateFinal,
	"OFF":   GameStateFinal,
	"OVER":  GameStateFinal,
	"FUT":   GameStateScheduled,
	"PRE":   GameStateScheduled,
}

var scheduleStates = map[string]ScheduleState{
	"OK":   ScheduleStateOK,
	"TBD":  ScheduleStateTbd,
	"PPD":  ScheduleStatePostponed,
	"SUSP": ScheduleStateSuspended,
	"CNCL": ScheduleStateCancelled,
}

var gameTypes = map[int]GameType{
	1: GameTypePreseason,
	2: GameTypeRegularSeason,
	3: GameTypePlayoffs,
}

type rawName struct {
	Default string `json:"default"`
}

type rawTeam struct {
	Id         TeamId  `json:"id"`
	Abbrev     string  `json:"abbrev"`
	PlaceName  rawName `json:"placeName"`
	CommonName rawName `json:"commonName"`
	Score      int     `json:"score"`
}

func (team rawTeam) fullName() string {
	if team.PlaceName.Default == "" {
		return team.CommonName.Default
	}
	return team.PlaceName.Default + " " + team.CommonName.Default
}

type rawGame struct {
	Id                GameId  `json:"id"`
	Season            int64   `json:"season"`
	GameType          int     `json:"gameType"`
	StartTimeUTC      string  `json:"startTimeUTC"`
	GameState         string  `json:"gameState"`
	GameScheduleState string  `json:"gameScheduleState"`
	AwayTeam          rawTeam `json:"awayTeam"`
	HomeTeam          rawTeam `json:"homeTeam"`
	Venue             rawName `json:"venue"`
	SeriesStatus      struct {
		Round int `json:"round"`
	} `json:"seriesStatus"`
	Summary struct {
		SeasonSeriesWins struct {
			AwayTeamWins int `json:"awayTeamWins"`
			HomeTeamWins int `json:"homeTeamWins"`
		} `json:"seasonSeriesWins"`
	} `json:"summary"`
	PeriodDescriptor struct {
		Number int `json:"number"`
	} `json:"periodDescriptor"`
	Clock struct {
		TimeRemaining string `json:"timeRemaining"`
	} `json:"clock"`
}

func (raw rawGame) snapshot() GameSnapshot {
	var start time.Time
	if raw.StartTimeUTC != "" {
		if parsed, err := time.Parse("2006-01-02T15:04:05Z", raw.StartTimeUTC); err == nil {
			start = parsed
		}
	}
	return GameSnapshot{
		Id:            raw.Id,
		Season:        Season(fmt.Sprintf("%d", raw.Season)),
		GameType:      gameTypes[raw.GameType],
		Round:         raw.SeriesStatus.Round,
		HomeTeamId:    raw.HomeTeam.Id,
		AwayTeamId:    raw.AwayTeam.Id,
		HomeAbbrev:    raw.HomeTeam.Abbrev,
		AwayAbbrev:    raw.AwayTeam.Abbrev,
		HomeName:      raw.HomeTeam.fullName(),
		AwayName:      raw.AwayTeam.fullName(),
		StartTimeUTC:  start,
		State:         gameStates[raw.GameState],
		ScheduleState: scheduleStates[raw.GameScheduleState],
		HomeScore:     raw.HomeTeam.Score,
		AwayScore:     raw.AwayTeam.Score,
		SeriesWins: SeriesWins{
			Home: raw.Summary.SeasonSeriesWins.HomeTeamWins,
			Away: raw.Summary.SeasonSeriesWins.AwayTeamWins,
		},
		Venue:  raw.Venue.Default,
		Period: raw.PeriodDescriptor.Number,
		Clock:  raw.Clock.TimeRemaining,
	}
}

// Decode the club-schedule-season payload into an ordered
// sequence of snapshots
func DecodeTeamSchedule(data []byte) ([]GameSnapshot, error) {

	var raw struct {
		Games []rawGame `json:"games"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("team schedule payload does not have the expected content: %w", err)
	}

	games := make([]GameSnapshot, 0, len(raw.Games))
	for _, rawgame := range raw.Games {
		games = append(games, rawgame.snapshot())
	}
	return games, nil
}

// Decode the schedule-by-date payload. The feed nests the games of
// the requested day inside the first game week entry
func DecodeDateSchedule(data []byte) ([]GameSnapshot, error) {

	var raw struct {
		GameWeek []struct {
			Games []rawGame `json:"games"`
		} `json:"gameWeek"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("date schedule payload does not have the expected content: %w", err)
	}
	if len(raw.GameWeek) == 0 {
		return nil, nil
	}

	games := make([]GameSnapshot, 0, len(raw.GameWeek[0].Games))
	for _, rawgame := range raw.GameWeek[0].Games {
		games = append(games, rawgame.snapshot())
	}
	return games, nil
}

// Decode a single game landing payload
func DecodeGame(data []byte) (GameSnapshot, error) {

	var raw rawGame
	if err := json.Unmarshal(data, &raw); err != nil {
		return GameSnapshot{}, fmt.Errorf("game payload does not have the expected content: %w", err)
	}
	if raw.Id == 0 {
		return GameSnapshot{}, fmt.Errorf("game payload carries no game id")
	}
	return raw.snapshot(), nil
}

// Decode the scoring summary of a game into goal events.
// Goals without a highlight clip still come through, the clip
// is best effort
func DecodeGoals(data []byte) ([]GoalEvent, error) {

	var raw struct {
		Summary struct {
			Scoring []struct {
				PeriodDescriptor struct {
					Number int `json:"number"`
				} `json:"periodDescriptor"`
				Goals []struct {
					EventId       int64   `json:"eventId"`
					TeamAbbrev    rawName `json:"teamAbbrev"`
					FirstName     rawName
					LastName      rawName
					GoalsToDate   int    `json:"goalsToDate"`
					TimeInPeriod  string `json:"timeInPeriod"`
					HighlightClip int64  `json:"highlightClip"`
					Assists       []struct {
						FirstName     rawName
						LastName      rawName
						AssistsToDate int `json:"assistsToDate"`
					} `json:"assists"`
				} `json:"goals"`
			} `json:"scoring"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("scoring payload does not have the expected content: %w", err)
	}

	var goals []GoalEvent
	for _, period := range raw.Summary.Scoring {
		for _, rawgoal := range period.Goals {
			goal := GoalEvent{
				EventId:       rawgoal.EventId,
				TeamAbbrev:    rawgoal.TeamAbbrev.Default,
				Scorer:        rawgoal.FirstName.Default + " " + rawgoal.LastName.Default,
				ScorerGoals:   rawgoal.GoalsToDate,
				Period:        period.PeriodDescriptor.Number,
				TimeInPeriod:  rawgoal.TimeInPeriod,
				HighlightClip: rawgoal.HighlightClip,
			}
			for _, rawassist := range rawgoal.Assists {
				goal.Assists = append(goal.Assists, Assist{
					Name:  rawassist.FirstName.Default + " " + rawassist.LastName.Default,
					Total: rawassist.AssistsToDate,
				})
			}
			goals = append(goals, goal)
		}
	}
	return goals, nil
}

// Decode the franchise endpoint into the teams that are active today
func DecodeTeams(data []byte) ([]Team, error) {

	var raw struct {
		Data []struct {
			Teams []struct {
				Id         TeamId `json:"id"`
				TriCode    string `json:"triCode"`
				PlaceName  string `json:"placeName"`
				FullName   string `json:"fullName"`
				Division   struct {
					Name string `json:"name"`
				} `json:"division"`
				Conference struct {
					Name string `json:"name"`
				} `json:"conference"`
			} `json:"teams"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("franchise payload does not have the expected content: %w", err)
	}

	var teams []Team
	for _, franchise := range raw.Data {
		for _, rawteam := range franchise.Teams {
			teams = append(teams, Team{
				Id:         rawteam.Id,
				Abbrev:     rawteam.TriCode,
				City:       rawteam.PlaceName,
				FullName:   rawteam.FullName,
				Division:   rawteam.Division.Name,
				Conference: rawteam.Conference.Name,
			})
		}
	}
	return teams, nil
}
