package nhlapi

import (
	"time"
)

// The season string is the start year concatenated with the end year,
// e.g. "20252026". A new season starts counting in August
func SeasonOf(date time.Time) Season {
	if date.Month() > time.July {
		return Season(date.Format("2006") + date.AddDate(1, 0, 0).Format("2006"))
	}
	return Season(date.AddDate(-1, 0, 0).Format("2006") + date.Format("2006"))
}

// Find the next game of interest in an ordered schedule: the first
// game that has not reached a terminal state. A live game counts,
// so a restart in the middle of a game picks the tracking back up
func NextGame(games []GameSnapshot, now time.Time) (GameSnapshot, bool) {
	for _, game := range games {
		switch game.Liveness() {
		case LivenessScheduled, LivenessTbd, LivenessLive:
			return game, true
		case LivenessUnknown:
			// A glitchy reading for a game in the future still makes
			// it the next candidate
			if game.HasStartTime() && game.StartTimeUTC.After(now) {
				return game, true
			}
		}
	}
	return GameSnapshot{}, false
}

// Find the game a team plays in a day's schedule
func GameFor(games []GameSnapshot, team TeamId) (GameSnapshot, bool) {
	for _, game := range games {
		if game.HomeTeamId == team || game.AwayTeamId == team {
			return game, true
		}
	}
	return GameSnapshot{}, false
}
