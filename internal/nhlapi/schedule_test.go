package nhlapi

import (
	"testing"
	"time"
)

func TestSeasonOf(t *testing.T) {
	cases := []struct {
		date time.Time
		want Season
	}{
		{time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC), "20252026"},
		{time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), "20252026"},
		{time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), "20252026"},
		{time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), "20262027"},
	}
	for _, tc := range cases {
		if got := SeasonOf(tc.date); got != tc.want {
			t.Errorf("SeasonOf(%s) = %s, want %s", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestNextGame(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	games := []GameSnapshot{
		{Id: 1, State: GameStateFinal, ScheduleState: ScheduleStateOK},
		{Id: 2, State: GameStateScheduled, ScheduleState: ScheduleStatePostponed},
		{Id: 3, State: GameStateScheduled, ScheduleState: ScheduleStateOK},
		{Id: 4, State: GameStateScheduled, ScheduleState: ScheduleStateOK},
	}
	game, ok := NextGame(games, now)
	if !ok || game.Id != 3 {
		t.Fatalf("next game = %d, want 3", game.Id)
	}
}

func TestNextGamePicksUpLiveGame(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	games := []GameSnapshot{
		{Id: 1, State: GameStateFinal, ScheduleState: ScheduleStateOK},
		{Id: 2, State: GameStateLive, ScheduleState: ScheduleStateOK},
	}
	game, ok := NextGame(games, now)
	if !ok || game.Id != 2 {
		t.Fatalf("next game = %d, want the live game", game.Id)
	}
}

func TestNextGameUnknownState(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// A glitchy reading in the past is skipped, in the future it counts
	past := []GameSnapshot{{Id: 1, StartTimeUTC: now.Add(-2 * time.Hour)}}
	if _, ok := NextGame(past, now); ok {
		t.Error("glitchy past game should not be next")
	}
	future := []GameSnapshot{{Id: 2, StartTimeUTC: now.Add(2 * time.Hour)}}
	game, ok := NextGame(future, now)
	if !ok || game.Id != 2 {
		t.Error("glitchy future game should be next")
	}
}

func TestNextGameEmptySchedule(t *testing.T) {
	if _, ok := NextGame(nil, time.Now()); ok {
		t.Error("empty schedule should have no next game")
	}
}

func TestGameFor(t *testing.T) {
	games := []GameSnapshot{
		{Id: 1, HomeTeamId: 10, AwayTeamId: 11},
		{Id: 2, HomeTeamId: 12, AwayTeamId: 13},
	}
	game, ok := GameFor(games, 13)
	if !ok || game.Id != 2 {
		t.Fatalf("game for team 13 = %d, want 2", game.Id)
	}
	if _, ok := GameFor(games, 99); ok {
		t.Error("team 99 plays no game")
	}
}
