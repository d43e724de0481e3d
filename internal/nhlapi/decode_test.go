package nhlapi

import (
	"testing"
	"time"
)

const gamePayload = `{
	"id": 2025020123,
	"season": 20252026,
	"gameType": 2,
	"startTimeUTC": "2026-03-15T23:00:00Z",
	"gameState": "LIVE",
	"gameScheduleState": "OK",
	"venue": {"default": "Prudential Center"},
	"awayTeam": {
		"id": 3,
		"abbrev": "NYR",
		"placeName": {"default": "New York"},
		"commonName": {"default": "Rangers"},
		"score": 2
	},
	"homeTeam": {
		"id": 1,
		"abbrev": "NJD",
		"placeName": {"default": "New Jersey"},
		"commonName": {"default": "Devils"},
		"score": 3
	},
	"periodDescriptor": {"number": 2},
	"clock": {"timeRemaining": "10:34"}
}`

func TestDecodeGame(t *testing.T) {
	game, err := DecodeGame([]byte(gamePayload))
	if err != nil {
		t.Fatal(err)
	}
	if game.Id != 2025020123 {
		t.Errorf("id = %d", game.Id)
	}
	if game.Season != "20252026" {
		t.Errorf("season = %s", game.Season)
	}
	if game.GameType != GameTypeRegularSeason {
		t.Errorf("game type = %d", game.GameType)
	}
	if game.HomeName != "New Jersey Devils" || game.AwayName != "New York Rangers" {
		t.Errorf("names = %q / %q", game.HomeName, game.AwayName)
	}
	if game.HomeScore != 3 || game.AwayScore != 2 {
		t.Errorf("score = %d - %d", game.AwayScore, game.HomeScore)
	}
	if !game.IsLive() {
		t.Error("game should be live")
	}
	want := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	if !game.StartTimeUTC.Equal(want) {
		t.Errorf("start = %s", game.StartTimeUTC)
	}
	if game.TimeRemaining() != "2nd 10:34" {
		t.Errorf("time remaining = %q", game.TimeRemaining())
	}
}

func TestDecodeGameRejectsEmptyPayload(t *testing.T) {
	if _, err := DecodeGame([]byte(`{}`)); err == nil {
		t.Fatal("payload without a game id should not decode")
	}
	if _, err := DecodeGame([]byte(`not json`)); err == nil {
		t.Fatal("garbage should not decode")
	}
}

func TestDecodeTeamSchedule(t *testing.T) {
	payload := `{"games": [
		{"id": 1, "gameState": "OFF", "gameScheduleState": "OK"},
		{"id": 2, "gameState": "FUT", "gameScheduleState": "OK", "startTimeUTC": "2026-03-15T23:00:00Z"},
		{"id": 3, "gameState": "FUT", "gameScheduleState": "TBD"}
	]}`
	games, err := DecodeTeamSchedule([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 3 {
		t.Fatalf("decoded %d games, want 3", len(games))
	}
	if !games[0].IsFinal() || !games[1].IsScheduled() || !games[2].IsTbd() {
		t.Errorf("liveness chain wrong: %v %v %v", games[0].Liveness(), games[1].Liveness(), games[2].Liveness())
	}
}

func TestDecodeDateSchedule(t *testing.T) {
	payload := `{"gameWeek": [
		{"games": [{"id": 10, "gameState": "FUT", "gameScheduleState": "OK"}]},
		{"games": [{"id": 20, "gameState": "FUT", "gameScheduleState": "OK"}]}
	]}`
	games, err := DecodeDateSchedule([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	// Only the requested day counts
	if len(games) != 1 || games[0].Id != 10 {
		t.Fatalf("games = %+v", games)
	}

	empty, err := DecodeDateSchedule([]byte(`{"gameWeek": []}`))
	if err != nil || empty != nil {
		t.Fatalf("empty week should decode to nothing, got %v, %v", empty, err)
	}
}

func TestDecodeGoals(t *testing.T) {
	payload := `{"summary": {"scoring": [
		{
			"periodDescriptor": {"number": 1},
			"goals": [
				{
					"eventId": 102,
					"teamAbbrev": {"default": "NJD"},
					"firstName": {"default": "Jack"},
					"lastName": {"default": "Hughes"},
					"goalsToDate": 21,
					"timeInPeriod": "05:12",
					"highlightClip": 601234,
					"assists": [
						{"firstName": {"default": "Nico"}, "lastName": {"default": "Hischier"}, "assistsToDate": 30}
					]
				}
			]
		},
		{
			"periodDescriptor": {"number": 2},
			"goals": [
				{
					"eventId": 155,
					"teamAbbrev": {"default": "NYR"},
					"firstName": {"default": "Artemi"},
					"lastName": {"default": "Panarin"},
					"goalsToDate": 28,
					"timeInPeriod": "11:40",
					"assists": []
				}
			]
		}
	]}}`

	goals, err := DecodeGoals([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if len(goals) != 2 {
		t.Fatalf("decoded %d goals, want 2", len(goals))
	}

	first := goals[0]
	if first.EventId != 102 || first.TeamAbbrev != "NJD" || first.Scorer != "Jack Hughes" {
		t.Errorf("first goal = %+v", first)
	}
	if first.Period != 1 || first.HighlightClip != 601234 {
		t.Errorf("first goal = %+v", first)
	}
	if len(first.Assists) != 1 || first.Assists[0].Name != "Nico Hischier" || first.Assists[0].Total != 30 {
		t.Errorf("assists = %+v", first.Assists)
	}

	second := goals[1]
	if second.HighlightClip != 0 {
		t.Error("a goal without a clip decodes with a zero clip")
	}
	if second.AssistLine() != "None" {
		t.Errorf("assist line = %q", second.AssistLine())
	}
}

func TestDecodeTeams(t *testing.T) {
	payload := `{"data": [
		{"teams": [
			{
				"id": 1,
				"triCode": "NJD",
				"placeName": "New Jersey",
				"fullName": "New Jersey Devils",
				"division": {"name": "Metropolitan"},
				"conference": {"name": "Eastern"}
			}
		]}
	]}`
	teams, err := DecodeTeams([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if len(teams) != 1 {
		t.Fatalf("decoded %d teams, want 1", len(teams))
	}
	team := teams[0]
	if team.Id != 1 || team.Abbrev != "NJD" || team.FullName != "New Jersey Devils" {
		t.Errorf("team = %+v", team)
	}
	if team.Division != "Metropolitan" || team.Conference != "Eastern" {
		t.Errorf("team = %+v", team)
	}
}
