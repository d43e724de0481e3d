package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"rinkbot/internal/nhlapi"
	"rinkbot/internal/store"
)

func TestGameStatusResponse(t *testing.T) {
	game := nhlapi.GameSnapshot{
		HomeTeamId:    1,
		AwayTeamId:    3,
		HomeAbbrev:    "NJD",
		AwayAbbrev:    "NYR",
		HomeName:      "New Jersey Devils",
		AwayName:      "New York Rangers",
		HomeScore:     3,
		AwayScore:     2,
		State:         nhlapi.GameStateLive,
		ScheduleState: nhlapi.ScheduleStateOK,
		Period:        2,
		Clock:         "10:34",
	}

	live := GameStatusResponse(game, 1)
	if !strings.Contains(live, "NYR 2") || !strings.Contains(live, "NJD 3") {
		t.Errorf("live = %q", live)
	}
	if !strings.Contains(live, "2nd 10:34") {
		t.Errorf("live = %q, want the clock", live)
	}

	game.State = nhlapi.GameStateFinal
	final := GameStatusResponse(game, 1)
	if !strings.HasPrefix(final, "Final:") {
		t.Errorf("final = %q", final)
	}

	game.State = nhlapi.GameStateScheduled
	game.StartTimeUTC = time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	upcoming := GameStatusResponse(game, 1)
	if !strings.Contains(upcoming, "against the **New York Rangers**") {
		t.Errorf("upcoming = %q", upcoming)
	}
}

func TestRecordResponse(t *testing.T) {
	if got := RecordResponse(store.Record{}); !strings.Contains(got, "No graded picks") {
		t.Errorf("empty record = %q", got)
	}
	got := RecordResponse(store.Record{Wins: 12, Losses: 5})
	if !strings.Contains(got, "12 - 5") {
		t.Errorf("record = %q", got)
	}
}

func TestPickCustomIdRoundTrip(t *testing.T) {
	customid := pickCustomId(2025020123, 54)

	var gameid nhlapi.GameId
	var teamid nhlapi.TeamId
	if _, err := fmt.Sscanf(customid, "pick:%d:%d", &gameid, &teamid); err != nil {
		t.Fatal(err)
	}
	if gameid != 2025020123 || teamid != 54 {
		t.Errorf("parsed %d / %d", gameid, teamid)
	}
}

func TestPickContent(t *testing.T) {
	game := nhlapi.GameSnapshot{
		HomeName:     "New Jersey Devils",
		AwayName:     "New York Rangers",
		StartTimeUTC: time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC),
	}
	content := pickContent(game)
	if !strings.Contains(content, "New York Rangers @ New Jersey Devils") {
		t.Errorf("content = %q", content)
	}
	if !strings.Contains(content, "<t:") {
		t.Errorf("content = %q, want a discord timestamp", content)
	}

	tbd := game
	tbd.StartTimeUTC = time.Time{}
	if !strings.Contains(pickContent(tbd), "TBD") {
		t.Errorf("content = %q", pickContent(tbd))
	}
}

func TestPickButtons(t *testing.T) {
	game := nhlapi.GameSnapshot{
		Id:         100,
		HomeTeamId: 1,
		AwayTeamId: 3,
		HomeName:   "New Jersey Devils",
		AwayName:   "New York Rangers",
	}
	components := pickButtons(game, true)
	if len(components) != 1 {
		t.Fatalf("components = %d rows", len(components))
	}
}
