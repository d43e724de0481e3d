package orchestrator

import (
	"strings"
	"testing"
	"time"

	"rinkbot/internal/nhlapi"
)

func TestCategoryNameFor(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	game := nhlapi.GameSnapshot{
		AwayAbbrev:   "NYR",
		HomeAbbrev:   "NJD",
		StartTimeUTC: time.Date(2026, 3, 15, 23, 5, 0, 0, time.UTC),
	}
	want := "NYR @ NJD 3/15 7:05 PM"
	if got := CategoryNameFor(game, loc); got != want {
		t.Errorf("category = %q, want %q", got, want)
	}

	tbd := nhlapi.GameSnapshot{AwayAbbrev: "NYR", HomeAbbrev: "NJD"}
	if got := CategoryNameFor(tbd, loc); got != "NYR @ NJD TBD" {
		t.Errorf("category = %q", got)
	}
}

func TestNextGameLine(t *testing.T) {
	game := nhlapi.GameSnapshot{
		HomeTeamId:   1,
		AwayTeamId:   3,
		HomeName:     "New Jersey Devils",
		AwayName:     "New York Rangers",
		StartTimeUTC: time.Date(2026, 3, 15, 23, 5, 0, 0, time.UTC),
	}

	home := NextGameLine(game, 1)
	if !strings.Contains(home, "against the **New York Rangers**") {
		t.Errorf("home line = %q", home)
	}
	away := NextGameLine(game, 3)
	if !strings.Contains(away, "at the **New Jersey Devils**") {
		t.Errorf("away line = %q", away)
	}
	// Discord timestamps render in the reader's timezone
	if !strings.Contains(home, "<t:") {
		t.Errorf("line = %q, want a discord timestamp", home)
	}
}

func TestPresenceFor(t *testing.T) {
	loc := time.UTC
	game := nhlapi.GameSnapshot{
		HomeTeamId:   1,
		AwayTeamId:   3,
		HomeAbbrev:   "NJD",
		AwayAbbrev:   "NYR",
		StartTimeUTC: time.Date(2026, 3, 15, 19, 5, 0, 0, time.UTC),
	}
	if got := PresenceFor(game, 1, loc); got != "NYR on 3/15 7:05 PM" {
		t.Errorf("presence = %q", got)
	}

	tbd := game
	tbd.StartTimeUTC = time.Time{}
	if got := PresenceFor(tbd, 1, loc); got != "NYR, time TBD" {
		t.Errorf("presence = %q", got)
	}
}

func TestShortTime(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         string
	}{
		{0, 5, "12:05 AM"},
		{9, 30, "9:30 AM"},
		{12, 0, "12:00 PM"},
		{19, 5, "7:05 PM"},
	}
	for _, tc := range cases {
		at := time.Date(2026, 3, 15, tc.hour, tc.minute, 0, 0, time.UTC)
		if got := shortTime(at); got != tc.want {
			t.Errorf("shortTime(%02d:%02d) = %q, want %q", tc.hour, tc.minute, got, tc.want)
		}
	}
}
