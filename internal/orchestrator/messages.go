package orchestrator

import (
	"fmt"
	"time"

	"rinkbot/internal/nhlapi"
)

func OpenMessage(opponent string) string {
	return fmt.Sprintf("Game chat is open! We're playing the **%s**", opponent)
}

func ClosingMessage(delay time.Duration) string {
	return fmt.Sprintf("Closing chat in %d minutes!", int(delay.Minutes()))
}

func ClosedMessage(rest string) string {
	return fmt.Sprintf("Chat is closed!\n%s", rest)
}

// The "join us next time" line, with Discord rendering the timestamp
// in every reader's own timezone
func NextGameLine(game nhlapi.GameSnapshot, tracked nhlapi.TeamId) string {
	var matchup string
	if game.IsHome(tracked) {
		matchup = fmt.Sprintf("against the **%s**", game.AwayName)
	} else {
		matchup = fmt.Sprintf("at the **%s**", game.HomeName)
	}
	if !game.HasStartTime() {
		return fmt.Sprintf("Join us again when we're playing %s, time TBD!", matchup)
	}
	epoch := game.StartTimeUTC.Unix()
	return fmt.Sprintf("Join us again when we're playing %s @<t:%d:t> on <t:%d:D> next!", matchup, epoch, epoch)
}

// Bot presence while a game is tracked, e.g. "NYR on 3/15 7:05 PM"
func PresenceFor(game nhlapi.GameSnapshot, tracked nhlapi.TeamId, loc *time.Location) string {
	opponent := game.OpponentAbbrev(tracked)
	if !game.HasStartTime() {
		return fmt.Sprintf("%s, time TBD", opponent)
	}
	local := game.StartTimeUTC.In(loc)
	return fmt.Sprintf("%s on %s %s", opponent, shortDate(local), shortTime(local))
}

// Category header over the game channels, e.g. "NYR @ NJD 3/15 7:05 PM"
func CategoryNameFor(game nhlapi.GameSnapshot, loc *time.Location) string {
	when := "TBD"
	if game.HasStartTime() {
		local := game.StartTimeUTC.In(loc)
		when = fmt.Sprintf("%s %s", shortDate(local), shortTime(local))
	}
	return fmt.Sprintf("%s @ %s %s", game.AwayAbbrev, game.HomeAbbrev, when)
}

func TopicFor(game nhlapi.GameSnapshot) string {
	return fmt.Sprintf("%s at %s", game.AwayName, game.HomeName)
}

func ScoreTopicFor(game nhlapi.GameSnapshot) string {
	return fmt.Sprintf("%s %d - %s %d", game.AwayName, game.AwayScore, game.HomeName, game.HomeScore)
}

// Dates without leading zeros, the reference time layouts cannot
// produce "3/5"
func shortDate(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

func shortTime(t time.Time) string {
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	meridiem := "AM"
	if t.Hour() >= 12 {
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), meridiem)
}
