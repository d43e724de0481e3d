package bot

import (
	"fmt"

	"rinkbot/internal/nhlapi"
	"rinkbot/internal/store"
)

func NoGameResponse() string {
	return "No game on the calendar right now. Golf!"
}

func GameStatusResponse(game nhlapi.GameSnapshot, tracked nhlapi.TeamId) string {
	switch {
	case game.IsLive():
		return fmt.Sprintf("**%s %d - %s %d** (%s)",
			game.AwayAbbrev, game.AwayScore, game.HomeAbbrev, game.HomeScore, game.TimeRemaining())
	case game.IsFinal():
		return fmt.Sprintf("Final: **%s %d - %s %d**",
			game.AwayAbbrev, game.AwayScore, game.HomeAbbrev, game.HomeScore)
	default:
		return NextGameResponse(game, tracked)
	}
}

func NextGameResponse(game nhlapi.GameSnapshot, tracked nhlapi.TeamId) string {
	var matchup string
	if game.IsHome(tracked) {
		matchup = fmt.Sprintf("against the **%s**", game.AwayName)
	} else {
		matchup = fmt.Sprintf("at the **%s**", game.HomeName)
	}
	if !game.HasStartTime() {
		return fmt.Sprintf("Next up we're playing %s, time TBD", matchup)
	}
	epoch := game.StartTimeUTC.Unix()
	return fmt.Sprintf("Next up we're playing %s @<t:%d:t> on <t:%d:D>", matchup, epoch, epoch)
}

func RecordResponse(record store.Record) string {
	if record.Wins == 0 && record.Losses == 0 {
		return "No graded picks yet this season"
	}
	return fmt.Sprintf("Your record this season: **%d - %d**", record.Wins, record.Losses)
}

func PickConfirmation(team string) string {
	return fmt.Sprintf("You picked the **%s**!", team)
}

func PicksLockedResponse() string {
	return "Picks are locked for this game"
}

func NotAllowedResponse() string {
	return "You need to be an admin to do that"
}
