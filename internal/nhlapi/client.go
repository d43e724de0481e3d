package nhlapi

import (
	"context"
	"fmt"
	"time"

	"rinkbot/internal/common"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
)

// NHL web api
const API_SCHEMA = "https://api-web.nhle.com/v1"

// Routes inside the api
const ROUTE_TEAM_SCHEDULE = "/club-schedule-season/%s/%s"
const ROUTE_DATE_SCHEDULE = "/schedule/%s"
const ROUTE_GAME = "/gamecenter/%d/landing"

// The records endpoint resolves team ids into names and abbreviations
const TEAMS_URL = "https://records.nhl.com/site/api/franchise" +
	"?include=teams.id&include=teams.active&include=teams.triCode" +
	"&include=teams.placeName&include=teams.commonName&include=teams.fullName" +
	"&include=teams.conference.name&include=teams.division.name"

// Highlight clips live on a separate video service
const HIGHLIGHT_URL = "https://players.brightcove.net/6415718365001/EXtG1xJ7H_default/index.html?videoId=%d"

const teamCacheSize = 64

// Teams rarely change, but they do: relocations and expansion land
// every few seasons. Purge the cache once a day and re-fetch
const teamCacheTTL = 24 * time.Hour

type Client struct {
	proxy        common.Proxy
	teams        *lru.Cache
	housekeeping common.TimedExecutor
}

func NewClient(restrictions []common.Restriction) Client {

	// The team cache can never fail to build with a positive size
	cache, err := lru.New(teamCacheSize)
	if err != nil {
		panic(fmt.Sprintf("could not create team cache: %v", err))
	}
	client := Client{
		proxy: common.NewProxy(map[string]string{}, restrictions),
		teams: cache,
	}
	client.housekeeping = common.NewTimedExecutor(teamCacheTTL, cache.Purge)
	return client
}

// Fetch the full season schedule for a team, identified by its
// abbreviation, ordered as the feed orders it (chronologically)
func (client *Client) FetchTeamSchedule(ctx context.Context, team string) ([]GameSnapshot, error) {

	season := SeasonOf(time.Now())
	url := API_SCHEMA + fmt.Sprintf(ROUTE_TEAM_SCHEDULE, team, season)
	data, err := client.proxy.Request(ctx, url, true)
	if err != nil {
		return nil, fmt.Errorf("could not fetch schedule for team %s: %w", team, err)
	}

	return DecodeTeamSchedule(data)
}

// Fetch the league-wide schedule for one calendar date
func (client *Client) FetchScheduleForDate(ctx context.Context, date time.Time) ([]GameSnapshot, error) {

	day := date.Format("2006-01-02")
	url := API_SCHEMA + fmt.Sprintf(ROUTE_DATE_SCHEDULE, day)
	data, err := client.proxy.Request(ctx, url, true)
	if err != nil {
		return nil, fmt.Errorf("could not fetch schedule for date %s: %w", day, err)
	}

	return DecodeDateSchedule(data)
}

// Re-fetch a game by id. The refreshed snapshot only carries what the
// landing payload knows: the playoff round comes from the schedule
// context and has to be re-attached by the caller
func (client *Client) Refresh(ctx context.Context, id GameId) (GameSnapshot, error) {

	url := API_SCHEMA + fmt.Sprintf(ROUTE_GAME, id)
	data, err := client.proxy.Request(ctx, url, true)
	if err != nil {
		return GameSnapshot{}, fmt.Errorf("could not refresh game %d: %w", id, err)
	}

	return DecodeGame(data)
}

// Fetch the scoring events of a game
func (client *Client) FetchGoals(ctx context.Context, id GameId) ([]GoalEvent, error) {

	url := API_SCHEMA + fmt.Sprintf(ROUTE_GAME, id)
	data, err := client.proxy.Request(ctx, url, true)
	if err != nil {
		return nil, fmt.Errorf("could not fetch goals for game %d: %w", id, err)
	}

	return DecodeGoals(data)
}

// Resolve the url of a highlight clip. Best effort, a goal without
// a clip id has no url
func (client *Client) HighlightUrl(clip int64) (string, error) {
	if clip == 0 {
		return "", fmt.Errorf("goal has no highlight clip")
	}
	return fmt.Sprintf(HIGHLIGHT_URL, clip), nil
}

// Look up a team by id.
// The full franchise list gets fetched on the first miss and every
// active team lands in the cache
func (client *Client) GetTeam(ctx context.Context, id TeamId) (Team, error) {

	client.housekeeping.Execute()

	// Check cache
	if team, ok := client.teams.Get(id); ok {
		return team.(Team), nil
	}
	log.Debug().Msg(fmt.Sprintf("Team %d is not in the cache", id))

	// Request
	data, err := client.proxy.Request(ctx, TEAMS_URL, true)
	if err != nil {
		return Team{}, fmt.Errorf("could not fetch teams: %w", err)
	}

	// Decode
	teams, err := DecodeTeams(data)
	if err != nil {
		return Team{}, err
	}

	// Update cache
	for _, team := range teams {
		client.teams.Add(team.Id, team)
	}

	if team, ok := client.teams.Get(id); ok {
		return team.(Team), nil
	}
	return Team{}, fmt.Errorf("could not find team with id %d", id)
}
