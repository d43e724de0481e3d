package bot

import (
	"context"
	"fmt"
	"time"

	"rinkbot/internal/nhlapi"
	"rinkbot/internal/store"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// What the bot needs to know about the tracked game
type Tracker interface {
	CurrentGame() (nhlapi.GameSnapshot, bool)
	ChatOpen() bool
}

type Config struct {
	Token      string
	GuildId    string
	TeamId     nhlapi.TeamId
	TeamAbbrev string
	Location   *time.Location
}

type Bot struct {
	session  *discordgo.Session
	cfg      Config
	api      *nhlapi.Client
	tracker  Tracker
	gate     *Gate
	settings *store.SettingsStore
	picks    *store.PickemsStore

	// Injected for tests
	ack   func(interaction *discordgo.InteractionCreate) bool
	reply func(interaction *discordgo.InteractionCreate, content string)
}

func CreateBot(cfg Config, api *nhlapi.Client, settings *store.SettingsStore, picks *store.PickemsStore) (*Bot, error) {

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	bot := &Bot{
		session:  session,
		cfg:      cfg,
		api:      api,
		gate:     NewGate(session),
		settings: settings,
		picks:    picks,
	}
	bot.ack = bot.acknowledge
	bot.reply = bot.deliver
	session.AddHandler(bot.interactionCreate)

	return bot, nil
}

// The tracker gets wired after construction, the orchestrator needs
// the bot's gate first
func (bot *Bot) SetTracker(tracker Tracker) {
	bot.tracker = tracker
}

// The session is shared with the side effect surfaces built on it
func (bot *Bot) Session() *discordgo.Session {
	return bot.session
}

func (bot *Bot) Gate() *Gate {
	return bot.gate
}

// Run connects the gateway, registers the slash commands on the guild
// and blocks until the context is cancelled
func (bot *Bot) Run(ctx context.Context) error {

	if err := bot.session.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer bot.session.Close()

	for _, command := range commands() {
		_, err := bot.session.ApplicationCommandCreate(bot.session.State.User.ID, bot.cfg.GuildId, command)
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not create command %s", command.Name))
		}
	}

	log.Info().Msg("Bot is running")
	<-ctx.Done()
	return ctx.Err()
}

func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "game",
			Description: "Score and status of the current game",
		},
		{
			Name:        "nextgame",
			Description: "When we play next",
		},
		{
			Name:        "record",
			Description: "Your pickems record this season",
		},
		{
			Name:        "open",
			Description: "Open the game channels by hand (admin)",
		},
		{
			Name:        "close",
			Description: "Close the game channels by hand (admin)",
		},
	}
}

func (bot *Bot) interactionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {

	ctx := context.Background()

	// Discord invalidates an interaction three seconds after delivery
	// and the feed calls behind these handlers can take longer, so
	// acknowledge first and fill in the answer once it is ready
	if !bot.ack(interaction) {
		return
	}

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		name := interaction.ApplicationCommandData().Name
		log.Info().Msg(fmt.Sprintf("Received command /%s", name))
		switch name {
		case "game":
			bot.reply(interaction, bot.game(ctx))
		case "nextgame":
			bot.reply(interaction, bot.nextGame(ctx))
		case "record":
			bot.reply(interaction, bot.record(interaction))
		case "open":
			bot.reply(interaction, bot.setChat(ctx, interaction, true))
		case "close":
			bot.reply(interaction, bot.setChat(ctx, interaction, false))
		default:
			log.Warn().Msg(fmt.Sprintf("Unknown command %s", name))
		}
	case discordgo.InteractionMessageComponent:
		bot.reply(interaction, bot.pick(ctx, interaction))
	}
}

func (bot *Bot) acknowledge(interaction *discordgo.InteractionCreate) bool {
	err := bot.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Could not acknowledge interaction")
		return false
	}
	return true
}

// Fill in the deferred response
func (bot *Bot) deliver(interaction *discordgo.InteractionCreate, content string) {
	_, err := bot.session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Could not respond to interaction")
	}
}

func (bot *Bot) game(ctx context.Context) string {
	if bot.tracker == nil {
		return bot.nextGame(ctx)
	}
	game, ok := bot.tracker.CurrentGame()
	if !ok {
		return bot.nextGame(ctx)
	}
	// The tracked snapshot can be a poll behind, refresh for the score
	fresh, err := bot.api.Refresh(ctx, game.Id)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not refresh game %d", game.Id))
		fresh = game
	}
	response := GameStatusResponse(fresh, bot.cfg.TeamId)
	if !fresh.IsLive() && bot.tracker.ChatOpen() {
		response += "\nGame chat is open!"
	}
	return response
}

func (bot *Bot) nextGame(ctx context.Context) string {
	games, err := bot.api.FetchTeamSchedule(ctx, bot.cfg.TeamAbbrev)
	if err != nil {
		log.Warn().Err(err).Msg("Could not fetch the team schedule")
		return "Could not reach the schedule, try again in a bit"
	}
	game, ok := nhlapi.NextGame(games, time.Now())
	if !ok {
		return NoGameResponse()
	}
	return NextGameResponse(game, bot.cfg.TeamId)
}

func (bot *Bot) record(interaction *discordgo.InteractionCreate) string {
	if interaction.Member == nil {
		return "Records only exist inside the server"
	}
	season := nhlapi.SeasonOf(time.Now())
	record, err := bot.picks.GetRecord(season, interaction.Member.User.ID)
	if err != nil && err != store.NotFoundErr {
		log.Warn().Err(err).Msg("Could not load the record")
		return "Could not load your record, try again in a bit"
	}
	return RecordResponse(record)
}

// Manual override for the game channels, for when a game gets added
// or the schedule lies
func (bot *Bot) setChat(ctx context.Context, interaction *discordgo.InteractionCreate, open bool) string {

	if interaction.Member == nil || interaction.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		return NotAllowedResponse()
	}

	channels, err := bot.settings.Channels(store.GameChannels)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load the game channels")
		return "Could not load the channel settings"
	}
	roles, err := bot.settings.Roles(store.GameChannels)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load the game channel roles")
		return "Could not load the channel settings"
	}

	for _, channelid := range channels {
		for _, roleid := range roles {
			var err error
			if open {
				err = bot.gate.Open(ctx, channelid, roleid)
			} else {
				err = bot.gate.Close(ctx, channelid, roleid)
			}
			if err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not flip channel %s for role %s", channelid, roleid))
			}
		}
	}

	if open {
		return "Game channels opened"
	}
	return "Game channels closed"
}

// A press on one of the two team buttons of a prediction message
func (bot *Bot) pick(ctx context.Context, interaction *discordgo.InteractionCreate) string {

	if interaction.Member == nil {
		return "Picks only work inside the server"
	}

	var gameid nhlapi.GameId
	var teamid nhlapi.TeamId
	customid := interaction.MessageComponentData().CustomID
	if _, err := fmt.Sscanf(customid, "pick:%d:%d", &gameid, &teamid); err != nil {
		log.Warn().Msg(fmt.Sprintf("Unknown component id %s", customid))
		return "That button does nothing anymore"
	}

	msg, err := bot.picks.GetMessage(gameid)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("No message record for game %d", gameid))
		return "That game is not taking picks"
	}
	if msg.Locked {
		return PicksLockedResponse()
	}

	pick := store.Pick{
		UserId:   interaction.Member.User.ID,
		GameId:   gameid,
		TeamId:   teamid,
		Season:   msg.Season,
		Date:     msg.Date,
		PickedAt: time.Now(),
	}
	if err := bot.picks.PutPick(pick); err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not store the pick of %s on game %d", pick.UserId, gameid))
		return "Could not save your pick, try again"
	}

	team, err := bot.api.GetTeam(ctx, teamid)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not resolve team %d", teamid))
		return PickConfirmation(fmt.Sprintf("team %d", teamid))
	}
	return PickConfirmation(team.FullName)
}
