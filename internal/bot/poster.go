package bot

import (
	"context"
	"fmt"

	"rinkbot/internal/nhlapi"
	"rinkbot/internal/store"

	"github.com/bwmarrin/discordgo"
)

// Poster sends the daily prediction messages, one button per team
type Poster struct {
	session *discordgo.Session
}

func NewPoster(session *discordgo.Session) *Poster {
	return &Poster{session: session}
}

func pickCustomId(game nhlapi.GameId, team nhlapi.TeamId) string {
	return fmt.Sprintf("pick:%d:%d", game, team)
}

func pickButtons(game nhlapi.GameSnapshot, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    game.AwayName,
					Style:    discordgo.PrimaryButton,
					CustomID: pickCustomId(game.Id, game.AwayTeamId),
					Disabled: disabled,
				},
				discordgo.Button{
					Label:    game.HomeName,
					Style:    discordgo.PrimaryButton,
					CustomID: pickCustomId(game.Id, game.HomeTeamId),
					Disabled: disabled,
				},
			},
		},
	}
}

func pickContent(game nhlapi.GameSnapshot) string {
	if !game.HasStartTime() {
		return fmt.Sprintf("**%s @ %s** at a time TBD. Who wins?", game.AwayName, game.HomeName)
	}
	epoch := game.StartTimeUTC.Unix()
	return fmt.Sprintf("**%s @ %s** at <t:%d:t>. Who wins?", game.AwayName, game.HomeName, epoch)
}

func (p *Poster) PostGame(ctx context.Context, channelId string, game nhlapi.GameSnapshot) (store.MessageRef, error) {
	message, err := p.session.ChannelMessageSendComplex(channelId, &discordgo.MessageSend{
		Content:    pickContent(game),
		Components: pickButtons(game, false),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return store.MessageRef{}, fmt.Errorf("could not post prediction message for game %d: %w", game.Id, err)
	}
	return store.MessageRef{ChannelId: message.ChannelID, MessageId: message.ID}, nil
}

func (p *Poster) DisableButtons(ctx context.Context, ref store.MessageRef, game nhlapi.GameSnapshot) error {
	edit := discordgo.NewMessageEdit(ref.ChannelId, ref.MessageId)
	components := pickButtons(game, true)
	edit.Components = &components
	_, err := p.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("could not disable buttons for game %d: %w", game.Id, err)
	}
	return nil
}
