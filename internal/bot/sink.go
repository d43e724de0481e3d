package bot

import (
	"context"
	"fmt"

	"rinkbot/internal/nhlapi"
	"rinkbot/internal/store"

	"github.com/bwmarrin/discordgo"
)

// Sink posts goal announcements to the highlight channel
type Sink struct {
	session *discordgo.Session
}

func NewSink(session *discordgo.Session) *Sink {
	return &Sink{session: session}
}

func goalEmbed(goal nhlapi.GoalEvent) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "GOAL!",
		Description: goal.Description(),
		Color:       0xce1126,
	}
	if assists := goal.AssistLine(); assists != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Assists",
			Value: assists,
		})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: goal.TimeOfGoal()}
	return embed
}

// The clip link goes in the message content so Discord renders the
// video player, embeds do not play video
func (s *Sink) PostGoal(ctx context.Context, channelId string, goal nhlapi.GoalEvent, url string) (store.MessageRef, error) {
	send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{goalEmbed(goal)}}
	if url != "" {
		send.Content = url
	}
	message, err := s.session.ChannelMessageSendComplex(channelId, send, discordgo.WithContext(ctx))
	if err != nil {
		return store.MessageRef{}, fmt.Errorf("could not post goal %d: %w", goal.EventId, err)
	}
	return store.MessageRef{ChannelId: message.ChannelID, MessageId: message.ID}, nil
}

func (s *Sink) EditGoal(ctx context.Context, ref store.MessageRef, goal nhlapi.GoalEvent) error {
	edit := discordgo.NewMessageEdit(ref.ChannelId, ref.MessageId)
	embeds := []*discordgo.MessageEmbed{goalEmbed(goal)}
	edit.Embeds = &embeds
	_, err := s.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("could not edit goal %d: %w", goal.EventId, err)
	}
	return nil
}
