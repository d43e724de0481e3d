package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Gate flips the send permission of a role on a channel. The channels
// stay visible when closed, members just cannot talk in them
type Gate struct {
	session *discordgo.Session
}

func NewGate(session *discordgo.Session) *Gate {
	return &Gate{session: session}
}

func (g *Gate) channel(ctx context.Context, channelId string) (*discordgo.Channel, error) {
	if channel, err := g.session.State.Channel(channelId); err == nil {
		return channel, nil
	}
	channel, err := g.session.Channel(channelId, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("could not fetch channel %s: %w", channelId, err)
	}
	return channel, nil
}

func (g *Gate) overwrite(ctx context.Context, channelId string, roleId string) (allow int64, deny int64, err error) {
	channel, err := g.channel(ctx, channelId)
	if err != nil {
		return 0, 0, err
	}
	for _, ow := range channel.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeRole && ow.ID == roleId {
			return ow.Allow, ow.Deny, nil
		}
	}
	return 0, 0, nil
}

// A channel counts as open for a role when the role's overwrite
// explicitly allows sending messages
func (g *Gate) IsOpen(ctx context.Context, channelId string, roleId string) (bool, error) {
	allow, _, err := g.overwrite(ctx, channelId, roleId)
	if err != nil {
		return false, err
	}
	return allow&discordgo.PermissionSendMessages != 0, nil
}

// Open and Close only move the send messages bit, every other bit of
// the role's overwrite stays as the admins configured it
func (g *Gate) Open(ctx context.Context, channelId string, roleId string) error {
	allow, deny, err := g.overwrite(ctx, channelId, roleId)
	if err != nil {
		return err
	}
	allow |= discordgo.PermissionSendMessages
	deny &^= discordgo.PermissionSendMessages
	return g.session.ChannelPermissionSet(channelId, roleId, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
}

func (g *Gate) Close(ctx context.Context, channelId string, roleId string) error {
	allow, deny, err := g.overwrite(ctx, channelId, roleId)
	if err != nil {
		return err
	}
	allow &^= discordgo.PermissionSendMessages
	deny |= discordgo.PermissionSendMessages
	return g.session.ChannelPermissionSet(channelId, roleId, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
}

func (g *Gate) Send(ctx context.Context, channelId string, content string) error {
	_, err := g.session.ChannelMessageSend(channelId, content, discordgo.WithContext(ctx))
	return err
}

func (g *Gate) SetTopic(ctx context.Context, channelId string, topic string) error {
	_, err := g.session.ChannelEdit(channelId, &discordgo.ChannelEdit{Topic: topic}, discordgo.WithContext(ctx))
	return err
}

// Renames the category the channel sits under, not the channel itself
func (g *Gate) SetCategoryName(ctx context.Context, channelId string, name string) error {
	channel, err := g.channel(ctx, channelId)
	if err != nil {
		return err
	}
	if channel.ParentID == "" {
		return fmt.Errorf("channel %s has no category", channelId)
	}
	_, err = g.session.ChannelEdit(channel.ParentID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return err
}

func (g *Gate) SetPresence(ctx context.Context, activity string) error {
	return g.session.UpdateGameStatus(0, activity)
}
