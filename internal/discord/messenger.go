package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"planningwatch/internal/notify"
)

// Broadcast posts the descriptor with a role mention: the mapped channel
// when one is configured for the role, otherwise the first joined guild
// that has the role assigned to at least one member and a text channel
// the bot can post in.
func (b *Bot) Broadcast(ctx context.Context, roleName string, d *notify.Descriptor) error {
	embed := toEmbed(d)

	if channelID, ok := b.roleChannelMap[roleName]; ok {
		err := b.sendToMappedChannel(channelID, roleName, embed)
		if err == nil {
			return nil
		}

		b.log.ErrorContext(ctx, "Failed to post to mapped channel, falling back to guild scan",
			"error", err,
			"channelID", channelID,
			"roleName", roleName)
	}

	posted := false

	for _, guild := range b.session.State.Guilds {
		role := findRoleByName(guild.Roles, roleName)
		if role == nil || !roleHasMembers(guild, role.ID) {
			continue
		}

		channel := b.postableTextChannel(guild)
		if channel == nil {
			continue
		}

		_, err := b.session.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
			Content: roleMention(role),
			Embeds:  []*discordgo.MessageEmbed{embed},
		})
		if err != nil {
			b.log.ErrorContext(ctx, "Failed to post broadcast in guild",
				"error", err,
				"guildID", guild.ID,
				"roleName", roleName)

			continue
		}

		posted = true
	}

	if !posted {
		return fmt.Errorf("no channel accepted broadcast for role %s", roleName)
	}

	return nil
}

// DirectMessage delivers the descriptor to the user's DM channel.
func (b *Bot) DirectMessage(_ context.Context, userID string, d *notify.Descriptor) error {
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("create DM channel: %w", err)
	}

	if _, err := b.session.ChannelMessageSendEmbed(channel.ID, toEmbed(d)); err != nil {
		return fmt.Errorf("send DM: %w", err)
	}

	return nil
}

func (b *Bot) sendToMappedChannel(channelID, roleName string, embed *discordgo.MessageEmbed) error {
	channel, err := b.session.State.Channel(channelID)
	if err != nil {
		channel, err = b.session.Channel(channelID)
		if err != nil {
			return fmt.Errorf("fetch channel: %w", err)
		}
	}

	content := roleName

	if guild, err := b.session.State.Guild(channel.GuildID); err == nil {
		if role := findRoleByName(guild.Roles, roleName); role != nil {
			content = roleMention(role)
		}
	}

	_, err = b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func (b *Bot) postableTextChannel(guild *discordgo.Guild) *discordgo.Channel {
	if guild.SystemChannelID != "" {
		if channel, err := b.session.State.Channel(guild.SystemChannelID); err == nil {
			return channel
		}
	}

	for _, channel := range guild.Channels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}

		perms, err := b.session.State.UserChannelPermissions(b.session.State.User.ID, channel.ID)
		if err != nil || perms&discordgo.PermissionSendMessages == 0 {
			continue
		}

		return channel
	}

	return nil
}

func findRoleByName(roles []*discordgo.Role, name string) *discordgo.Role {
	for _, role := range roles {
		if role.Name == name {
			return role
		}
	}

	return nil
}

func roleHasMembers(guild *discordgo.Guild, roleID string) bool {
	for _, member := range guild.Members {
		for _, id := range member.Roles {
			if id == roleID {
				return true
			}
		}
	}

	return false
}

func roleMention(role *discordgo.Role) string {
	return fmt.Sprintf("<@&%s>", role.ID)
}

func toEmbed(d *notify.Descriptor) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(d.Fields))
	for _, f := range d.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       d.Title,
		Color:       d.Color,
		Description: fmt.Sprintf("[Voir dans l'emploi du temps](%s)", d.Link),
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: d.FooterLabel},
		Timestamp:   d.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
}
