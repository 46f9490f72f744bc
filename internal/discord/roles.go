package discord

import "github.com/bwmarrin/discordgo"

const roleColor = 0x36393F

// ensureRoles creates any notification role missing from the guild so
// that subscribers can be mentioned from day one.
func (b *Bot) ensureRoles(guildID string) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		b.log.Error("Failed to resolve guild for role upkeep",
			"error", err,
			"guildID", guildID)

		return
	}

	for _, roleName := range b.roles {
		if findRoleByName(guild.Roles, roleName) != nil {
			continue
		}

		mentionable := true
		color := roleColor

		_, err := b.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
			Name:        roleName,
			Color:       &color,
			Mentionable: &mentionable,
		})
		if err != nil {
			b.log.Error("Failed to create notification role",
				"error", err,
				"guildID", guildID,
				"roleName", roleName)

			continue
		}

		b.log.Info("Created notification role",
			"guildID", guildID,
			"roleName", roleName)
	}
}
