package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"planningwatch/internal/domain"
	"planningwatch/internal/notify"
)

const (
	buttonToggleMention = "roles_toggle_mention"
	buttonToggleDM      = "roles_toggle_dm"

	// preferencesMarker identifies the bot's own preferences message so
	// restarts do not post duplicates.
	preferencesMarker = "ci-dessous pour activer"

	preferencesColor       = 0x26a1fd
	preferencesScanLimit   = 50
	preferencesDescription = "**Ne manque plus aucun changement de cours !**\n\n" +
		"Toutes les modifications de l'emploi du temps sont détectées et envoyées dans le salon #changement-cours.\n\n" +
		"Pour être sûr de ne rien manquer, tu peux activer une ou plusieurs des options ci-dessous :"
)

// ensurePreferencesMessage posts the toggle-buttons message in the roles
// channel unless a previous run already left one there.
func (b *Bot) ensurePreferencesMessage() {
	if b.rolesChannelID == "" {
		return
	}

	messages, err := b.session.ChannelMessages(b.rolesChannelID, preferencesScanLimit, "", "", "")
	if err != nil {
		b.log.Error("Failed to scan roles channel for preferences message",
			"error", err,
			"channelID", b.rolesChannelID)

		return
	}

	for _, m := range messages {
		if m.Author != nil && m.Author.ID == b.session.State.User.ID && hasPreferencesMarker(m) {
			return
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Préférences de notification",
		Color:       preferencesColor,
		Description: preferencesDescription,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Mention",
				Value:  "Tu seras notifié dans le salon #changement-cours à chaque fois qu'un changement sera détecté dans l'emploi du temps",
				Inline: true,
			},
			{
				Name:   "Message privé",
				Value:  "Tu recevras un message privé à chaque fois qu'un changement sera détecté dans l'emploi du temps",
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Utilise les boutons ci-dessous pour activer ou désactiver chaque option.",
		},
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					CustomID: buttonToggleMention,
					Label:    "Mention",
					Style:    discordgo.SecondaryButton,
				},
				discordgo.Button{
					CustomID: buttonToggleDM,
					Label:    "Message privé",
					Style:    discordgo.SecondaryButton,
				},
			},
		},
	}

	_, err = b.session.ChannelMessageSendComplex(b.rolesChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		b.log.Error("Failed to post preferences message",
			"error", err,
			"channelID", b.rolesChannelID)

		return
	}

	b.log.Info("Posted preferences message",
		"channelID", b.rolesChannelID)
}

func hasPreferencesMarker(m *discordgo.Message) bool {
	for _, e := range m.Embeds {
		if e.Footer != nil && containsMarker(e.Footer.Text) {
			return true
		}

		if containsMarker(e.Description) {
			return true
		}
	}

	return containsMarker(m.Content)
}

func containsMarker(s string) bool {
	return s != "" && strings.Contains(s, preferencesMarker)
}

func (b *Bot) onButton(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		b.replyEphemeral(i, "Cette action doit être effectuée depuis un serveur.")

		return
	}

	group, ok := b.groupFromMemberRoles(i.GuildID, i.Member)
	if !ok {
		b.replyEphemeral(i, "Impossible de déterminer ton groupe depuis tes rôles. Assure-toi d'avoir un rôle correspondant (ex: '2ème année TP4').")

		return
	}

	switch i.MessageComponentData().CustomID {
	case buttonToggleMention:
		b.toggleMention(ctx, i, group)
	case buttonToggleDM:
		b.toggleDM(ctx, i, group)
	}
}

// toggleMention adds or removes the group's notification role on the
// member and records the resulting preference.
func (b *Bot) toggleMention(ctx context.Context, i *discordgo.InteractionCreate, group domain.Group) {
	userID := i.Member.User.ID

	roleName, ok := b.roles[group.Key]
	if !ok {
		b.replyEphemeral(i, "Aucun rôle de notification n'est configuré pour ton groupe.")

		return
	}

	b.ensureRoles(i.GuildID)

	guild, err := b.session.State.Guild(i.GuildID)
	if err != nil {
		b.replyEphemeral(i, "Erreur lors de la modification de ton rôle.")

		return
	}

	role := findRoleByName(guild.Roles, roleName)
	if role == nil {
		b.replyEphemeral(i, fmt.Sprintf("Le rôle %s est introuvable et n'a pas pu être créé. Vérifie les permissions du bot.", roleName))

		return
	}

	has := memberHasRole(i.Member, role.ID)

	if has {
		err = b.session.GuildMemberRoleRemove(i.GuildID, userID, role.ID)
	} else {
		err = b.session.GuildMemberRoleAdd(i.GuildID, userID, role.ID)
	}

	if err != nil {
		b.log.ErrorContext(ctx, "Failed to toggle notification role",
			"error", err,
			"userID", userID,
			"roleName", roleName)

		b.replyEphemeral(i, "Erreur lors de la modification de ton rôle.")

		return
	}

	sub, err := b.db.GetSubscription(ctx, userID)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to load subscription for mention toggle",
			"error", err,
			"userID", userID)
	}

	dm := true
	if sub != nil {
		dm = sub.DM
	}

	if err := b.db.SaveSubscription(ctx, &domain.Subscription{
		UserID:  userID,
		Group:   group.Name,
		Mention: !has,
		DM:      dm,
	}); err != nil {
		b.log.ErrorContext(ctx, "Failed to save subscription",
			"error", err,
			"userID", userID)

		b.replyEphemeral(i, "Erreur lors de l'enregistrement de ta préférence.")

		return
	}

	if has {
		b.replyEphemeral(i, "Tu ne seras plus mentionné lors des changements d'emploi du temps.")
	} else {
		b.replyEphemeral(i, "Tu seras désormais mentionné lors des changements d'emploi du temps.")
	}
}

func (b *Bot) toggleDM(ctx context.Context, i *discordgo.InteractionCreate, group domain.Group) {
	userID := i.Member.User.ID

	sub, err := b.db.GetSubscription(ctx, userID)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to load subscription for DM toggle",
			"error", err,
			"userID", userID)

		b.replyEphemeral(i, "Erreur lors de la modification de ta préférence DM.")

		return
	}

	if sub == nil {
		err = b.db.SaveSubscription(ctx, &domain.Subscription{
			UserID:  userID,
			Group:   group.Name,
			Mention: false,
			DM:      true,
		})
	} else {
		err = b.db.UpdatePreferences(ctx, userID, sub.Mention, !sub.DM)
	}

	if err != nil {
		b.log.ErrorContext(ctx, "Failed to save DM preference",
			"error", err,
			"userID", userID)

		b.replyEphemeral(i, "Erreur lors de la modification de ta préférence DM.")

		return
	}

	if sub != nil && sub.DM {
		b.replyEphemeral(i, "Tu ne recevras plus de MP lors des changements d'emploi du temps.")
	} else {
		b.replyEphemeral(i, "Tu recevras désormais des MP lors des changements d'emploi du temps.")
	}
}

// groupFromMemberRoles matches the member's role names against the
// configured group names after normalization, substring both ways.
func (b *Bot) groupFromMemberRoles(guildID string, member *discordgo.Member) (domain.Group, bool) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return domain.Group{}, false
	}

	var roleNames []string

	for _, roleID := range member.Roles {
		if role := findRoleByID(guild.Roles, roleID); role != nil {
			roleNames = append(roleNames, notify.NormalizeForMatch(role.Name))
		}
	}

	for _, g := range b.groups {
		gNorm := notify.NormalizeForMatch(g.Name)

		for _, rn := range roleNames {
			if rn == "" || gNorm == "" {
				continue
			}

			if strings.Contains(rn, gNorm) || strings.Contains(gNorm, rn) {
				return g, true
			}
		}
	}

	return domain.Group{}, false
}

func findRoleByID(roles []*discordgo.Role, id string) *discordgo.Role {
	for _, role := range roles {
		if role.ID == id {
			return role
		}
	}

	return nil
}

func memberHasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}

	return false
}
