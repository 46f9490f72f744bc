package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"planningwatch/internal/domain"
)

const (
	commandOptions  = "mes-options"
	commandSimulate = "simulate"

	maxCommandChoices = 25

	simulateShift           = time.Hour
	simulatePlaceholderRoom = "Salle inconnue"
)

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID

	global := []*discordgo.ApplicationCommand{
		{
			Name:        commandOptions,
			Description: "Affiche tes préférences de notification (groupe / mention / mp)",
		},
	}

	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, "", global); err != nil {
		return fmt.Errorf("register global commands: %w", err)
	}

	if b.devGuildID == "" {
		return nil
	}

	guildCommands := []*discordgo.ApplicationCommand{b.simulateCommand()}

	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.devGuildID, guildCommands); err != nil {
		// The simulate command is a test tool; its absence never blocks
		// the watcher.
		b.log.Error("Failed to register dev guild commands",
			"error", err,
			"guildID", b.devGuildID)
	}

	return nil
}

func (b *Bot) simulateCommand() *discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(b.groups))
	for _, g := range b.groups {
		if len(choices) == maxCommandChoices {
			break
		}

		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  g.Name,
			Value: g.Name,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        commandSimulate,
		Description: "Simule un changement pour un groupe (test)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "group",
				Description: "Nom du groupe",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
				Choices:     choices,
			},
			{
				Name:        "change_type",
				Description: "Type de changement à simuler",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Nouveau cours", Value: "added"},
					{Name: "Cours supprimé", Value: "removed"},
					{Name: "Cours modifié", Value: "modified"},
					{Name: "Changement de salle", Value: "location"},
				},
			},
			{
				Name:        "send_to",
				Description: "Destinataire de repli quand aucun salon n'accepte l'annonce",
				Type:        discordgo.ApplicationCommandOptionString,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Moi", Value: "me"},
					{Name: "Personne", Value: "none"},
				},
			},
		},
	}
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case commandOptions:
			b.handleOptions(ctx, i)
		case commandSimulate:
			b.handleSimulate(ctx, i)
		}
	case discordgo.InteractionMessageComponent:
		b.onButton(ctx, i)
	}
}

func (b *Bot) handleOptions(ctx context.Context, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	sub, err := b.db.GetSubscription(ctx, userID)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to load subscription for options command",
			"error", err,
			"userID", userID)

		b.replyEphemeral(i, "Erreur lors de la lecture de tes options.")

		return
	}

	if sub == nil {
		b.replyEphemeral(i, "Tu n'as pas d'options enregistrées.")

		return
	}

	b.replyEphemeral(i, fmt.Sprintf(
		"Options: groupe **%s**\nMention via rôle: **%s**\nMP: **%s**",
		sub.Group, ouiNon(sub.Mention), ouiNon(sub.DM)))
}

func (b *Bot) handleSimulate(ctx context.Context, i *discordgo.InteractionCreate) {
	opts := commandOptionMap(i)
	groupName := opts["group"]
	changeType := opts["change_type"]

	sendTo := opts["send_to"]
	if sendTo == "" {
		sendTo = "me"
	}

	group, ok := b.groupByName(groupName)
	if !ok {
		b.replyEphemeral(i, "Groupe inconnu : "+groupName)

		return
	}

	if len(group.FeedURLs) == 0 {
		b.replyEphemeral(i, "Aucune URL iCal configurée pour ce groupe.")

		return
	}

	events, err := b.fetcher.FetchEvents(ctx, group.FeedURLs[0])
	if err != nil || len(events) == 0 {
		b.log.ErrorContext(ctx, "Failed to fetch events for simulation",
			"error", err,
			"groupName", groupName)

		b.replyEphemeral(i, "Aucun événement trouvé pour ce groupe.")

		return
	}

	change := fabricateChange(changeType, events[0])

	eventGroup := group.Name
	if src := change.Source(); src != nil && src.Group != "" {
		eventGroup = src.Group
	}

	d := b.renderer.Render(change, eventGroup, group)

	roleName, hasRole := b.roles[group.Key]
	if hasRole {
		err = b.Broadcast(ctx, roleName, d)
	}

	if (!hasRole || err != nil) && sendTo == "me" {
		if dmErr := b.DirectMessage(ctx, interactionUserID(i), d); dmErr != nil {
			b.log.ErrorContext(ctx, "Failed to deliver simulation fallback DM",
				"error", dmErr,
				"userID", interactionUserID(i))

			b.replyEphemeral(i, "Erreur lors de la simulation.")

			return
		}
	}

	b.replyEphemeral(i, "Simulation envoyée.")
}

// fabricateChange builds a synthetic change from a real event: modified
// shifts the course by one hour, location falls back to a placeholder
// room when the event has none.
func fabricateChange(changeType string, e domain.Event) domain.Change {
	switch changeType {
	case "removed":
		return domain.Change{Type: domain.ChangeRemoved, Old: &e}

	case "modified":
		shifted := e
		shifted.StartEpoch += int64(simulateShift.Seconds())
		shifted.EndEpoch += int64(simulateShift.Seconds())
		shifted.Start = time.Unix(shifted.StartEpoch, 0).UTC().Format(time.RFC3339)
		shifted.End = time.Unix(shifted.EndEpoch, 0).UTC().Format(time.RFC3339)

		return domain.Change{Type: domain.ChangeModified, Old: &e, New: &shifted}

	case "location":
		moved := e
		if strings.TrimSpace(moved.Location) == "" {
			moved.Location = simulatePlaceholderRoom
		}

		return domain.Change{Type: domain.ChangeLocation, Old: &e, New: &moved}

	default:
		return domain.Change{Type: domain.ChangeAdded, New: &e}
	}
}

func (b *Bot) groupByName(name string) (domain.Group, bool) {
	for _, g := range b.groups {
		if g.Name == name {
			return g, true
		}
	}

	return domain.Group{}, false
}

func (b *Bot) replyEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Error("Failed to respond to interaction",
			"error", err,
			"interactionID", i.ID)
	}
}

func commandOptionMap(i *discordgo.InteractionCreate) map[string]string {
	opts := make(map[string]string)
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			opts[opt.Name] = opt.StringValue()
		}
	}

	return opts
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}

	if i.User != nil {
		return i.User.ID
	}

	return ""
}

func ouiNon(v bool) string {
	if v {
		return "oui"
	}

	return "non"
}
