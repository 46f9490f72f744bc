// Package discord wraps the discordgo session: broadcast and direct
// message delivery, slash commands, and notification-role upkeep.
package discord

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"planningwatch/internal/database"
	"planningwatch/internal/domain"
	"planningwatch/internal/feed"
	"planningwatch/internal/notify"
)

type Bot struct {
	session        *discordgo.Session
	db             *database.Database
	fetcher        *feed.Fetcher
	renderer       *notify.Renderer
	roles          notify.RoleTable
	groups         []domain.Group
	roleChannelMap map[string]string
	devGuildID     string
	rolesChannelID string
	log            *slog.Logger
}

func New(
	token string,
	db *database.Database,
	fetcher *feed.Fetcher,
	renderer *notify.Renderer,
	roles notify.RoleTable,
	groups []domain.Group,
	roleChannelMap map[string]string,
	devGuildID string,
	rolesChannelID string,
	log *slog.Logger,
) (*Bot, error) {
	token = strings.TrimSpace(token)

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages

	b := &Bot{
		session:        session,
		db:             db,
		fetcher:        fetcher,
		renderer:       renderer,
		roles:          roles,
		groups:         groups,
		roleChannelMap: roleChannelMap,
		devGuildID:     devGuildID,
		rolesChannelID: rolesChannelID,
		log:            log,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onInteractionCreate)

	return b, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	if err := s.UpdateWatchStatus(0, "l'emploi du temps"); err != nil {
		b.log.Error("Failed to set presence",
			"error", err)
	}

	for _, guild := range s.State.Guilds {
		b.ensureRoles(guild.ID)
	}

	b.ensurePreferencesMessage()

	b.log.Info("Session ready",
		"guildCount", len(s.State.Guilds))
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	b.ensureRoles(g.ID)
}
