// Package config loads the process configuration from the environment:
// bot credentials, the per-group feed-URL table, and role/channel
// mappings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"mvdan.cc/xurls/v2"

	"planningwatch/internal/domain"
)

type Config struct {
	DiscordToken   string `env:"DISCORD_TOKEN,required,notEmpty"`
	DevGuildID     string `env:"DEV_GUILD_ID"`
	RolesChannelID string `env:"ROLES_CHANNEL_ID"`

	DBPath                  string `env:"DB_PATH"                   envDefault:"db.sqlite"`
	LegacySubscriptionsPath string `env:"LEGACY_SUBSCRIPTIONS_PATH" envDefault:"subscriptions.json"`

	Port            string        `env:"PORT"              envDefault:"8080"`
	PollInterval    time.Duration `env:"POLL_INTERVAL"     envDefault:"5m"`
	PlanningBaseURL string        `env:"PLANNING_BASE_URL" envDefault:"https://mmi-planning.vgil.fr"`

	// RoleChannelMap routes broadcasts: role name to channel ID. Roles
	// absent from the map fall back to a guild scan at send time.
	RoleChannelMap map[string]string `env:"ROLE_CHANNEL_MAP"`

	// RoleNameMap overrides the derived role name per group key.
	RoleNameMap map[string]string `env:"ROLE_NAME_MAP"`
}

// groupCatalog fixes the known groups and their display names. Feed URLs
// come from GROUP_<KEY>_URLS as comma-separated lists; groups without a
// configured list are not watched.
var groupCatalog = []domain.Group{
	{Key: "1A_TP1", Name: "1ère année TP1"},
	{Key: "1A_TP2", Name: "1ère année TP2"},
	{Key: "1A_TP3", Name: "1ère année TP3"},
	{Key: "1A_TP4", Name: "1ère année TP4"},
	{Key: "2A_TP1", Name: "2ème année TP1"},
	{Key: "2A_TP2", Name: "2ème année TP2"},
	{Key: "2A_TP3", Name: "2ème année TP3"},
	{Key: "2A_TP4", Name: "2ème année TP4"},
	{Key: "3A_TP1", Name: "3ème année TP1"},
	{Key: "3A_TP2", Name: "3ème année TP2"},
	{Key: "3A_TP3", Name: "3ème année TP3"},
	{Key: "3A_TP4", Name: "3ème année TP4"},
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// LoadGroups builds the watched-group table from GROUP_<KEY>_URLS
// variables, validating every URL as strict https.
func LoadGroups() ([]domain.Group, error) {
	return loadGroups(os.Getenv)
}

func loadGroups(getenv func(string) string) ([]domain.Group, error) {
	matcher, err := xurls.StrictMatchingScheme("https://")
	if err != nil {
		return nil, fmt.Errorf("build URL matcher: %w", err)
	}

	var groups []domain.Group

	for _, g := range groupCatalog {
		raw := strings.TrimSpace(getenv("GROUP_" + g.Key + "_URLS"))
		if raw == "" {
			continue
		}

		var urls []string

		for _, part := range strings.Split(raw, ",") {
			u := strings.TrimSpace(part)
			if u == "" {
				continue
			}

			if matcher.FindString(u) != u {
				return nil, fmt.Errorf("group %s: invalid feed URL %q", g.Key, u)
			}

			urls = append(urls, u)
		}

		if len(urls) == 0 {
			continue
		}

		groups = append(groups, domain.Group{Key: g.Key, Name: g.Name, FeedURLs: urls})
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("no group feed URLs configured")
	}

	return groups, nil
}
