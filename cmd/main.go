package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planningwatch/internal/config"
	"planningwatch/internal/database"
	"planningwatch/internal/discord"
	"planningwatch/internal/feed"
	"planningwatch/internal/notify"
	"planningwatch/internal/scheduler"
	"planningwatch/internal/snapshot"
	"planningwatch/internal/web"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load configuration",
			"error", err)

		return
	}

	groups, err := config.LoadGroups()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load group table",
			"error", err)

		return
	}
	log.InfoContext(ctx, "Group table is loaded",
		"groupCount", len(groups))

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	if err = db.ImportLegacyJSON(ctx, cfg.LegacySubscriptionsPath); err != nil {
		log.ErrorContext(ctx, "Failed to import legacy subscriptions",
			"error", err,
			"path", cfg.LegacySubscriptionsPath)

		return
	}

	roles, err := notify.BuildRoleTable(groups, cfg.RoleNameMap)
	if err != nil {
		log.ErrorContext(ctx, "Failed to build role table",
			"error", err)

		return
	}

	fetcher := feed.NewFetcher(groups, log)
	renderer := notify.NewRenderer(cfg.PlanningBaseURL)

	bot, err := discord.New(
		cfg.DiscordToken,
		db,
		fetcher,
		renderer,
		roles,
		groups,
		cfg.RoleChannelMap,
		cfg.DevGuildID,
		cfg.RolesChannelID,
		log,
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err)

		return
	}

	if err = bot.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start bot",
			"error", err)

		return
	}
	defer func() {
		if err = bot.Stop(); err != nil {
			log.ErrorContext(ctx, "Failed to stop bot",
				"error", err)
		}
	}()
	log.InfoContext(ctx, "Bot is started")

	// The liveness endpoint comes up before the scheduler so the warm-up
	// pass cannot fail platform health probes.
	app := web.NewApp()
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.ErrorContext(ctx, "Liveness endpoint stopped",
				"error", err,
				"port", cfg.Port)
		}
	}()
	log.InfoContext(ctx, "Liveness endpoint is started",
		"port", cfg.Port)

	router := notify.NewRouter(bot, db, renderer, roles, log)
	store := snapshot.NewStore()

	sched := scheduler.New(ctx, groups, fetcher, router, store, cfg.PollInterval, log)
	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"interval", cfg.PollInterval.String())

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"interval", cfg.PollInterval.String())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	if err = app.Shutdown(); err != nil {
		log.ErrorContext(ctx, "Failed to shut down liveness endpoint",
			"error", err)
	}

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())
}
