package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leaderbot/internal/config"
	"leaderbot/internal/database"
	"leaderbot/internal/discord"
	"leaderbot/internal/leaderboard"
	"leaderbot/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "err", err)
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := database.New(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("failed to initialize database", "err", err)
	}
	defer db.Close()

	activity := database.NewActivityRepository(db)
	boards := database.NewLeaderboardRepository(db)

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal("failed to create Discord session", "err", err)
	}

	clock := clockwork.NewRealClock()
	trk := tracker.New(activity, clock)
	ranker := leaderboard.NewRanker(activity, trk, clock)
	renderer := leaderboard.NewRenderer(cfg.PageSize)
	publisher := leaderboard.NewPublisher(session, boards)
	updater := leaderboard.NewUpdater(ranker, renderer, publisher, boards, clock)
	scheduler := leaderboard.NewScheduler(updater.Refresh, boards, clock, cfg.DebounceDelay, cfg.RefreshInterval)
	cycles := leaderboard.NewCycleEngine(boards, activity, trk, ranker, renderer, publisher,
		scheduler, session, clock, cfg.CyclePeriod, cfg.SweepInterval)

	bot := discord.New(session, cfg, activity, boards, trk, scheduler, ranker, renderer, updater, clock)

	if err := bot.Start(); err != nil {
		log.Fatal("failed to start bot", "err", err)
	}
	defer bot.Stop()

	scheduler.Start()
	defer scheduler.Stop()

	cycles.Start()
	defer cycles.Stop()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error("metrics listener stopped", "err", err)
			}
		}()
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Info("shutting down bot")
}
