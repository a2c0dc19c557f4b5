package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel_reminder_bot/internal/app"
	"travel_reminder_bot/internal/domain/reminder"
	"travel_reminder_bot/internal/infra/config"
	idb "travel_reminder_bot/internal/infra/database"
	"travel_reminder_bot/internal/infra/email"
	"travel_reminder_bot/internal/infra/logger"
	"travel_reminder_bot/internal/infra/scheduler"
	"travel_reminder_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Travel Reminder Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Get().WithField("component", "main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Configuration loaded")

	// Business schema connection (tours, cruises, tickets, users). Read-only
	// from this engine's point of view.
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established")

	// Ledger connection. Defaults to the business database; a separate URL or
	// the sqlite driver gives the ledger its own store.
	ledgerDB := db
	dialect := idb.DialectPostgres
	switch {
	case cfg.LedgerDriver == "sqlite":
		ledgerDB, err = idb.NewSQLiteConnection(cfg.LedgerDatabaseURL)
		dialect = idb.DialectSQLite
	case cfg.LedgerDatabaseURL != cfg.DatabaseURL:
		ledgerDB, err = idb.NewPostgresConnection(cfg.LedgerDatabaseURL)
	}
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to ledger database")
	}
	if ledgerDB != db {
		defer ledgerDB.Close()
	}
	ledger := idb.NewSQLReminderLedger(ledgerDB, dialect)

	candidateRepo := idb.NewPostgresCandidateRepository(db)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	mainLogger.Info("Candidate repository and SMTP notifier initialized")

	businessLoc, err := time.LoadLocation(cfg.ReminderTimezone)
	if err != nil {
		mainLogger.WithError(err).Fatalf("Invalid REMINDER_TIMEZONE %q", cfg.ReminderTimezone)
	}

	batch := buildBatchService(cfg, candidateRepo, ledger, notifier, businessLoc)
	mainLogger.Info("Batch service initialized")

	schedLogger := logger.Get().WithField("component", "scheduler")
	reminderScheduler := scheduler.NewReminderScheduler(batch, schedLogger, cfg.CronSpecReminders, businessLoc)
	if err := reminderScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start reminder scheduler")
	}

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telebot handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	handlerLogger := logger.Get().WithField("component", "telegram")
	telegram.RegisterOperatorHandlers(context.Background(), bot, batch, ledger, cfg.AdminTelegramID, handlerLogger)
	mainLogger.Info("Operator command handlers registered")

	mainLogger.Info("Application setup complete. Bot and scheduler are starting...")
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	reminderScheduler.Stop()
	bot.Stop()
	mainLogger.Info("Application shut down gracefully")
}

// buildBatchService assembles the per-kind dispatchers. Tour and cruise kinds
// anchor "today" to the business timezone; ticket reminders keep the original
// behavior of host-local time. All kinds share one offset policy and one
// pacing limiter so the mail relay sees a predictable send rate.
func buildBatchService(
	cfg *config.AppConfig,
	repo *idb.PostgresCandidateRepository,
	ledger reminder.Ledger,
	notifier reminder.Notifier,
	businessLoc *time.Location,
) *app.BatchService {
	policy := reminder.OffsetPolicy(cfg.ReminderOffsets)
	limiter := rate.NewLimiter(rate.Every(cfg.SendDelay), 1)
	dispatchLogger := logger.Get().WithField("component", "dispatcher")

	kinds := []struct {
		cfg      app.KindConfig
		provider reminder.CandidateProvider
	}{
		{app.KindConfig{Kind: reminder.KindTourDeparture, Policy: policy, Location: businessLoc}, reminder.ProviderFunc(repo.TourDepartures)},
		{app.KindConfig{Kind: reminder.KindCruiseSailing, Policy: policy, Location: businessLoc}, reminder.ProviderFunc(repo.CruiseSailings)},
		{app.KindConfig{Kind: reminder.KindTourReturn, Policy: policy, Location: businessLoc}, reminder.ProviderFunc(repo.TourReturns)},
		{app.KindConfig{Kind: reminder.KindTicket, Policy: policy, Location: time.Local}, reminder.ProviderFunc(repo.Tickets)},
	}

	dispatchers := make([]*app.Dispatcher, 0, len(kinds))
	for _, k := range kinds {
		dispatchers = append(dispatchers, app.NewDispatcher(k.cfg, k.provider, ledger, notifier, limiter, dispatchLogger))
	}

	return app.NewBatchService(dispatchers, logger.Get().WithField("component", "batch"))
}
