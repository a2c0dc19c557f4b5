package scheduler

import (
	"context"
	"time"

	"travel_reminder_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderScheduler fires the daily reminder batch at a fixed wall-clock
// time in the business timezone. The cron path and the operator's manual
// /run_reminders command invoke the identical BatchService, so a manual run
// while the daily job is active harmlessly re-skips everything already sent
// (the ledger's unique key keeps the sent-log single-rowed; the notifier side
// of that race is a documented limitation).
type ReminderScheduler struct {
	cronEngine *cron.Cron
	batch      *app.BatchService
	logger     *logrus.Entry
	cronSpec   string
}

func NewReminderScheduler(
	batch *app.BatchService,
	logger *logrus.Entry,
	cronSpec string, // e.g. "0 8 * * *" (08:00 daily)
	loc *time.Location,
) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		batch:      batch,
		logger:     logger,
		cronSpec:   cronSpec,
	}
}

// Start registers the daily job and starts the cron engine.
func (s *ReminderScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Daily reminder cron triggered")
		// No deadline: a batch is bounded (tens to low hundreds of
		// candidates) and runs to completion or process exit.
		result := s.batch.RunAll(context.Background())
		s.logger.WithFields(logrus.Fields{
			"sent":   len(result.Sent),
			"errors": len(result.Errors),
		}).Info("Daily reminder batch completed")
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Reminder scheduler started")
	return nil
}

// Stop drains the cron engine, waiting for a running batch to finish.
func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped")
}
