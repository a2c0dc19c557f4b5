package app

import (
	"context"
	"time"

	"travel_reminder_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// KindConfig parameterizes one dispatch pipeline: which events it scans, at
// which day offsets it fires, and which timezone anchors "today" for the
// days-until calculation. Tour and cruise kinds anchor to the agency's
// business timezone; ticket reminders follow the original behavior of using
// host-local time.
type KindConfig struct {
	Kind     reminder.Kind
	Policy   reminder.OffsetPolicy
	Location *time.Location
}

// SentEntry summarizes one successfully dispatched reminder.
type SentEntry struct {
	Kind      reminder.Kind
	Label     string
	DayOffset int
}

// ErrorEntry carries enough identification (kind, label, offset) to support
// manual follow-up, since failed sends are not retried automatically.
// Kind-level failures (ledger bootstrap) have an empty Label and offset -1.
type ErrorEntry struct {
	Kind      reminder.Kind
	Label     string
	DayOffset int
	Message   string
}

// Dispatcher runs one idempotent reminder pass for a single event kind:
// source candidates, compute days-until, skip anything outside the offset
// window or already in the ledger, send the rest, record what went out.
type Dispatcher struct {
	cfg      KindConfig
	provider reminder.CandidateProvider
	ledger   reminder.Ledger
	notifier reminder.Notifier
	limiter  *rate.Limiter
	logger   *logrus.Entry
	now      func() time.Time
}

func NewDispatcher(
	cfg KindConfig,
	provider reminder.CandidateProvider,
	ledger reminder.Ledger,
	notifier reminder.Notifier,
	limiter *rate.Limiter,
	logger *logrus.Entry,
) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		provider: provider,
		ledger:   ledger,
		notifier: notifier,
		limiter:  limiter,
		logger:   logger.WithField("kind", cfg.Kind),
		now:      time.Now,
	}
}

// Run executes one pass over the kind's candidates. Candidate processing is
// strictly sequential: one candidate's full check→send→record sequence
// completes before the next begins. A non-nil error means the whole kind
// could not run (ledger bootstrap failure); per-candidate problems are
// reported through the error entries instead.
func (d *Dispatcher) Run(ctx context.Context) ([]SentEntry, []ErrorEntry, error) {
	if err := d.ledger.Bootstrap(ctx); err != nil {
		return nil, nil, err
	}

	candidates, err := d.provider.Upcoming(ctx)
	if err != nil {
		// Fail-open per kind: a broken candidate query must not abort the
		// batch, it just means zero candidates this run.
		d.logger.WithError(err).Error("Candidate query failed, treating as zero candidates")
		return nil, nil, nil
	}
	if len(candidates) == 0 {
		d.logger.Info("No candidates")
		return nil, nil, nil
	}
	d.logger.WithField("candidates", len(candidates)).Info("Scanning candidates")

	var sent []SentEntry
	var errs []ErrorEntry
	now := d.now()

	for _, c := range candidates {
		offset := reminder.DaysUntil(c.TargetDate, now, d.cfg.Location)
		candLogger := d.logger.WithFields(logrus.Fields{
			"entity_id":  c.EntityID,
			"label":      c.DisplayLabel,
			"day_offset": offset,
		})

		if !d.cfg.Policy.Contains(offset) {
			continue
		}

		already, err := d.ledger.WasSent(ctx, d.cfg.Kind, c.EntityID, offset)
		if err != nil {
			// An unreachable ledger must not be read as "not sent": record
			// the failure instead of risking a double-send.
			candLogger.WithError(err).Error("Ledger lookup failed")
			errs = append(errs, ErrorEntry{Kind: d.cfg.Kind, Label: c.DisplayLabel, DayOffset: offset, Message: err.Error()})
			continue
		}
		if already {
			candLogger.Debug("Already notified for this offset, skipping")
			continue
		}

		// Sequential pacing: one token per configured delay, shared across
		// kinds, so the mail relay sees a predictable send rate.
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				errs = append(errs, ErrorEntry{Kind: d.cfg.Kind, Label: c.DisplayLabel, DayOffset: offset, Message: err.Error()})
				continue
			}
		}

		messageID, err := d.notifier.Send(ctx, c, offset)
		if err != nil {
			// Not retried this run, and the offset shrinks daily, so this
			// (entity, offset) pair will not come around again. The error
			// entry is the operator's cue for manual follow-up.
			candLogger.WithError(err).Error("Send failed")
			errs = append(errs, ErrorEntry{Kind: d.cfg.Kind, Label: c.DisplayLabel, DayOffset: offset, Message: err.Error()})
			continue
		}

		if err := d.ledger.MarkSent(ctx, d.cfg.Kind, c.EntityID, offset); err != nil {
			// The message already went out; a missing ledger row only risks a
			// duplicate on a re-run, which the at-least-once contract allows.
			candLogger.WithError(err).Error("Failed to record sent reminder")
		}
		candLogger.WithField("message_id", messageID).Info("Reminder sent")
		sent = append(sent, SentEntry{Kind: d.cfg.Kind, Label: c.DisplayLabel, DayOffset: offset})
	}

	return sent, errs, nil
}
