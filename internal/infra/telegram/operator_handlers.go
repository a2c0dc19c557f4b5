package telegram

import (
	"context"
	"fmt"
	"strings"

	"travel_reminder_bot/internal/app"
	"travel_reminder_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const statsLimit = 50

// RegisterOperatorHandlers wires the operator commands: /run_reminders fires
// the same batch the daily cron runs (safe to repeat, already-sent reminders
// are skipped), /reminder_stats reads the sent-log aggregates. Both are
// restricted to the configured admin account.
func RegisterOperatorHandlers(
	ctx context.Context,
	b *telebot.Bot,
	batch *app.BatchService,
	ledger reminder.Ledger,
	adminTelegramID int64,
	baseLogger *logrus.Entry,
) {
	b.Handle("/run_reminders", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/run_reminders",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("You are not authorized to run this command.")
		}

		if err := c.Send("Running reminder batch..."); err != nil {
			handlerLogger.WithError(err).Warn("Failed to send ack message")
		}

		result := batch.RunAll(ctx)
		handlerLogger.WithFields(logrus.Fields{
			"sent":   len(result.Sent),
			"errors": len(result.Errors),
		}).Info("Manual reminder batch finished")

		return c.Send(formatBatchResult(result))
	})

	b.Handle("/reminder_stats", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/reminder_stats",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("You are not authorized to run this command.")
		}

		stats, err := ledger.Stats(ctx, statsLimit)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to query reminder stats")
			return c.Send(fmt.Sprintf("Failed to query reminder stats: %s", err.Error()))
		}
		if len(stats) == 0 {
			return c.Send("No reminders have been sent yet.")
		}

		var response strings.Builder
		response.WriteString("Sent reminders by day offset (most recent first):\n")
		for _, row := range stats {
			response.WriteString(fmt.Sprintf("%s | offset %d | %d sent\n", row.SentDate, row.DayOffset, row.Count))
		}
		return c.Send(response.String())
	})

	b.Handle("/help", func(c telebot.Context) error {
		if c.Sender().ID != adminTelegramID {
			return c.Send("No commands are available for your account.")
		}
		var helpText strings.Builder
		helpText.WriteString("Operator commands:\n\n")
		helpText.WriteString("/run_reminders - Run the reminder batch now. Already-sent reminders are skipped.\n")
		helpText.WriteString("/reminder_stats - Show sent-reminder counts grouped by day offset and date.\n")
		helpText.WriteString("/help - Show this message.")
		return c.Send(helpText.String())
	})
}

func formatBatchResult(result app.BatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch complete: %d sent, %d errors.\n", len(result.Sent), len(result.Errors))
	for _, s := range result.Sent {
		fmt.Fprintf(&b, "sent: [%s] %s (offset %d)\n", s.Kind, s.Label, s.DayOffset)
	}
	for _, e := range result.Errors {
		if e.Label == "" {
			fmt.Fprintf(&b, "error: [%s] %s\n", e.Kind, e.Message)
			continue
		}
		fmt.Fprintf(&b, "error: [%s] %s (offset %d): %s\n", e.Kind, e.Label, e.DayOffset, e.Message)
	}
	return b.String()
}
