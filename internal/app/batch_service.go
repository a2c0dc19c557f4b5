package app

import (
	"context"

	"github.com/sirupsen/logrus"
)

// BatchResult is the ephemeral summary of one full run across all kinds,
// returned to the trigger or the operator and discarded after reporting.
type BatchResult struct {
	Sent   []SentEntry
	Errors []ErrorEntry
}

// BatchService runs every kind's dispatcher sequentially and aggregates the
// outcome. It is the single entry point shared by the daily cron trigger and
// the operator's manual invocation, so both paths get identical idempotency
// guarantees. It does no business logic beyond sequencing and aggregation.
type BatchService struct {
	dispatchers []*Dispatcher
	logger      *logrus.Entry
}

func NewBatchService(dispatchers []*Dispatcher, logger *logrus.Entry) *BatchService {
	return &BatchService{dispatchers: dispatchers, logger: logger}
}

// RunAll executes one full batch. Kinds run one after another, never in
// parallel, to keep the notifier load predictable. A kind-level failure is
// recorded and the remaining kinds still run; nothing here is fatal to the
// process.
func (s *BatchService) RunAll(ctx context.Context) BatchResult {
	var result BatchResult

	for _, d := range s.dispatchers {
		sent, errs, err := d.Run(ctx)
		if err != nil {
			s.logger.WithError(err).WithField("kind", d.cfg.Kind).Error("Dispatch pass failed for kind")
			result.Errors = append(result.Errors, ErrorEntry{
				Kind:      d.cfg.Kind,
				DayOffset: -1,
				Message:   err.Error(),
			})
			continue
		}
		result.Sent = append(result.Sent, sent...)
		result.Errors = append(result.Errors, errs...)
	}

	s.logger.WithFields(logrus.Fields{
		"sent":   len(result.Sent),
		"errors": len(result.Errors),
	}).Info("Reminder batch finished")
	return result
}
