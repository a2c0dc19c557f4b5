package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"travel_reminder_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKindDispatcher(kind reminder.Kind, provider reminder.CandidateProvider, ledger reminder.Ledger, notifier reminder.Notifier) *Dispatcher {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	d := NewDispatcher(
		KindConfig{Kind: kind, Policy: reminder.OffsetPolicy{7, 3, 2, 1, 0}, Location: time.UTC},
		provider, ledger, notifier, nil,
		logrus.NewEntry(logger),
	)
	d.now = func() time.Time { return testNow }
	return d
}

func newBatchLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func ticketCandidate(id int64, label string, daysAhead int) reminder.Candidate {
	c := tourCandidate(id, label, daysAhead)
	c.Kind = reminder.KindTicket
	return c
}

// One kind's broken candidate source must not prevent the other kinds from
// sending.
func TestBatchServiceFailOpenPerKind(t *testing.T) {
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	broken := newKindDispatcher(reminder.KindCruiseSailing,
		&fakeProvider{err: errors.New("relation cruises does not exist")}, ledger, notifier)
	healthy := newKindDispatcher(reminder.KindTicket,
		&fakeProvider{candidates: []reminder.Candidate{ticketCandidate(9, "VN123 / Nguyen Anh", 2)}}, ledger, notifier)

	result := NewBatchService([]*Dispatcher{broken, healthy}, newBatchLogger()).RunAll(context.Background())

	require.Len(t, result.Sent, 1)
	assert.Equal(t, reminder.KindTicket, result.Sent[0].Kind)
	assert.Empty(t, result.Errors)
}

// A ledger that cannot even bootstrap fails its kind, is reported as a
// kind-level error, and the remaining kinds still run.
func TestBatchServiceKindLevelLedgerError(t *testing.T) {
	brokenLedger := newFakeLedger()
	brokenLedger.bootstrapErr = errors.New("permission denied for table reminder_log")
	notifier := &fakeNotifier{}
	broken := newKindDispatcher(reminder.KindTourDeparture,
		&fakeProvider{candidates: []reminder.Candidate{tourCandidate(1, "Bali Highlights", 3)}}, brokenLedger, notifier)
	healthy := newKindDispatcher(reminder.KindTicket,
		&fakeProvider{candidates: []reminder.Candidate{ticketCandidate(9, "VN123 / Nguyen Anh", 2)}}, newFakeLedger(), notifier)

	result := NewBatchService([]*Dispatcher{broken, healthy}, newBatchLogger()).RunAll(context.Background())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, reminder.KindTourDeparture, result.Errors[0].Kind)
	assert.Empty(t, result.Errors[0].Label)
	assert.Equal(t, -1, result.Errors[0].DayOffset)
	require.Len(t, result.Sent, 1)
	assert.Equal(t, reminder.KindTicket, result.Sent[0].Kind)
}

func TestBatchServiceNoCandidates(t *testing.T) {
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	a := newKindDispatcher(reminder.KindTourDeparture, &fakeProvider{}, ledger, notifier)
	b := newKindDispatcher(reminder.KindCruiseSailing, &fakeProvider{}, ledger, notifier)

	result := NewBatchService([]*Dispatcher{a, b}, newBatchLogger()).RunAll(context.Background())

	assert.Empty(t, result.Sent)
	assert.Empty(t, result.Errors)
}

func TestBatchServiceAggregatesAcrossKinds(t *testing.T) {
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	tours := newKindDispatcher(reminder.KindTourDeparture,
		&fakeProvider{candidates: []reminder.Candidate{
			tourCandidate(1, "Bali Highlights", 3),
			tourCandidate(2, "Mekong Delta", 5), // outside the window
		}}, ledger, notifier)
	tickets := newKindDispatcher(reminder.KindTicket,
		&fakeProvider{candidates: []reminder.Candidate{ticketCandidate(9, "VN123 / Nguyen Anh", 0)}}, ledger, notifier)

	result := NewBatchService([]*Dispatcher{tours, tickets}, newBatchLogger()).RunAll(context.Background())

	require.Len(t, result.Sent, 2)
	assert.Equal(t, reminder.KindTourDeparture, result.Sent[0].Kind)
	assert.Equal(t, reminder.KindTicket, result.Sent[1].Kind)
	assert.Empty(t, result.Errors)
}
