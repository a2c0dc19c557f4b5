package app

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"travel_reminder_bot/internal/domain/reminder"
	idb "travel_reminder_bot/internal/infra/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteLedger(t *testing.T) (*idb.SQLReminderLedger, *sql.DB) {
	t.Helper()
	db, err := idb.NewSQLiteConnection(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return idb.NewSQLReminderLedger(db, idb.DialectSQLite), db
}

// End-to-end over a real ledger: a tour departing in 3 days, policy
// {7,3,2,1,0}, empty ledger, working notifier. One sent entry at offset 3 and
// a ledger row that answers true afterwards.
func TestEngineConcreteScenario(t *testing.T) {
	ledger, _ := newSQLiteLedger(t)
	notifier := &fakeNotifier{}
	provider := &fakeProvider{candidates: []reminder.Candidate{tourCandidate(41, "Bali Highlights", 3)}}

	result := NewBatchService(
		[]*Dispatcher{newTestDispatcher(provider, ledger, notifier, nil)},
		newBatchLogger(),
	).RunAll(context.Background())

	assert.Empty(t, result.Errors)
	require.Len(t, result.Sent, 1)
	assert.Equal(t, 3, result.Sent[0].DayOffset)

	already, err := ledger.WasSent(context.Background(), reminder.KindTourDeparture, 41, 3)
	require.NoError(t, err)
	assert.True(t, already)
}

// blockingNotifier holds every Send on a shared barrier so two overlapping
// runs are forced past their WasSent checks before either records anything.
type blockingNotifier struct {
	barrier *sync.WaitGroup
	mu      sync.Mutex
	sends   int
}

func (n *blockingNotifier) Send(ctx context.Context, c reminder.Candidate, daysUntil int) (string, error) {
	n.barrier.Done()
	n.barrier.Wait()
	n.mu.Lock()
	n.sends++
	n.mu.Unlock()
	return "msg", nil
}

// The documented cross-run race: a manual trigger overlapping the daily run
// may invoke the notifier twice for the same (kind, entity, offset), but the
// ledger's unique key must leave exactly one row.
func TestEngineOverlappingRunsDoubleSendSingleRow(t *testing.T) {
	ledger, db := newSQLiteLedger(t)
	require.NoError(t, ledger.Bootstrap(context.Background()))

	barrier := &sync.WaitGroup{}
	barrier.Add(2)
	notifier := &blockingNotifier{barrier: barrier}
	candidate := tourCandidate(41, "Bali Highlights", 3)

	runs := &sync.WaitGroup{}
	results := make([]BatchResult, 2)
	for i := 0; i < 2; i++ {
		runs.Add(1)
		go func(i int) {
			defer runs.Done()
			provider := &fakeProvider{candidates: []reminder.Candidate{candidate}}
			batch := NewBatchService(
				[]*Dispatcher{newTestDispatcher(provider, ledger, notifier, nil)},
				newBatchLogger(),
			)
			results[i] = batch.RunAll(context.Background())
		}(i)
	}
	runs.Wait()

	assert.Equal(t, 2, notifier.sends, "both overlapping runs pass the wasSent check and send")
	assert.Empty(t, results[0].Errors)
	assert.Empty(t, results[1].Errors)

	var rows int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM reminder_log WHERE kind = ? AND entity_id = ? AND day_offset = ?`,
		string(reminder.KindTourDeparture), int64(41), 3,
	).Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

// A target date carrying a time-of-day component still counts as "the day"
// for offset purposes in the kind's own timezone.
func TestEngineTargetDateWithTimeComponent(t *testing.T) {
	ledger, _ := newSQLiteLedger(t)
	notifier := &fakeNotifier{}
	c := tourCandidate(8, "Halong Bay Cruise", 0)
	c.TargetDate = time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 23, 45, 0, 0, time.UTC)
	provider := &fakeProvider{candidates: []reminder.Candidate{c}}

	sent, errs, err := newTestDispatcher(provider, ledger, notifier, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, sent, 1)
	assert.Equal(t, 0, sent[0].DayOffset)
}
