package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"travel_reminder_bot/internal/domain/reminder"
)

// Dialect selects the SQL flavor the ledger speaks. The ledger behaves
// identically against both; only DDL and a few expressions differ.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const statsDefaultLimit = 50

// SQLite has no timestamp type; sent_at is stored as text in a layout its
// date functions can parse. The driver's default time.Time encoding is not
// one of those layouts, so the value is formatted explicitly before binding.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLReminderLedger is the persistent sent-log, one table for all event
// kinds keyed by (kind, entity_id, day_offset). The uniqueness constraint
// lives in the schema, not in application logic: the dispatcher's
// check-then-write sequence is not atomic, so the table itself is the last
// line of defense against duplicate rows.
type SQLReminderLedger struct {
	db      *sql.DB
	dialect Dialect

	mu           sync.Mutex
	bootstrapped bool
}

func NewSQLReminderLedger(db *sql.DB, dialect Dialect) *SQLReminderLedger {
	return &SQLReminderLedger{db: db, dialect: dialect}
}

const createTablePostgres = `
CREATE TABLE IF NOT EXISTS reminder_log (
    id BIGSERIAL PRIMARY KEY,
    kind VARCHAR(32) NOT NULL,
    entity_id BIGINT NOT NULL,
    day_offset INT NOT NULL,
    sent_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT reminder_log_key_unique UNIQUE (kind, entity_id, day_offset)
)`

const createTableSQLite = `
CREATE TABLE IF NOT EXISTS reminder_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    day_offset INTEGER NOT NULL,
    sent_at TIMESTAMP NOT NULL,
    UNIQUE (kind, entity_id, day_offset)
)`

// Bootstrap creates the ledger table with "if not exists" semantics. Only
// success is latched: once the DDL has gone through, later calls are a
// no-op, but a failure (store unreachable at first scan) is retried on the
// next run so a transient outage never disables the ledger for the life of
// the process.
func (l *SQLReminderLedger) Bootstrap(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bootstrapped {
		return nil
	}

	ddl := createTablePostgres
	if l.dialect == DialectSQLite {
		ddl = createTableSQLite
	}
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to bootstrap reminder_log: %w", err)
	}
	l.bootstrapped = true
	return nil
}

// WasSent reports whether the (kind, entity, offset) combination already has
// a ledger row. A store error propagates to the caller: defaulting to false
// would double-send, defaulting to true would silently drop reminders.
func (l *SQLReminderLedger) WasSent(ctx context.Context, kind reminder.Kind, entityID int64, dayOffset int) (bool, error) {
	query := l.rebind(`SELECT EXISTS(SELECT 1 FROM reminder_log WHERE kind = ? AND entity_id = ? AND day_offset = ?)`)
	var exists bool
	err := l.db.QueryRowContext(ctx, query, string(kind), entityID, dayOffset).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking reminder_log for %s/%d/%d: %w", kind, entityID, dayOffset, err)
	}
	return exists, nil
}

// MarkSent records a dispatched reminder. Implemented as "insert, ignore on
// conflict": a concurrent or retried scan that already wrote the row is a
// no-op, never an error and never a second row.
func (l *SQLReminderLedger) MarkSent(ctx context.Context, kind reminder.Kind, entityID int64, dayOffset int) error {
	query := l.rebind(`INSERT INTO reminder_log (kind, entity_id, day_offset, sent_at)
               VALUES (?, ?, ?, ?)
               ON CONFLICT (kind, entity_id, day_offset) DO NOTHING`)
	var sentAt any = time.Now().UTC()
	if l.dialect == DialectSQLite {
		sentAt = time.Now().UTC().Format(sqliteTimeLayout)
	}
	_, err := l.db.ExecContext(ctx, query, string(kind), entityID, dayOffset, sentAt)
	if err != nil {
		return fmt.Errorf("error recording reminder %s/%d/%d: %w", kind, entityID, dayOffset, err)
	}
	return nil
}

// Stats aggregates ledger rows by day offset and calendar sent date, most
// recent date first. Read-only; bounded by limit (default 50).
func (l *SQLReminderLedger) Stats(ctx context.Context, limit int) ([]reminder.StatRow, error) {
	if limit <= 0 {
		limit = statsDefaultLimit
	}

	dateExpr := `to_char(sent_at, 'YYYY-MM-DD')`
	if l.dialect == DialectSQLite {
		dateExpr = `strftime('%Y-%m-%d', sent_at)`
	}
	query := l.rebind(fmt.Sprintf(`SELECT day_offset, COUNT(*), %s AS sent_date
               FROM reminder_log
               GROUP BY day_offset, sent_date
               ORDER BY sent_date DESC, day_offset ASC
               LIMIT ?`, dateExpr))

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying reminder stats: %w", err)
	}
	defer rows.Close()

	stats := make([]reminder.StatRow, 0, limit)
	for rows.Next() {
		var row reminder.StatRow
		if err := rows.Scan(&row.DayOffset, &row.Count, &row.SentDate); err != nil {
			return nil, fmt.Errorf("error scanning reminder stat row: %w", err)
		}
		stats = append(stats, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder stat rows: %w", err)
	}
	return stats, nil
}

// rebind rewrites ? placeholders to $1..$n for Postgres. SQLite takes ? as-is.
func (l *SQLReminderLedger) rebind(query string) string {
	if l.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
