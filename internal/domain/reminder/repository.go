package reminder

import "context"

// Ledger is the persistent sent-log for dispatched reminders.
//
// MarkSent must be implemented as "insert, ignore on conflict" against a
// storage-level uniqueness constraint on (kind, entity_id, day_offset):
// duplicate attempts from concurrent or retried scans must neither error nor
// produce a second row. Store errors are returned to the caller, never
// swallowed — treating an unreachable store as "not sent" would double-send,
// treating it as "sent" would silently drop reminders.
type Ledger interface {
	// Bootstrap creates the backing schema if it does not exist yet.
	// Idempotent; safe to call on every run.
	Bootstrap(ctx context.Context) error
	// WasSent reports whether the (kind, entity, offset) combination has
	// already been notified.
	WasSent(ctx context.Context, kind Kind, entityID int64, dayOffset int) (bool, error)
	// MarkSent records a successful dispatch. Conflicting inserts are a no-op.
	MarkSent(ctx context.Context, kind Kind, entityID int64, dayOffset int) error
	// Stats aggregates sent counts by day offset and calendar date, most
	// recent date first, at most limit rows. Read-only.
	Stats(ctx context.Context, limit int) ([]StatRow, error)
}

// CandidateProvider sources the upcoming entities of one kind from the
// business schema: target date today or later, soft-cancelled statuses
// excluded, recipient email resolved and non-empty, ordered ascending by
// target date.
type CandidateProvider interface {
	Upcoming(ctx context.Context) ([]Candidate, error)
}

// ProviderFunc adapts a plain query function to the CandidateProvider
// interface.
type ProviderFunc func(ctx context.Context) ([]Candidate, error)

func (f ProviderFunc) Upcoming(ctx context.Context) ([]Candidate, error) {
	return f(ctx)
}

// Notifier delivers one reminder message. The engine never inspects message
// content; it only branches on the returned error. The message id is kept for
// logging.
type Notifier interface {
	Send(ctx context.Context, c Candidate, daysUntil int) (messageID string, err error)
}
