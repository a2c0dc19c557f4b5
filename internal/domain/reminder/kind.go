package reminder

import "time"

// Kind identifies the category of upcoming event a reminder is about.
// It doubles as the ledger namespace: sent-log rows are keyed by
// (kind, entity_id, day_offset).
type Kind string

const (
	KindTourDeparture Kind = "tour_departure"
	KindCruiseSailing Kind = "cruise_sailing"
	KindTourReturn    Kind = "tour_return"
	KindTicket        Kind = "ticket"
)

// Candidate is an in-memory projection of a business entity eligible for a
// reminder check in the current scan. Candidates are recomputed every scan and
// never persisted. Providers guarantee RecipientEmail is non-empty; rows
// without a resolvable address are excluded at the query.
type Candidate struct {
	EntityID       int64
	Kind           Kind
	TargetDate     time.Time
	RecipientEmail string
	DisplayLabel   string
	Status         string
}

// StatRow is one aggregated line of the observability query: how many
// reminders were sent for a given day offset on a given calendar date.
// SentDate is formatted as YYYY-MM-DD.
type StatRow struct {
	DayOffset int
	Count     int
	SentDate  string
}
