package database

import (
	"context"
	"database/sql"
	"fmt"

	"travel_reminder_bot/internal/domain/reminder"
)

// PostgresCandidateRepository reads the business schema (tours, cruises,
// tickets, users) and projects upcoming entities into reminder candidates.
// It owns nothing persistent: every scan recomputes the projection. Each
// query filters out soft-cancelled rows and rows whose responsible staff
// member has no resolvable email, so candidates reaching the dispatcher
// always carry a recipient.
type PostgresCandidateRepository struct {
	db *sql.DB
}

func NewPostgresCandidateRepository(db *sql.DB) *PostgresCandidateRepository {
	return &PostgresCandidateRepository{db: db}
}

// TourDepartures returns tours departing today or later, ordered by
// departure date.
func (r *PostgresCandidateRepository) TourDepartures(ctx context.Context) ([]reminder.Candidate, error) {
	query := `SELECT t.id, t.name, t.departure_date, u.email, t.status
               FROM tours t
               JOIN users u ON u.id = t.assigned_to
               WHERE t.departure_date >= CURRENT_DATE
                 AND t.status <> 'cancelled'
                 AND COALESCE(u.email, '') <> ''
               ORDER BY t.departure_date ASC`
	return r.queryCandidates(ctx, reminder.KindTourDeparture, query)
}

// CruiseSailings returns cruises sailing today or later, ordered by sailing
// date.
func (r *PostgresCandidateRepository) CruiseSailings(ctx context.Context) ([]reminder.Candidate, error) {
	query := `SELECT c.id, c.ship_name, c.sailing_date, u.email, c.status
               FROM cruises c
               JOIN users u ON u.id = c.assigned_to
               WHERE c.sailing_date >= CURRENT_DATE
                 AND c.status <> 'cancelled'
                 AND COALESCE(u.email, '') <> ''
               ORDER BY c.sailing_date ASC`
	return r.queryCandidates(ctx, reminder.KindCruiseSailing, query)
}

// TourReturns returns tours whose return leg arrives today or later, ordered
// by return date. Same table as departures, different target column.
func (r *PostgresCandidateRepository) TourReturns(ctx context.Context) ([]reminder.Candidate, error) {
	query := `SELECT t.id, t.name, t.return_date, u.email, t.status
               FROM tours t
               JOIN users u ON u.id = t.assigned_to
               WHERE t.return_date >= CURRENT_DATE
                 AND t.status <> 'cancelled'
                 AND COALESCE(u.email, '') <> ''
               ORDER BY t.return_date ASC`
	return r.queryCandidates(ctx, reminder.KindTourReturn, query)
}

// Tickets returns ticketed flights departing today or later, ordered by
// flight date. The label combines flight number and passenger so an operator
// can find the booking from an error entry alone.
func (r *PostgresCandidateRepository) Tickets(ctx context.Context) ([]reminder.Candidate, error) {
	query := `SELECT tk.id, tk.flight_no || ' / ' || tk.passenger_name, tk.flight_date, u.email, tk.status
               FROM tickets tk
               JOIN users u ON u.id = tk.assigned_to
               WHERE tk.flight_date >= CURRENT_DATE
                 AND tk.status <> 'cancelled'
                 AND COALESCE(u.email, '') <> ''
               ORDER BY tk.flight_date ASC`
	return r.queryCandidates(ctx, reminder.KindTicket, query)
}

func (r *PostgresCandidateRepository) queryCandidates(ctx context.Context, kind reminder.Kind, query string) ([]reminder.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying %s candidates: %w", kind, err)
	}
	defer rows.Close()

	candidates := make([]reminder.Candidate, 0)
	for rows.Next() {
		c := reminder.Candidate{Kind: kind}
		if err := rows.Scan(&c.EntityID, &c.DisplayLabel, &c.TargetDate, &c.RecipientEmail, &c.Status); err != nil {
			return nil, fmt.Errorf("error scanning %s candidate row: %w", kind, err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s candidate rows: %w", kind, err)
	}
	return candidates, nil
}
