package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
)

// SlotsPerDay is the number of 30-minute slots in the occupancy histogram.
const SlotsPerDay = 48

const slotWidth = 30 * time.Minute

// ReservationStats computes read-only rollups over the reservations of a
// space.
type ReservationStats struct {
	db *sql.DB
}

func NewReservationStats(db *sql.DB) *ReservationStats { return &ReservationStats{db: db} }

// Span is the part of a reservation the histogram needs.
type Span struct {
	Start  time.Time
	End    time.Time
	Status string
}

// StatusTotals counts the reservations of a space per approval status.
// Statuses without reservations are reported as zero.
func (s *ReservationStats) StatusTotals(ctx context.Context, spaceID uint64) (model.StatusTotals, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT approval_status, COUNT(*) FROM reservations WHERE coworking_space_id = ? GROUP BY approval_status`,
		spaceID)
	if err != nil {
		return model.StatusTotals{}, err
	}
	defer rows.Close()

	var t model.StatusTotals
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return model.StatusTotals{}, err
		}
		switch status {
		case model.StatusApproved:
			t.Approved = n
		case model.StatusPending:
			t.Pending = n
		case model.StatusCanceled:
			t.Canceled = n
		case model.StatusRejected:
			t.Rejected = n
		}
		t.Total += n
	}
	return t, rows.Err()
}

// Frequency builds the time-of-day occupancy histogram of a space.
func (s *ReservationStats) Frequency(ctx context.Context, spaceID uint64) (model.Frequency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_date, end_date, approval_status FROM reservations WHERE coworking_space_id = ?`,
		spaceID)
	if err != nil {
		return model.Frequency{}, err
	}
	defer rows.Close()

	var spans []Span
	for rows.Next() {
		var sp Span
		if err := rows.Scan(&sp.Start, &sp.End, &sp.Status); err != nil {
			return model.Frequency{}, err
		}
		spans = append(spans, sp)
	}
	if err := rows.Err(); err != nil {
		return model.Frequency{}, err
	}
	return BuildFrequency(spans), nil
}

// BuildFrequency buckets reservations into the 48 half-hour slots of a
// day.  Both ends of a span are rounded down to a slot boundary in UTC and
// every slot from the first to the last is counted once for the span's
// status, so a reservation crossing midnight wraps around.  Slots without
// reservations are zero.  Series are ordered Approved, Rejected, Pending,
// Canceled.
func BuildFrequency(spans []Span) model.Frequency {
	counts := make(map[string][]int, len(model.ApprovalStatuses))
	for _, st := range model.ApprovalStatuses {
		counts[st] = make([]int, SlotsPerDay)
	}
	for _, sp := range spans {
		series, ok := counts[sp.Status]
		if !ok {
			continue
		}
		from := sp.Start.UTC().Truncate(slotWidth)
		to := sp.End.UTC().Truncate(slotWidth)
		if to.Before(from) {
			from, to = to, from
		}
		for t := from; !t.After(to); t = t.Add(slotWidth) {
			series[slotOf(t)]++
		}
	}

	f := model.Frequency{
		Label: make([]string, SlotsPerDay),
		Data:  make([]model.Series, 0, len(model.ApprovalStatuses)),
	}
	for i := range f.Label {
		f.Label[i] = fmt.Sprintf("%02d:%02d", i/2, (i%2)*30)
	}
	for _, st := range model.ApprovalStatuses {
		f.Data = append(f.Data, model.Series{Label: seriesLabel(st), Data: counts[st]})
	}
	return f
}

func slotOf(t time.Time) int { return (t.Hour()*60 + t.Minute()) / 30 }

func seriesLabel(status string) string {
	switch status {
	case model.StatusApproved:
		return "Approved"
	case model.StatusRejected:
		return "Rejected"
	case model.StatusPending:
		return "Pending"
	default:
		return "Canceled"
	}
}
