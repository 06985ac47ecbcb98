package model

import (
	"strings"
	"time"
)

// Approval statuses of a reservation.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusCanceled = "canceled"
)

// ApprovalStatuses lists every status in rollup order.
var ApprovalStatuses = []string{StatusApproved, StatusRejected, StatusPending, StatusCanceled}

// MaxReservationsPerUser caps how many reservations a non-admin may hold.
const MaxReservationsPerUser = 3

// IsApprovalStatus reports whether s is a known approval status.
func IsApprovalStatus(s string) bool {
	for _, v := range ApprovalStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatusFilter splits a space-separated status query into known
// statuses, dropping unknown tokens and duplicates.
func ParseStatusFilter(q string) []string {
	var out []string
	seen := map[string]bool{}
	for _, tok := range strings.Fields(q) {
		if IsApprovalStatus(tok) && !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// Reservation books a coworking space for a time range.
type Reservation struct {
	ID             uint64    `json:"_id,string"`
	User           uint64    `json:"user,string"`
	CoworkingSpace uint64    `json:"coworkingSpace,string"`
	StartDate      time.Time `json:"startDate" validate:"required"`
	EndDate        time.Time `json:"endDate" validate:"required"`
	PersonCount    int       `json:"personCount" validate:"min=1"`
	ApprovalStatus string    `json:"approvalStatus" validate:"oneof=pending approved rejected canceled"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ReservationWithSpace inlines the booked space in place of its id.
type ReservationWithSpace struct {
	Reservation
	CoworkingSpace CoworkingSpace `json:"coworkingSpace"`
}

// ReservationWithUser inlines the booking user in place of its id.
type ReservationWithUser struct {
	Reservation
	User *User `json:"user"`
}

// ReservationInput is the body of POST /reservations.
type ReservationInput struct {
	CoworkingSpace uint64    `json:"coworkingSpace,string" validate:"required"`
	StartDate      time.Time `json:"startDate" validate:"required"`
	EndDate        time.Time `json:"endDate" validate:"required"`
	PersonCount    int       `json:"personCount" validate:"min=1"`
}

// Normalize books one person when personCount is omitted.
func (in *ReservationInput) Normalize() {
	if in.PersonCount == 0 {
		in.PersonCount = 1
	}
}

// CheckDates rejects an end date before the start date.
func (in ReservationInput) CheckDates() error { return checkOrder(in.StartDate, in.EndDate) }

// ReservationPatch is the body of PUT /reservations/:id.
type ReservationPatch struct {
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	PersonCount    *int       `json:"personCount"`
	ApprovalStatus *string    `json:"approvalStatus"`
}

// Apply merges the patch onto r and validates the result.
func (p ReservationPatch) Apply(r *Reservation) error {
	if p.StartDate != nil {
		r.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		r.EndDate = *p.EndDate
	}
	if p.PersonCount != nil {
		r.PersonCount = *p.PersonCount
	}
	if p.ApprovalStatus != nil {
		r.ApprovalStatus = *p.ApprovalStatus
	}
	if err := Check(r); err != nil {
		return err
	}
	return checkOrder(r.StartDate, r.EndDate)
}

// StatusTotals is the per-status reservation rollup of a space.
type StatusTotals struct {
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Canceled int `json:"canceled"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// Series is one labelled data row of the occupancy histogram.
type Series struct {
	Label string `json:"label"`
	Data  []int  `json:"data"`
}

// Frequency is the time-of-day occupancy histogram of a space.
type Frequency struct {
	Label []string `json:"label"`
	Data  []Series `json:"data"`
}
