// Package queue defines the domain events exchanged over the message
// broker and the consumer that records them.
package queue

import (
	"fmt"
	"strings"
	"time"
)

// QueueName is the durable queue every domain event is published to.
const QueueName = "coworking.events"

// Event types.
const (
	ReservationCreated = "reservation.created"
	ReservationUpdated = "reservation.updated"
	ReservationDeleted = "reservation.deleted"
	BanIssued          = "ban.issued"
	BanResolved        = "ban.resolved"
	AppealFiled        = "appeal.filed"
	AppealResolved     = "appeal.resolved"
)

// Event is published after a successful write.  Ids that do not apply to
// the event type are zero and omitted from the payload.
type Event struct {
	Type       string    `json:"type"`
	ActorID    uint64    `json:"actor_id"`
	EntityID   uint64    `json:"entity_id"`
	UserID     uint64    `json:"user_id,omitempty"`
	SpaceID    uint64    `json:"coworking_space_id,omitempty"`
	BanIssueID uint64    `json:"ban_issue_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditLine renders ev as one line of the audit log.
func (ev Event) AuditLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | actor_id=%d | entity_id=%d",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.ActorID, ev.EntityID)
	if ev.UserID != 0 {
		fmt.Fprintf(&b, " | user_id=%d", ev.UserID)
	}
	if ev.SpaceID != 0 {
		fmt.Fprintf(&b, " | coworking_space_id=%d", ev.SpaceID)
	}
	if ev.BanIssueID != 0 {
		fmt.Fprintf(&b, " | ban_issue_id=%d", ev.BanIssueID)
	}
	if ev.Status != "" {
		fmt.Fprintf(&b, " | status=%s", ev.Status)
	}
	b.WriteByte('\n')
	return b.String()
}
