package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
)

// userColumns lists the public user columns of table alias a, in the order
// expected by nullUser.dest.
func userColumns(a string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.name, %[1]s.email, %[1]s.phone, %[1]s.role, %[1]s.created_at", a)
}

// nullUser scans a LEFT JOINed user; every column is NULL when the join
// found no row.
type nullUser struct {
	id        sql.NullInt64
	name      sql.NullString
	email     sql.NullString
	phone     sql.NullString
	role      sql.NullString
	createdAt sql.NullTime
}

func (n *nullUser) dest() []any {
	return []any{&n.id, &n.name, &n.email, &n.phone, &n.role, &n.createdAt}
}

func (n nullUser) user() *model.User {
	if !n.id.Valid {
		return nil
	}
	return &model.User{
		ID:        uint64(n.id.Int64),
		Name:      n.name.String,
		Email:     n.email.String,
		Phone:     n.phone.String,
		Role:      n.role.String,
		CreatedAt: n.createdAt.Time,
	}
}

// spaceColumns lists the coworking space columns of table alias a, in the
// order expected by spaceDest.
func spaceColumns(a string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.name, %[1]s.address, %[1]s.district, %[1]s.province, "+
		"%[1]s.postal_code, %[1]s.tel, %[1]s.region, %[1]s.open_time, %[1]s.close_time, "+
		"%[1]s.owner_id, %[1]s.created_at", a)
}

func spaceDest(s *model.CoworkingSpace) []any {
	return []any{&s.ID, &s.Name, &s.Address, &s.District, &s.Province,
		&s.PostalCode, &s.Tel, &s.Region, &s.OpenTime, &s.CloseTime,
		&s.Owner, &s.CreatedAt}
}

// reservationColumns lists the reservation columns of table alias a, in the
// order expected by reservationDest.
func reservationColumns(a string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.user_id, %[1]s.coworking_space_id, %[1]s.start_date, "+
		"%[1]s.end_date, %[1]s.person_count, %[1]s.approval_status, %[1]s.created_at", a)
}

func reservationDest(r *model.Reservation) []any {
	return []any{&r.ID, &r.User, &r.CoworkingSpace, &r.StartDate,
		&r.EndDate, &r.PersonCount, &r.ApprovalStatus, &r.CreatedAt}
}

// banIssueColumns lists the ban issue columns of table alias a; resolved_at
// is scanned through a sql.NullTime by banIssueScanner.
func banIssueColumns(a string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.user_id, %[1]s.admin_id, %[1]s.title, %[1]s.description, "+
		"%[1]s.created_at, %[1]s.end_date, %[1]s.is_resolved, %[1]s.resolved_at", a)
}

type banIssueScanner struct {
	b          model.BanIssue
	resolvedAt sql.NullTime
}

func (s *banIssueScanner) dest() []any {
	return []any{&s.b.ID, &s.b.User, &s.b.Admin, &s.b.Title, &s.b.Description,
		&s.b.CreatedAt, &s.b.EndDate, &s.b.IsResolved, &s.resolvedAt}
}

func (s *banIssueScanner) issue() model.BanIssue {
	b := s.b
	b.ResolvedAt = timePtr(s.resolvedAt)
	return b
}

func appealColumns(a string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.ban_issue_id, %[1]s.description, %[1]s.created_at, "+
		"%[1]s.resolve_status, %[1]s.resolved_at", a)
}

type appealScanner struct {
	a          model.BanAppeal
	resolvedAt sql.NullTime
}

func (s *appealScanner) dest() []any {
	return []any{&s.a.ID, &s.a.BanIssue, &s.a.Description, &s.a.CreatedAt,
		&s.a.ResolveStatus, &s.resolvedAt}
}

func (s *appealScanner) appeal() model.BanAppeal {
	a := s.a
	a.ResolvedAt = timePtr(s.resolvedAt)
	return a
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// creationTime is the created_at written by inserts.  MySQL DATETIME keeps
// whole seconds, so the value returned to the caller matches the stored one.
func creationTime() time.Time { return time.Now().UTC().Truncate(time.Second) }

// notFound maps sql.ErrNoRows to ErrNotFound and leaves other errors as is.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// lockUserTx takes a row lock on a user so that per-user limits checked
// inside the same transaction cannot race.  A missing user yields
// ErrNotFound.
func lockUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ? FOR UPDATE`, userID).Scan(&id)
	return notFound(err)
}
