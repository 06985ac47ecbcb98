package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// ReservationRepo provides CRUD operations for reservations.  All
// timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationFilter narrows reservation listings.  Nil bounds and an empty
// status set are not applied; Search is a MySQL REGEXP on the space name
// and must already have passed utils.ValidateRegex.
type ReservationFilter struct {
	Min      *int
	Max      *int
	Statuses []string
	Search   string
}

// where renders the filter as SQL conditions on reservation alias r and
// space alias cs.
func (f ReservationFilter) where() ([]string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Min != nil {
		conds = append(conds, "r.person_count >= ?")
		args = append(args, *f.Min)
	}
	if f.Max != nil {
		conds = append(conds, "r.person_count <= ?")
		args = append(args, *f.Max)
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, "r.approval_status IN (?"+strings.Repeat(",?", len(f.Statuses)-1)+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.Search != "" {
		conds = append(conds, "cs.name REGEXP ?")
		args = append(args, f.Search)
	}
	return conds, args
}

// Create inserts a pending reservation for userID.  Inside one transaction
// it locks the user row, enforces model.MaxReservationsPerUser for
// non-admins and checks that the space exists, so concurrent requests of
// the same user are serialized.
func (r *ReservationRepo) Create(ctx context.Context, userID uint64, isAdmin bool, in model.ReservationInput) (model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUserTx(ctx, tx, userID); err != nil {
		return model.Reservation{}, err
	}
	if !isAdmin {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&n); err != nil {
			return model.Reservation{}, err
		}
		if n >= model.MaxReservationsPerUser {
			return model.Reservation{}, ErrReservationLimit
		}
	}
	var spaceID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM coworking_spaces WHERE id = ?`, in.CoworkingSpace).Scan(&spaceID)
	if err != nil {
		return model.Reservation{}, notFound(err)
	}

	const q = `INSERT INTO reservations (user_id, coworking_space_id, start_date, end_date, person_count, approval_status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	created := creationTime()
	res, err := tx.ExecContext(ctx, q, userID, in.CoworkingSpace,
		in.StartDate.UTC(), in.EndDate.UTC(), in.PersonCount, model.StatusPending, created)
	if err != nil {
		return model.Reservation{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	return model.Reservation{
		ID:             uint64(id),
		User:           userID,
		CoworkingSpace: in.CoworkingSpace,
		StartDate:      in.StartDate.UTC(),
		EndDate:        in.EndDate.UTC(),
		PersonCount:    in.PersonCount,
		ApprovalStatus: model.StatusPending,
		CreatedAt:      created,
	}, nil
}

// GetWithSpace loads a reservation together with the space it books.
func (r *ReservationRepo) GetWithSpace(ctx context.Context, id uint64) (model.ReservationWithSpace, error) {
	var out model.ReservationWithSpace
	q := "SELECT " + reservationColumns("r") + ", " + spaceColumns("cs") + `
	      FROM reservations r
	      JOIN coworking_spaces cs ON cs.id = r.coworking_space_id
	      WHERE r.id = ?`
	dest := append(reservationDest(&out.Reservation), spaceDest(&out.CoworkingSpace)...)
	err := r.db.QueryRowContext(ctx, q, id).Scan(dest...)
	return out, notFound(err)
}

// Update writes the mutable fields of res, but only while the stored row
// is still pending.  A row that has left pending yields ErrNotPending and
// is not modified.
func (r *ReservationRepo) Update(ctx context.Context, res model.Reservation) error {
	const q = `UPDATE reservations
	           SET start_date = ?, end_date = ?, person_count = ?, approval_status = ?
	           WHERE id = ? AND approval_status = 'pending'`
	result, err := r.db.ExecContext(ctx, q, res.StartDate.UTC(), res.EndDate.UTC(),
		res.PersonCount, res.ApprovalStatus, res.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is gone or it is no longer pending.  An
		// identical update of a pending row also reports zero rows, so
		// look at the stored status before deciding.
		var status string
		err := r.db.QueryRowContext(ctx,
			`SELECT approval_status FROM reservations WHERE id = ?`, res.ID).Scan(&status)
		if err != nil {
			return notFound(err)
		}
		if status != model.StatusPending {
			return ErrNotPending
		}
	}
	return nil
}

// Delete removes a reservation.  ErrNotFound when nothing was deleted.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns the user's reservations with their spaces inlined.
// Reservations whose space does not match f.Search are excluded from both
// the page and the total.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, f ReservationFilter, p utils.Pagination) ([]model.ReservationWithSpace, int, error) {
	conds, args := f.where()
	conds = append([]string{"r.user_id = ?"}, conds...)
	args = append([]any{userID}, args...)
	from := ` FROM reservations r
	          JOIN coworking_spaces cs ON cs.id = r.coworking_space_id
	          WHERE ` + strings.Join(conds, " AND ")

	items, total, err := listWithTotal(ctx, r.db, pageQuery{
		countSQL: "SELECT COUNT(*)" + from,
		pageSQL:  "SELECT " + reservationColumns("r") + ", " + spaceColumns("cs") + from + " ORDER BY r.id",
		args:     args,
		page:     p,
	}, func(rows *sql.Rows) (model.ReservationWithSpace, error) {
		var v model.ReservationWithSpace
		err := rows.Scan(append(reservationDest(&v.Reservation), spaceDest(&v.CoworkingSpace)...)...)
		return v, err
	})
	return searchMiss(f, items, total, err)
}

// searchMiss turns a pattern the database refuses into an empty page: such
// a search matches nothing rather than failing the request.
func searchMiss[T any](f ReservationFilter, items []T, total int, err error) ([]T, int, error) {
	if err != nil && f.Search != "" && isRegexpError(err) {
		return []T{}, 0, nil
	}
	return items, total, err
}

// ListBySpace returns reservations of a space with the booking user
// inlined.  A non-zero onlyUserID restricts the listing to that user's
// reservations.
func (r *ReservationRepo) ListBySpace(ctx context.Context, spaceID, onlyUserID uint64, f ReservationFilter, p utils.Pagination) ([]model.ReservationWithUser, int, error) {
	conds, args := f.where()
	conds = append([]string{"r.coworking_space_id = ?"}, conds...)
	args = append([]any{spaceID}, args...)
	if onlyUserID != 0 {
		conds = append(conds, "r.user_id = ?")
		args = append(args, onlyUserID)
	}
	from := ` FROM reservations r
	          JOIN coworking_spaces cs ON cs.id = r.coworking_space_id
	          LEFT JOIN users u ON u.id = r.user_id
	          WHERE ` + strings.Join(conds, " AND ")

	items, total, err := listWithTotal(ctx, r.db, pageQuery{
		countSQL: "SELECT COUNT(*)" + from,
		pageSQL:  "SELECT " + reservationColumns("r") + ", " + userColumns("u") + from + " ORDER BY r.id",
		args:     args,
		page:     p,
	}, func(rows *sql.Rows) (model.ReservationWithUser, error) {
		var (
			v  model.ReservationWithUser
			nu nullUser
		)
		if err := rows.Scan(append(reservationDest(&v.Reservation), nu.dest()...)...); err != nil {
			return v, err
		}
		v.User = nu.user()
		return v, nil
	})
	return searchMiss(f, items, total, err)
}
