package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// CoworkingSpaceRepo encapsulates all database queries related to
// coworking spaces.
type CoworkingSpaceRepo struct {
	db *sql.DB
}

func NewCoworkingSpaceRepo(db *sql.DB) *CoworkingSpaceRepo {
	return &CoworkingSpaceRepo{db: db}
}

// Create inserts s and fills in its id and creation time.
func (r *CoworkingSpaceRepo) Create(ctx context.Context, s *model.CoworkingSpace) error {
	const q = `INSERT INTO coworking_spaces
	           (owner_id, name, address, district, province, postal_code, tel, region, open_time, close_time, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	created := creationTime()
	res, err := r.db.ExecContext(ctx, q, s.Owner, s.Name, s.Address, s.District, s.Province,
		s.PostalCode, s.Tel, s.Region, s.OpenTime, s.CloseTime, created)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt = created
	return nil
}

// GetByID returns ErrNotFound when no space has the id.
func (r *CoworkingSpaceRepo) GetByID(ctx context.Context, id uint64) (model.CoworkingSpace, error) {
	var s model.CoworkingSpace
	err := r.db.QueryRowContext(ctx,
		"SELECT "+spaceColumns("cs")+" FROM coworking_spaces cs WHERE cs.id = ?", id).
		Scan(spaceDest(&s)...)
	return s, notFound(err)
}

const spaceViewFrom = " FROM coworking_spaces cs LEFT JOIN users o ON o.id = cs.owner_id"

func scanSpaceView(sc interface{ Scan(...any) error }) (model.CoworkingSpaceView, error) {
	var (
		v  model.CoworkingSpaceView
		nu nullUser
	)
	if err := sc.Scan(append(spaceDest(&v.CoworkingSpace), nu.dest()...)...); err != nil {
		return v, err
	}
	v.Owner = nu.user()
	return v, nil
}

// GetView returns the space with its owner inlined.
func (r *CoworkingSpaceRepo) GetView(ctx context.Context, id uint64) (model.CoworkingSpaceView, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+spaceColumns("cs")+", "+userColumns("o")+spaceViewFrom+" WHERE cs.id = ?", id)
	v, err := scanSpaceView(row)
	return v, notFound(err)
}

// List returns one page of spaces ordered by id, owners inlined, and the
// total count.
func (r *CoworkingSpaceRepo) List(ctx context.Context, p utils.Pagination) ([]model.CoworkingSpaceView, int, error) {
	return listWithTotal(ctx, r.db, pageQuery{
		countSQL: "SELECT COUNT(*) FROM coworking_spaces",
		pageSQL:  "SELECT " + spaceColumns("cs") + ", " + userColumns("o") + spaceViewFrom + " ORDER BY cs.id",
		page:     p,
	}, func(rows *sql.Rows) (model.CoworkingSpaceView, error) {
		return scanSpaceView(rows)
	})
}

// Update overwrites every mutable column of s.  The owner never changes.
func (r *CoworkingSpaceRepo) Update(ctx context.Context, s model.CoworkingSpace) error {
	const q = `UPDATE coworking_spaces
	           SET name = ?, address = ?, district = ?, province = ?, postal_code = ?,
	               tel = ?, region = ?, open_time = ?, close_time = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.Name, s.Address, s.District, s.Province, s.PostalCode,
		s.Tel, s.Region, s.OpenTime, s.CloseTime, s.ID)
	if err != nil {
		return err
	}
	// RowsAffected is 0 for an unchanged row too, so existence is checked
	// by the caller beforehand.
	_, err = res.RowsAffected()
	return err
}

// Delete removes a space and all of its reservations in one transaction.
// It returns the number of reservations removed.
func (r *CoworkingSpaceRepo) Delete(ctx context.Context, id uint64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE coworking_space_id = ?`, id)
	if err != nil {
		return 0, err
	}
	removed, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM coworking_spaces WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}
	return removed, tx.Commit()
}
