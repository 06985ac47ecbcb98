package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// BanIssueRepo stores ban issues.  A ban is active while is_resolved = 0
// and end_date lies in the future; expired rows are repaired lazily by
// ResolveExpired.  Every method takes "now" explicitly so callers and
// tests agree on a single clock reading per request.
type BanIssueRepo struct {
	db *sql.DB
}

func NewBanIssueRepo(db *sql.DB) *BanIssueRepo { return &BanIssueRepo{db: db} }

// BanIssueQuery selects ban issues for List.  A zero UserID matches every
// target.
type BanIssueQuery struct {
	UserID     uint64
	ActiveOnly bool
	Now        time.Time
}

// ResolveExpired marks every unresolved issue whose end date has passed as
// resolved at its end date.  Running it again changes nothing.
func (r *BanIssueRepo) ResolveExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ban_issues SET is_resolved = 1, resolved_at = end_date WHERE is_resolved = 0 AND end_date <= ?`,
		now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountActiveForUser counts the active bans targeting userID.
func (r *BanIssueRepo) CountActiveForUser(ctx context.Context, userID uint64, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ban_issues WHERE user_id = ? AND is_resolved = 0 AND end_date > ?`,
		userID, now.UTC()).Scan(&n)
	return n, err
}

// Create bans targetID on behalf of adminID.  The target's user row is
// locked while checking for an existing active ban, so two admins cannot
// ban the same user twice.
func (r *BanIssueRepo) Create(ctx context.Context, targetID, adminID uint64, in model.BanIssueInput, now time.Time) (model.BanIssue, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.BanIssue{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUserTx(ctx, tx, targetID); err != nil {
		return model.BanIssue{}, err
	}
	var active int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ban_issues WHERE user_id = ? AND is_resolved = 0 AND end_date > ?`,
		targetID, now.UTC()).Scan(&active); err != nil {
		return model.BanIssue{}, err
	}
	if active > 0 {
		return model.BanIssue{}, ErrAlreadyBanned
	}

	created := now.UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ban_issues (user_id, admin_id, title, description, created_at, end_date) VALUES (?, ?, ?, ?, ?, ?)`,
		targetID, adminID, in.Title, in.Description, created, in.EndDate.UTC())
	if err != nil {
		return model.BanIssue{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.BanIssue{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.BanIssue{}, err
	}
	return model.BanIssue{
		ID:          uint64(id),
		User:        targetID,
		Admin:       adminID,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   created,
		EndDate:     in.EndDate.UTC(),
	}, nil
}

// Get loads a bare ban issue.
func (r *BanIssueRepo) Get(ctx context.Context, id uint64) (model.BanIssue, error) {
	var s banIssueScanner
	err := r.db.QueryRowContext(ctx,
		"SELECT "+banIssueColumns("b")+" FROM ban_issues b WHERE b.id = ?", id).Scan(s.dest()...)
	if err != nil {
		return model.BanIssue{}, notFound(err)
	}
	return s.issue(), nil
}

const banIssueViewFrom = ` FROM ban_issues b
	  LEFT JOIN users u ON u.id = b.user_id
	  LEFT JOIN users a ON a.id = b.admin_id`

func scanBanIssueView(sc interface{ Scan(...any) error }) (model.BanIssueView, error) {
	var (
		s      banIssueScanner
		target nullUser
		admin  nullUser
	)
	dest := append(s.dest(), target.dest()...)
	dest = append(dest, admin.dest()...)
	if err := sc.Scan(dest...); err != nil {
		return model.BanIssueView{}, err
	}
	return model.BanIssueView{BanIssue: s.issue(), User: target.user(), Admin: admin.user()}, nil
}

// GetView loads a ban issue with its target and issuing admin inlined.
func (r *BanIssueRepo) GetView(ctx context.Context, id uint64) (model.BanIssueView, error) {
	q := "SELECT " + banIssueColumns("b") + ", " + userColumns("u") + ", " + userColumns("a") +
		banIssueViewFrom + " WHERE b.id = ?"
	v, err := scanBanIssueView(r.db.QueryRowContext(ctx, q, id))
	return v, notFound(err)
}

// List returns ban issues with target and admin inlined, newest first.
// Issues whose target no longer exists are skipped.
func (r *BanIssueRepo) List(ctx context.Context, bq BanIssueQuery, p utils.Pagination) ([]model.BanIssueView, int, error) {
	conds := []string{"u.id IS NOT NULL"}
	var args []any
	if bq.UserID != 0 {
		conds = append(conds, "b.user_id = ?")
		args = append(args, bq.UserID)
	}
	if bq.ActiveOnly {
		conds = append(conds, "b.is_resolved = 0", "b.end_date > ?")
		args = append(args, bq.Now.UTC())
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	return listWithTotal(ctx, r.db, pageQuery{
		countSQL: "SELECT COUNT(*)" + banIssueViewFrom + where,
		pageSQL: "SELECT " + banIssueColumns("b") + ", " + userColumns("u") + ", " + userColumns("a") +
			banIssueViewFrom + where + " ORDER BY b.created_at DESC, b.id DESC",
		args: args,
		page: p,
	}, func(rows *sql.Rows) (model.BanIssueView, error) {
		return scanBanIssueView(rows)
	})
}

// Resolve marks an unresolved issue as resolved at now and returns the
// updated row.  An issue that is already resolved is returned unchanged
// together with ErrAlreadyResolved.
func (r *BanIssueRepo) Resolve(ctx context.Context, id uint64, now time.Time) (model.BanIssue, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ban_issues SET is_resolved = 1, resolved_at = ? WHERE id = ? AND is_resolved = 0`,
		now.UTC(), id)
	if err != nil {
		return model.BanIssue{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.BanIssue{}, err
	}
	b, err := r.Get(ctx, id)
	if err != nil {
		return model.BanIssue{}, err
	}
	if n == 0 {
		return b, ErrAlreadyResolved
	}
	return b, nil
}
