package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// BanAppealRepo stores appeals against ban issues and their comment
// threads.  An appeal accepts comments and a decision only while its
// resolve_status is pending.
type BanAppealRepo struct {
	db *sql.DB
}

func NewBanAppealRepo(db *sql.DB) *BanAppealRepo { return &BanAppealRepo{db: db} }

// Create files an appeal against an active ban issue.  The issue row is
// locked for the duration of the check; a resolved or expired issue yields
// ErrAlreadyResolved and a second appeal yields ErrAppealExists.
func (r *BanAppealRepo) Create(ctx context.Context, issueID uint64, in model.BanAppealInput, now time.Time) (model.BanAppeal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.BanAppeal{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		resolved bool
		endDate  time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT is_resolved, end_date FROM ban_issues WHERE id = ? FOR UPDATE`, issueID).
		Scan(&resolved, &endDate)
	if err != nil {
		return model.BanAppeal{}, notFound(err)
	}
	if resolved || !endDate.After(now) {
		return model.BanAppeal{}, ErrAlreadyResolved
	}

	created := now.UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ban_appeals (ban_issue_id, description, created_at) VALUES (?, ?, ?)`,
		issueID, in.Description, created)
	if err != nil {
		if isDuplicate(err) {
			return model.BanAppeal{}, ErrAppealExists
		}
		return model.BanAppeal{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.BanAppeal{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.BanAppeal{}, err
	}
	return model.BanAppeal{
		ID:            uint64(id),
		BanIssue:      issueID,
		Description:   in.Description,
		CreatedAt:     created,
		ResolveStatus: model.AppealPending,
	}, nil
}

// Get loads an appeal that belongs to issueID.
func (r *BanAppealRepo) Get(ctx context.Context, issueID, appealID uint64) (model.BanAppeal, error) {
	var s appealScanner
	err := r.db.QueryRowContext(ctx,
		"SELECT "+appealColumns("ap")+" FROM ban_appeals ap WHERE ap.id = ? AND ap.ban_issue_id = ?",
		appealID, issueID).Scan(s.dest()...)
	if err != nil {
		return model.BanAppeal{}, notFound(err)
	}
	return s.appeal(), nil
}

// GetDetail loads an appeal with its ban issue and its comments, oldest
// comment first, each with the author inlined.
func (r *BanAppealRepo) GetDetail(ctx context.Context, issueID, appealID uint64) (model.BanAppealDetail, error) {
	var (
		as appealScanner
		bs banIssueScanner
	)
	q := "SELECT " + appealColumns("ap") + ", " + banIssueColumns("b") + `
	      FROM ban_appeals ap
	      JOIN ban_issues b ON b.id = ap.ban_issue_id
	      WHERE ap.id = ? AND ap.ban_issue_id = ?`
	if err := r.db.QueryRowContext(ctx, q, appealID, issueID).
		Scan(append(as.dest(), bs.dest()...)...); err != nil {
		return model.BanAppealDetail{}, notFound(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.text, c.created_at, `+userColumns("u")+`
		FROM ban_appeal_comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.ban_appeal_id = ?
		ORDER BY c.created_at, c.id`, appealID)
	if err != nil {
		return model.BanAppealDetail{}, err
	}
	defer rows.Close()

	comments := make([]model.CommentView, 0)
	for rows.Next() {
		var (
			cv model.CommentView
			nu nullUser
		)
		dest := append([]any{&cv.ID, &cv.Comment.User, &cv.Text, &cv.CreatedAt}, nu.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return model.BanAppealDetail{}, err
		}
		cv.User = nu.user()
		comments = append(comments, cv)
	}
	if err := rows.Err(); err != nil {
		return model.BanAppealDetail{}, err
	}
	return model.BanAppealDetail{BanAppeal: as.appeal(), BanIssue: bs.issue(), Comment: comments}, nil
}

// ListByIssue returns the appeals of an issue without their comments.
func (r *BanAppealRepo) ListByIssue(ctx context.Context, issueID uint64) ([]model.BanAppeal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+appealColumns("ap")+" FROM ban_appeals ap WHERE ap.ban_issue_id = ? ORDER BY ap.id", issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BanAppeal, 0)
	for rows.Next() {
		var s appealScanner
		if err := rows.Scan(s.dest()...); err != nil {
			return nil, err
		}
		out = append(out, s.appeal())
	}
	return out, rows.Err()
}

// List returns one page of appeals, each with its ban issue and the
// issue's target inlined.
func (r *BanAppealRepo) List(ctx context.Context, p utils.Pagination) ([]model.BanAppealListItem, int, error) {
	const from = ` FROM ban_appeals ap
	  JOIN ban_issues b ON b.id = ap.ban_issue_id
	  LEFT JOIN users u ON u.id = b.user_id`
	return listWithTotal(ctx, r.db, pageQuery{
		countSQL: "SELECT COUNT(*)" + from,
		pageSQL: "SELECT " + appealColumns("ap") + ", " + banIssueColumns("b") + ", " + userColumns("u") +
			from + " ORDER BY ap.created_at DESC, ap.id DESC",
		page: p,
	}, func(rows *sql.Rows) (model.BanAppealListItem, error) {
		var (
			as appealScanner
			bs banIssueScanner
			nu nullUser
		)
		dest := append(as.dest(), bs.dest()...)
		dest = append(dest, nu.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return model.BanAppealListItem{}, err
		}
		return model.BanAppealListItem{
			BanAppeal: as.appeal(),
			BanIssue:  model.BanIssueTarget{BanIssue: bs.issue(), User: nu.user()},
		}, nil
	})
}

// AddComment appends a comment by userID to a pending appeal.  The insert
// is conditional on the appeal still being pending; otherwise
// ErrNotPending (or ErrNotFound) is returned and nothing is written.
func (r *BanAppealRepo) AddComment(ctx context.Context, issueID, appealID, userID uint64, in model.CommentInput, now time.Time) (model.Comment, error) {
	created := now.UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ban_appeal_comments (ban_appeal_id, user_id, text, created_at)
		SELECT ap.id, ?, ?, ? FROM ban_appeals ap
		WHERE ap.id = ? AND ap.ban_issue_id = ? AND ap.resolve_status = 'pending'`,
		userID, in.Text, created, appealID, issueID)
	if err != nil {
		return model.Comment{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Comment{}, err
	}
	if n == 0 {
		if _, err := r.Get(ctx, issueID, appealID); err != nil {
			return model.Comment{}, err
		}
		return model.Comment{}, ErrNotPending
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Comment{}, err
	}
	return model.Comment{ID: uint64(id), User: userID, Text: in.Text, CreatedAt: created}, nil
}

// Resolve moves a pending appeal to status (resolved or denied) exactly
// once.  Resolving an appeal as "resolved" also resolves its ban issue in
// the same transaction.  A decided appeal yields ErrNotPending.
func (r *BanAppealRepo) Resolve(ctx context.Context, issueID, appealID uint64, status string, now time.Time) (model.BanAppeal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.BanAppeal{}, err
	}
	defer func() { _ = tx.Rollback() }()

	at := now.UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		`UPDATE ban_appeals SET resolve_status = ?, resolved_at = ?
		 WHERE id = ? AND ban_issue_id = ? AND resolve_status = 'pending'`,
		status, at, appealID, issueID)
	if err != nil {
		return model.BanAppeal{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.BanAppeal{}, err
	}
	if n == 0 {
		var id uint64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM ban_appeals WHERE id = ? AND ban_issue_id = ?`, appealID, issueID).Scan(&id)
		if err != nil {
			return model.BanAppeal{}, notFound(err)
		}
		return model.BanAppeal{}, ErrNotPending
	}
	if status == model.AppealResolved {
		if _, err := tx.ExecContext(ctx,
			`UPDATE ban_issues SET is_resolved = 1, resolved_at = ? WHERE id = ? AND is_resolved = 0`,
			at, issueID); err != nil {
			return model.BanAppeal{}, err
		}
	}

	var s appealScanner
	if err := tx.QueryRowContext(ctx,
		"SELECT "+appealColumns("ap")+" FROM ban_appeals ap WHERE ap.id = ?", appealID).
		Scan(s.dest()...); err != nil {
		return model.BanAppeal{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.BanAppeal{}, err
	}
	return s.appeal(), nil
}
