package repository

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// pageQuery describes a paginated listing: the unbounded COUNT(*) and the
// page SELECT share the same filter arguments; the page query gets LIMIT
// and OFFSET appended.
type pageQuery struct {
	countSQL string
	pageSQL  string
	args     []any
	page     utils.Pagination
}

// listWithTotal issues the count and the page query concurrently and
// returns the scanned page together with the total.  The result slice is
// never nil.
func listWithTotal[T any](ctx context.Context, db *sql.DB, q pageQuery, scan func(*sql.Rows) (T, error)) ([]T, int, error) {
	var (
		total int
		items []T
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.QueryRowContext(gctx, q.countSQL, q.args...).Scan(&total)
	})
	g.Go(func() error {
		args := append(append([]any{}, q.args...), q.page.Limit, q.page.Offset())
		rows, err := db.QueryContext(gctx, q.pageSQL+" LIMIT ? OFFSET ?", args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out := make([]T, 0, q.page.Limit)
		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		items = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
