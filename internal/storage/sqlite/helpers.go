package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	tipster "github.com/winmix/tipsterhub/internal"
)

type scanner interface {
	Scan(dest ...any) error
}

// notFoundErr translates sql.ErrNoRows to tipster.ErrNotFound.
func notFoundErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return tipster.ErrNotFound
	}
	return err
}

// writeErr classifies constraint failures reported by SQLite.
func writeErr(entity string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", entity, tipster.ErrConflict)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%s: %w: %s", entity, tipster.ErrBadRequest, msg)
	}
	return err
}

func checkRowsAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, tipster.ErrNotFound)
	}
	return nil
}

func timeToStr(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func boolPtr(n sql.NullInt64) *bool {
	if !n.Valid {
		return nil
	}
	v := n.Int64 != 0
	return &v
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// listSpec whitelists the columns a table read may filter and order by.
type listSpec struct {
	filters      map[string]string // option name -> column, or predicate with ? placeholders
	orders       map[string]string // option name -> column
	defaultOrder string
}

const maxListLimit = 500

// buildList appends WHERE, ORDER BY and LIMIT/OFFSET clauses for opts to the
// base SELECT. Filter values are always bound as parameters.
func buildList(base string, spec listSpec, opts tipster.ListOptions) (string, []any, error) {
	var clauses []string
	var args []any
	// Deterministic clause order keeps prepared statements reusable.
	for _, name := range sortedKeys(opts.Filters) {
		col, ok := spec.filters[name]
		if !ok {
			return "", nil, fmt.Errorf("filter %q: %w", name, tipster.ErrBadRequest)
		}
		if !strings.Contains(col, "?") {
			col += " = ?"
		}
		clauses = append(clauses, col)
		for range strings.Count(col, "?") {
			args = append(args, opts.Filters[name])
		}
	}

	var b strings.Builder
	b.WriteString(base)
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}

	order := spec.defaultOrder
	if opts.OrderBy != "" {
		col, ok := spec.orders[opts.OrderBy]
		if !ok {
			return "", nil, fmt.Errorf("order by %q: %w", opts.OrderBy, tipster.ErrBadRequest)
		}
		order = col
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(order)
	if opts.Desc {
		b.WriteString(" DESC")
	}
	b.WriteString(", id")

	limit := opts.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, max(0, opts.Offset))

	return b.String(), args, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
