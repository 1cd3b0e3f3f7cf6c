package repository

import (
	"database/sql"
	"strings"
	"time"
)

// ListQuery is the shared shape of every paginated search.  An empty
// ShopID means unrestricted (admin); Search is a case-insensitive
// substring matched against the store's search columns.
type ListQuery struct {
	ShopID string
	Search string
	Offset int
	Limit  int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps search as a LOWER(col) LIKE pattern.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// search adds "(LOWER(a) LIKE ? OR LOWER(b) LIKE ? ...)" for a non-empty term.
func (w *where) search(term string, cols ...string) {
	if term == "" || len(cols) == 0 {
		return
	}
	p := likePattern(term)
	ors := make([]string, len(cols))
	for i, c := range cols {
		ors[i] = "LOWER(" + c + ") LIKE ?"
		w.args = append(w.args, p)
	}
	w.conds = append(w.conds, "("+strings.Join(ors, " OR ")+")")
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// scope restricts to one shop when shopID is set.
func (w *where) scope(shopID string) {
	if shopID != "" {
		w.add("shop_id = ?", shopID)
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
