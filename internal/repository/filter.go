package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Predicate is one SQL boolean expression with its positional arguments.
type Predicate struct {
	SQL  string
	Args []any
}

// Where joins predicates with AND.  With no predicates it yields "1=1" so
// the result can always follow a WHERE keyword.
func Where(preds ...Predicate) (string, []any) {
	if len(preds) == 0 {
		return "1=1", nil
	}
	parts := make([]string, 0, len(preds))
	args := []any{}
	for _, p := range preds {
		parts = append(parts, "("+p.SQL+")")
		args = append(args, p.Args...)
	}
	return strings.Join(parts, " AND "), args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uint64) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

func likeArg(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}

// TitleContains matches column case-insensitively against a substring.
func TitleContains(column, sub string) Predicate {
	return Predicate{SQL: "LOWER(" + column + ") LIKE ?", Args: []any{likeArg(sub)}}
}

// LinkedToAny matches plays that have at least one row in the link table
// pointing at one of ids.  A sub-select keeps the outer query free of
// duplicate rows when several ids match.
func LinkedToAny(linkTable, column string, ids []uint64) Predicate {
	return Predicate{
		SQL:  fmt.Sprintf("p.id IN (SELECT play_id FROM %s WHERE %s IN (%s))", linkTable, column, placeholders(len(ids))),
		Args: idArgs(ids),
	}
}

// PlayFilter narrows the play list.  Dimensions combine with AND; ids
// inside one dimension combine with OR.
type PlayFilter struct {
	Title    string
	GenreIDs []uint64
	ActorIDs []uint64
}

// Predicates returns the predicates for every dimension that is set.
func (f PlayFilter) Predicates() []Predicate {
	var out []Predicate
	if f.Title != "" {
		out = append(out, TitleContains("p.title", f.Title))
	}
	if len(f.GenreIDs) > 0 {
		out = append(out, LinkedToAny("play_genres", "genre_id", f.GenreIDs))
	}
	if len(f.ActorIDs) > 0 {
		out = append(out, LinkedToAny("play_actors", "actor_id", f.ActorIDs))
	}
	return out
}

// PerformanceFilter narrows the performance list by calendar date of the
// show time and by play title.
type PerformanceFilter struct {
	Date      *time.Time
	PlayTitle string
}

// Predicates returns the predicates for every dimension that is set.
func (f PerformanceFilter) Predicates() []Predicate {
	var out []Predicate
	if f.Date != nil {
		out = append(out, Predicate{SQL: "DATE(pf.show_time) = ?", Args: []any{f.Date.Format("2006-01-02")}})
	}
	if f.PlayTitle != "" {
		out = append(out, TitleContains("p.title", f.PlayTitle))
	}
	return out
}

// ParseIDList parses a comma separated id list such as "1,2,3".  Any
// malformed element yields a ValidationError naming param.
func ParseIDList(param, raw string) ([]uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil || id == 0 {
			return nil, NewValidationError(param, fmt.Sprintf("%q is not a valid id list", raw))
		}
		out = append(out, id)
	}
	return out, nil
}

// ParseDate parses a YYYY-MM-DD query value.
func ParseDate(param, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, NewValidationError(param, "date must use the YYYY-MM-DD format")
	}
	return &d, nil
}
