package db

import (
	"strconv"
	"strings"
	"time"
)

// DatePart selects which part of a timestamp a grouping expression keeps.
type DatePart int

const (
	PartYear DatePart = iota
	PartMonth
	PartYearMonth
)

// sqliteTimeLayout matches how the hotel schema stores timestamps as text.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// likeEscape is the escape character declared in every LIKE/ILIKE clause.
const likeEscape = `\`

// Dialect captures the SQL differences between the supported engines.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name string

	numbered   bool
	likeOp     string
	foldFunc   string
	timeLayout string
}

var (
	// Postgres uses $n placeholders, to_char and ILIKE for case-insensitive matching.
	Postgres = Dialect{Name: "postgres", numbered: true, likeOp: "ILIKE"}

	// SQLite uses ? placeholders and strftime. Its LIKE folds ASCII only, so both
	// operands go through foldCaseFunc first.
	SQLite = Dialect{Name: "sqlite", likeOp: "LIKE", foldFunc: foldCaseFunc, timeLayout: sqliteTimeLayout}
)

// DatePart returns an expression that formats expr as text.
func (d Dialect) DatePart(expr string, part DatePart) string {
	if d.numbered {
		switch part {
		case PartYear:
			return "to_char(" + expr + ", 'YYYY')"
		case PartMonth:
			return "to_char(" + expr + ", 'MM')"
		default:
			return "to_char(" + expr + ", 'YYYY-MM')"
		}
	}

	switch part {
	case PartYear:
		return "strftime('%Y', " + expr + ")"
	case PartMonth:
		return "strftime('%m', " + expr + ")"
	default:
		return "strftime('%Y-%m', " + expr + ")"
	}
}

// Contains returns a predicate matching expr against a single pattern
// argument built with ContainsPattern.
func (d Dialect) Contains(expr string) string {
	if d.foldFunc == "" {
		return expr + " " + d.likeOp + " ? ESCAPE '" + likeEscape + "'"
	}

	return d.foldFunc + "(" + expr + ") " + d.likeOp + " " + d.foldFunc + "(?) ESCAPE '" + likeEscape + "'"
}

// ContainsPattern wraps term in wildcards, escaping LIKE metacharacters so the
// term is matched literally.
func ContainsPattern(term string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + r.Replace(term) + "%"
}

// TimeArg converts t to the argument form the engine compares timestamps with.
func (d Dialect) TimeArg(t time.Time) any {
	if d.timeLayout == "" {
		return t.UTC()
	}

	return t.UTC().Format(d.timeLayout)
}

// Timestamp wraps expr so it compares chronologically. SQLite keeps timestamps
// as text that may be date-only, so both sides of a comparison are normalized
// through datetime().
func (d Dialect) Timestamp(expr string) string {
	if d.timeLayout == "" {
		return expr
	}

	return "datetime(" + expr + ")"
}

// Rebind rewrites '?' placeholders into the dialect's placeholder syntax.
// Question marks inside single-quoted literals are left untouched.
func (d Dialect) Rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}

	var (
		b       strings.Builder
		n       int
		inQuote bool
	)

	b.Grow(len(query) + 8)

	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
