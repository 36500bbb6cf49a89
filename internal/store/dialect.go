package store

import (
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour of a backend.
type Dialect int

const (
	SQLiteDialect Dialect = iota
	PostgresDialect
)

func (d Dialect) String() string {
	switch d {
	case SQLiteDialect:
		return "sqlite"
	case PostgresDialect:
		return "postgres"
	default:
		return "unknown"
	}
}

// Rebind rewrites '?' placeholders into the dialect's native form.
// Queries are written once with '?' and rebound per engine. Question marks
// inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != PostgresDialect || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
