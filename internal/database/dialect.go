package database

import (
	"strconv"
	"strings"
)

// dialect captures the differences between the supported databases.
type dialect struct {
	name   string
	driver string

	// idColumn is the auto-incrementing primary key definition.
	idColumn string

	// numbered placeholders ($1, $2, ...) instead of ?.
	numbered bool
}

var (
	sqliteDialect = dialect{
		name:     "sqlite",
		driver:   "sqlite",
		idColumn: "id INTEGER PRIMARY KEY AUTOINCREMENT",
	}
	postgresDialect = dialect{
		name:     "postgres",
		driver:   "pgx",
		idColumn: "id BIGSERIAL PRIMARY KEY",
		numbered: true,
	}
)

// dialectFor picks the database from the DSN: postgres:// and
// postgresql:// URLs select PostgreSQL, anything else is a SQLite path.
func dialectFor(dsn string) dialect {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return postgresDialect
	}
	return sqliteDialect
}

// rebind rewrites ? placeholders for dialects that number them.
// Queries in this package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
