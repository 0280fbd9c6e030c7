package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Dialect captures the differences between the supported SQL backends.
// Queries in this package are written with ? placeholders and rebound
// per dialect before execution.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string

	schema   string
	numbered bool
}

var (
	// SQLite is the embedded backend used for local catalogs and tests.
	SQLite = Dialect{Driver: "sqlite3", schema: sqliteSchema}

	// Postgres is the server backend, reached through pgx's stdlib driver.
	Postgres = Dialect{Driver: "pgx", schema: postgresSchema, numbered: true}
)

// DialectFor resolves a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q (want sqlite3 or pgx)", driver)
	}
}

// IsPostgres reports whether the dialect targets PostgreSQL.
func (d Dialect) IsPostgres() bool {
	return d.numbered
}

// Rebind rewrites ? placeholders to $1, $2, ... for numbered dialects.
// Placeholders inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// txOptions maps the requested isolation onto the driver.
// SQLite transactions are always serializable and get the driver default.
func (d Dialect) txOptions(opts TxOptions) *sql.TxOptions {
	if !d.numbered {
		return nil
	}
	if opts.Serializable {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
}

// schemaStatements splits the embedded schema into single statements.
// Comment lines are dropped before splitting so they may contain semicolons.
func (d Dialect) schemaStatements() []string {
	var lines []string
	for _, line := range strings.Split(d.schema, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			lines = append(lines, line)
		}
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// PostgreSQL SQLSTATE codes used for classification.
const (
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == pgForeignKeyViolation
	}
	return false
}

// IsRetryable reports whether the transaction that produced err may succeed
// if run again from the start: lock contention, serialization failures,
// and deadlocks.
func IsRetryable(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == pgSerializationFailure || pe.Code == pgDeadlockDetected
	}
	return false
}
