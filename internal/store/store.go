package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/normativ/internal/model"
)

// Schema version tracking:
// 0 - Initial schema (normatives without parameter keys)
// 1 - Backfilled normatives.parameter_key, UNIQUE(rank_id, parameter_key)
const currentSchemaVersion = 1

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides durable storage for the reference catalog and composed
// normatives.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//   - Immediate transactions: writers take the write lock at BEGIN and
//     wait out the busy timeout instead of failing on a stale snapshot
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	return OpenDialect(context.Background(), SQLite, path)
}

// OpenDialect opens a store on the given backend and DSN.
// For SQLite the DSN is a file path or ":memory:", optionally with driver
// parameters; an explicit _txlock overrides the immediate default.
func OpenDialect(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	if !d.IsPostgres() {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if !d.IsPostgres() {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// sqliteDSN makes transactions begin IMMEDIATE unless the DSN says otherwise.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_txlock=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_txlock=immediate"
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func (s *Store) applySchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations in one transaction.
func (s *Store) runMigrations(ctx context.Context) error {
	return s.WithTx(ctx, TxOptions{}, func(tx *Tx) error {
		version, err := tx.schemaVersion(ctx)
		if err != nil {
			return err
		}

		if version < 1 {
			if err := migrateToV1(ctx, tx); err != nil {
				return err
			}
		}

		return tx.setSchemaVersion(ctx, currentSchemaVersion)
	})
}

// migrateToV1 computes parameter keys for normatives written before keys
// existed, then enforces one normative per (rank, parameter set).
// Normatives without groups keep a NULL key and never match a compose.
func migrateToV1(ctx context.Context, tx *Tx) error {
	rows, err := tx.query(ctx, `SELECT id FROM normatives WHERE parameter_key IS NULL ORDER BY id`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	var pending []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("migrate to v1: %w", err)
		}
		pending = append(pending, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("migrate to v1: %w", err)
	}
	rows.Close()

	for _, id := range pending {
		ps, err := tx.GroupSet(ctx, id)
		if err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		if len(ps) == 0 {
			continue
		}
		if _, err := tx.exec(ctx, `UPDATE normatives SET parameter_key = ? WHERE id = ?`,
			model.MustParameterKey(ps), id); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	var rankID, count int64
	err = tx.queryRow(ctx, `
		SELECT rank_id, COUNT(*) FROM normatives
		WHERE parameter_key IS NOT NULL
		GROUP BY rank_id, parameter_key
		HAVING COUNT(*) > 1
		LIMIT 1
	`).Scan(&rankID, &count)
	if err == nil {
		return fmt.Errorf("migrate to v1: %d duplicate normatives share rank %d and one parameter set", count, rankID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("migrate to v1: %w", err)
	}

	if _, err := tx.exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_normatives_rank_key
		ON normatives(rank_id, parameter_key)
	`); err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

func (t *Tx) schemaVersion(ctx context.Context) (int, error) {
	var version int
	var err error
	if t.dialect.IsPostgres() {
		err = t.queryRow(ctx, `SELECT value FROM schema_meta WHERE key = 'schema_version'`).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
	} else {
		err = t.queryRow(ctx, "PRAGMA user_version").Scan(&version)
	}
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

func (t *Tx) setSchemaVersion(ctx context.Context, version int) error {
	var err error
	if t.dialect.IsPostgres() {
		_, err = t.exec(ctx, `
			INSERT INTO schema_meta (key, value) VALUES ('schema_version', ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value
		`, version)
	} else {
		_, err = t.exec(ctx, fmt.Sprintf("PRAGMA user_version = %d", version))
	}
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.WithTx(ctx, TxOptions{}, func(tx *Tx) error {
		var err error
		version, err = tx.schemaVersion(ctx)
		return err
	})
	return version, err
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
