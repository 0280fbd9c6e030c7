// Package store provides durable storage for the sport reference catalog
// and the normatives composed against it.
//
// Two backends share one set of queries:
//   - SQLite (mattn/go-sqlite3) for local catalogs and tests
//   - PostgreSQL (pgx stdlib driver) for shared deployments
//
// Queries are written with ? placeholders and rebound per Dialect.
//
// # Invariants enforced by the schema
//
//   - UNIQUE(rank_id, parameter_key) on normatives: one normative per rank
//     and exact parameter set. parameter_key is computed by
//     model.ParameterKey over the sorted link ids.
//   - UNIQUE(normative_id, requirement_id, condition_value) on conditions
//   - Foreign keys on every reference, enforced on SQLite via pragma
//
// Concurrent writers that race on the same key are resolved with
// INSERT ... ON CONFLICT DO NOTHING followed by a read of the winner, so
// a losing transaction never aborts.
//
// # SQLite configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
