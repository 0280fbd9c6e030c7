// Package model holds the domain types shared by the store, the engine, and
// the catalog: ranks, links, normatives, conditions, and parameter sets.
//
// model imports nothing internal. Every other internal package may import it.
//
// Conventions:
//   - Identifiers are int64 surrogate keys assigned by the database
//   - JSON tags use snake_case
//   - Parameter sets are always sorted and free of duplicates
package model
