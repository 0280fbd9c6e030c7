// Package harness provides conformance testing for the composition engine.
//
// The harness seeds a CUE reference catalog into a fresh in-memory store,
// runs compose and delete steps through the real engine, and validates
// each step's outcome and the final stored state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: merge_second_value
//	description: "A second value for the same set merges"
//	catalog: catalogs/swimming
//	policy: reject
//	steps:
//	  - compose:
//	      discipline: swimming/freestyle_100
//	      links: [gender=male, distance=100m]
//	      requirement: time/seconds
//	      entries:
//	        - { rank: KMS, value: "58.5" }
//	    expect: { created: 1 }
//	  - delete:
//	      rank: KMS
//	      discipline: swimming/freestyle_100
//	      links: [gender=male, distance=100m]
//	    expect: { deleted: 1 }
//	assertions:
//	  - type: row_count
//	    table: normatives
//	    count: 0
//
// Catalog references use the forms of catalog.Symbols; links are written
// relative to the step's discipline.
//
// # Assertion Types
//
//   - row_count: a table holds exactly count rows
//   - normative: the normative for rank and exact links has exactly the
//     listed condition values, or does not exist (absent: true)
//
// # Deterministic Testing
//
// Every run starts from an empty database and numbers requests req-1,
// req-2, ..., so traces are identical across runs and can be compared
// against golden files (see Snapshot and RunWithGolden).
package harness
