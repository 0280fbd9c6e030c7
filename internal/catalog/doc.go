// Package catalog loads the sport reference catalog from CUE and seeds it
// into the store.
//
// A catalog directory holds one CUE package shaped like:
//
//	ranks: KMS: {full: "Candidate Master of Sport", prestige: 80}
//	parameters: gender: ["male", "female"]
//	requirements: time: seconds: "Time, seconds"
//	sports: swimming: {
//		name: "Swimming"
//		disciplines: freestyle_100: {
//			name: "Freestyle 100"
//			parameters: {gender: ["male", "female"], distance: ["100m"]}
//		}
//	}
//
// The shape is enforced by the embedded #Catalog schema. Seeding is
// idempotent and returns Symbols, which resolve readable references such
// as "swimming/freestyle_100/gender=male" to database ids.
package catalog
