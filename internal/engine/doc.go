// Package engine composes sport rank normatives.
//
// A normative belongs to one rank and is identified by the exact set of
// discipline parameters (links) it applies to. Compose takes a discipline,
// a set of link ids, and a list of entries (rank plus condition value) and
// attaches each entry's condition to the normative for that rank and exactly
// that set: an existing normative is merged into, otherwise one is created.
// Subsets and supersets never match.
//
// Each request runs in one transaction. Validation failures and, under
// PolicyReject, duplicate conditions abort the request and persist nothing.
// Under PolicySkip a duplicate condition rejects only its entry.
//
// Concurrent composes for the same (rank, parameter set) converge on a
// single normative: the store keys normatives by rank and a canonical hash
// of the parameter set, claims are insert-or-select, and transactions that
// lose a race on the backend are retried.
//
// All failures are reported as *Error with a stable ErrorCode and the
// request id that also appears in logs.
package engine
