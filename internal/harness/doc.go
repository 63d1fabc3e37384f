// Package harness runs YAML trade scenarios against a real engine.
//
// A scenario sets up a catalog and dealt hands, executes a flow of engine
// operations with expected outcomes, then asserts on the final state and
// on the recorded trace:
//
//	name: round_trip
//	description: both parties confirm and the cards swap
//	users:
//	  - {name: chuck, cards: [1, 2]}
//	  - {name: nolan, cards: [3]}
//	flow:
//	  - {op: propose, user: chuck, with: nolan, offer: [1], request: [3], as: t1}
//	  - {op: confirm, user: chuck, trade: t1}
//	  - {op: confirm, user: nolan, trade: t1, expect: {executed: true}}
//	assertions:
//	  - {type: holding, user: chuck, cards: [2, 3]}
//	  - {type: invariants}
//
// Every run uses a fresh in-memory store, a deterministic wall clock and
// sequential op ids, so the canonical JSON snapshot of trace and state is
// stable enough for golden files (see RunWithGolden).
package harness
