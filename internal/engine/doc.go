// Package engine implements the courtside ownership and trade engine.
//
// The engine owns the only write path to the card, user and trade records.
// Every public operation runs as one all-or-nothing store transaction, so a
// failure part way through (for example a trade deleted but the card swap
// rejected) rolls back to the pre-operation state.
//
// ARCHITECTURE:
//
// Single-Writer State:
// The full ownership and trade state is treated as one shared document.
// Mutating operations are serialized by a lock.Manager (in-process by
// default, Redis when several processes share a database) and then by the
// store's IMMEDIATE transaction. Two concurrent confirms of the same trade
// therefore never both observe "counterparty confirmed", and a trade is
// executed at most once.
//
// Operation Flow:
//  1. Acquire the state lock (Busy on failure)
//  2. Begin a store transaction
//  3. Read records, validate, write records
//  4. Commit, or roll back on any error
//  5. Release the lock and log the outcome with the op id
//
// Reads (catalog lookups, listings, CheckValidTrade) skip the lock and use a
// read-only transaction.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every trade mutation is stamped with a monotonic seq from Clock.Next().
// The clock resumes from the highest stored seq when the engine opens.
//
// Cascading Invalidation:
// A user gaining a card unconfirms that user's side of every pending trade.
// A user losing a card deletes every pending trade whose offer contains it.
// Both happen inside the transaction that changed the holding.
//
// Capacity:
// Hand size is bounded by maxHand (default model.DefaultMaxHand). Capacity
// failures in AddCardToUser, Confirm and ExecuteTrade are reported as a
// false result with no mutation, not as an error.
package engine
