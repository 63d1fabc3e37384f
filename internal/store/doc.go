// Package store provides SQLite-backed durable storage for courtside.
//
// Three tables hold the whole shared state:
//   - cards: the catalog, one row per card plus the cached owned flag
//   - users: registered users, their holding and pending trade ids
//   - trades: live trades, one row per proposal with per-side confirmation
//
// # Transactions
//
// All access goes through Update and View, which hand a *Tx to a callback.
// Update commits only when the callback succeeds; any error rolls the whole
// unit back. Transactions begin IMMEDIATE and the pool holds one connection,
// so writers are serialized inside the process and across processes.
//
// # Decoding
//
// Each entity has exactly one decode function (scanCard, scanUser,
// scanTrade). A row with the wrong shape, a malformed id list or an
// out-of-range flag fails with *DecodeError instead of producing a
// partially filled record.
//
// # List columns
//
// holding, offer_a and offer_b are JSON arrays of ascending unique ids.
// pending_trades is a JSON array in insertion order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: trades reference users
package store
