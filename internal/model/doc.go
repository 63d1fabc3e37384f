// Package model defines the typed records shared by the store and the engine:
// cards, users, trades and the card sets that connect them.
//
// # Identity
//
// Cards and users are identified by integer ids assigned by the store.
// Trades additionally carry a content-derived key computed by TradeKey:
//
//	SHA256("courtside/trade/v1" + 0x00 + canonical JSON of the four-tuple)
//
// The key is stable across processes and is indexed UNIQUE in the store, so a
// duplicate proposal is detected without comparing list-valued columns.
//
// # Canonical JSON
//
// MarshalCanonical produces RFC 8785 output (sorted keys, NFC strings, no
// floats, no null). It is the only encoding used for hashing and for golden
// state snapshots.
package model
