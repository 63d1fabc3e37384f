package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainTradeKey separates trade keys from any other hash in the system.
// The version suffix allows the key layout to change later.
const DomainTradeKey = "courtside/trade/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TradeKey computes the idempotency key of a proposal.
//
// The key covers the exact four-tuple (side A user, side A offer, side B user,
// side B offer). Offers are sets, so their member order never matters; the
// side order does.
func TradeKey(a UserID, offerA CardSet, b UserID, offerB CardSet) (string, error) {
	obj := map[string]any{
		"a": map[string]any{"user": a, "offer": NewCardSet(offerA...)},
		"b": map[string]any{"user": b, "offer": NewCardSet(offerB...)},
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("trade key: %w", err)
	}
	return hashWithDomain(DomainTradeKey, canonical), nil
}

// MustTradeKey is like TradeKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTradeKey(a UserID, offerA CardSet, b UserID, offerB CardSet) string {
	key, err := TradeKey(a, offerA, b, offerB)
	if err != nil {
		panic(err)
	}
	return key
}
