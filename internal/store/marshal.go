package store

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/courtside/internal/model"
)

// marshalCardSet converts a card set to its JSON TEXT column form.
// Sets are already sorted, so equal sets always produce equal text.
func marshalCardSet(s model.CardSet) string {
	data, _ := json.Marshal(s.Int64s())
	return string(data)
}

// unmarshalCardSet parses a JSON integer array. Duplicates or unsorted input
// mean the row was not written by this package and are rejected.
func unmarshalCardSet(data string) (model.CardSet, error) {
	ids, err := unmarshalIDs(data)
	if err != nil {
		return nil, err
	}
	set := make(model.CardSet, len(ids))
	for i, id := range ids {
		set[i] = model.CardID(id)
	}
	if !slices.IsSorted(set) || len(slices.Compact(slices.Clone(set))) != len(set) {
		return nil, fmt.Errorf("card set %s is not sorted and unique", data)
	}
	return set, nil
}

// marshalTradeIDs converts pending trade ids to JSON TEXT, preserving order.
func marshalTradeIDs(ids []model.TradeID) string {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	data, _ := json.Marshal(out)
	return string(data)
}

func unmarshalTradeIDs(data string) ([]model.TradeID, error) {
	ids, err := unmarshalIDs(data)
	if err != nil {
		return nil, err
	}
	out := make([]model.TradeID, len(ids))
	for i, id := range ids {
		out[i] = model.TradeID(id)
	}
	return out, nil
}

// unmarshalIDs decodes a JSON array of positive integers.
func unmarshalIDs(data string) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("id list: %w", err)
	}
	if ids == nil {
		return nil, fmt.Errorf("id list: expected array, got %s", data)
	}
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("id list: invalid id %d", id)
		}
	}
	return ids, nil
}

// decodeFlag converts a 0/1 INTEGER column to bool.
func decodeFlag(v int64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("flag must be 0 or 1, got %d", v)
}

func encodeFlag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
